package database

import (
	sqldriver "database/sql/driver"
	"strings"

	"modernc.org/sqlite"

	"github.com/cdtdelta/honeydash/internal/model"
)

// SQLite's built-in lower() only folds ASCII. Substring filters compare
// against strings.ToLower in memory, so the SQL side uses the same folding.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("lower", 1, unicodeLower)
}

func unicodeLower(_ *sqlite.FunctionContext, args []sqldriver.Value) (sqldriver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	}
	return args[0], nil
}

// SQLiteStore manages a honeydash event database in a SQLite file.
// It implements the Store interface.
type SQLiteStore struct {
	*sqlStore
	path string
}

// OpenSQLite opens an existing honeydash SQLite file, migrating older
// schemas.
func OpenSQLite(path string) (*SQLiteStore, error) {
	base, err := openSQL(&SQLiteDialect{}, path, false, nil)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{sqlStore: base, path: path}, nil
}

// CreateSQLite creates or extends a honeydash SQLite file. Rows already in
// the file are kept. Nil indexFields means DefaultIndexFields.
func CreateSQLite(path string, indexFields []model.Field) (*SQLiteStore, error) {
	base, err := openSQL(&SQLiteDialect{}, path, true, indexFields)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{sqlStore: base, path: path}, nil
}

// Path returns the file path of the database.
func (db *SQLiteStore) Path() string {
	return db.path
}
