package database

import (
	"github.com/cdtdelta/honeydash/internal/model"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore manages a honeydash event table on a PostgreSQL server.
// It implements the Store interface.
type PostgresStore struct {
	*sqlStore
	connStr string
}

// OpenPostgres connects to a server holding a honeydash events table.
func OpenPostgres(connStr string) (*PostgresStore, error) {
	base, err := openSQL(&PostgresDialect{}, connStr, false, nil)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{sqlStore: base, connStr: connStr}, nil
}

// CreatePostgres creates the events table and indexes in an existing
// PostgreSQL database.
func CreatePostgres(connStr string, indexFields []model.Field) (*PostgresStore, error) {
	base, err := openSQL(&PostgresDialect{}, connStr, true, indexFields)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{sqlStore: base, connStr: connStr}, nil
}

// Path returns the connection string used to connect to the database.
func (db *PostgresStore) Path() string {
	return db.connStr
}
