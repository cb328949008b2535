package database

import (
	"fmt"

	"github.com/cdtdelta/honeydash/internal/model"
)

// driver pairs the open and create functions of one backend. target is a
// file path for sqlite and a connection string for postgres.
type driver struct {
	open   func(target string) (Store, error)
	create func(target string, indexFields []model.Field) (Store, error)
}

var drivers = map[string]driver{
	"sqlite": {
		open:   func(p string) (Store, error) { return OpenSQLite(p) },
		create: func(p string, idx []model.Field) (Store, error) { return CreateSQLite(p, idx) },
	},
	"postgres": {
		open:   func(dsn string) (Store, error) { return OpenPostgres(dsn) },
		create: func(dsn string, idx []model.Field) (Store, error) { return CreatePostgres(dsn, idx) },
	},
}

// Drivers lists the supported driver names.
var Drivers = []string{"sqlite", "postgres"}

func lookup(name string) (driver, error) {
	d, ok := drivers[name]
	if !ok {
		return driver{}, fmt.Errorf("unsupported driver: %s", name)
	}
	return d, nil
}

// OpenStore opens an existing event database and brings its schema up to
// date.
func OpenStore(name, target string) (Store, error) {
	d, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return d.open(target)
}

// CreateStore creates the events table and its indexes, keeping any rows
// already present. A postgres database must already exist. Nil indexFields
// means DefaultIndexFields.
func CreateStore(name, target string, indexFields []model.Field) (Store, error) {
	d, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return d.create(target, indexFields)
}
