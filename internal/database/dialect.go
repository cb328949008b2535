package database

// Dialect abstracts all database-specific SQL generation.
// Each database backend (SQLite, PostgreSQL) implements this interface.
// The Placeholder, DateBetweenSQL, QuoteColumn, and BinaryCollate methods match the
// query.QueryDialect interface through Go structural typing, so a Dialect can
// also serve as a QueryDialect.
type Dialect interface {
	// DriverName returns the database/sql driver name (e.g. "sqlite", "pgx").
	DriverName() string

	// DSN returns the data source name for opening a connection.
	// For SQLite this is the file path; for PostgreSQL it is a connection string.
	DSN(pathOrConnStr string) string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	// SQLite: "?" (ignoring index), PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// DateBetweenSQL returns the SQL fragment for an epoch-millisecond range on
	// ts_epoch, given the two rendered placeholders.
	DateBetweenSQL(from, to string) string

	// HourBucketSQL returns an expression truncating ts_epoch to the start of
	// its hour, shifted by a fixed zone offset in milliseconds.
	HourBucketSQL(offsetMillis int64) string

	// QuoteColumn returns the column name quoted appropriately for the dialect.
	// SQLite returns the name unchanged. PostgreSQL wraps reserved words in double quotes.
	QuoteColumn(name string) string

	// BinaryCollate makes a text expression sort by bytes. SQLite already
	// compares text with memcmp; PostgreSQL collates by locale unless told.
	BinaryCollate(expr string) string

	// SchemaCheckColumnSQL returns a SQL query that counts how many times a column
	// appears in a table's schema. Used for migration checks.
	SchemaCheckColumnSQL(table, column string) string

	// CreateTableSQL returns the DDL for the honeypot_events table.
	CreateTableSQL() string

	// AddEpochColumnSQL returns the DDL adding ts_epoch to a table created
	// before the column existed.
	AddEpochColumnSQL() string

	// CreateIndexSQL returns DDL to create an index on a table column.
	CreateIndexSQL(indexName, tableName, column string) string

	// DropIndexSQL returns DDL to drop an index by name.
	DropIndexSQL(indexName string) string

	// UpsertEventSQL returns the parameterized INSERT for one event, updating
	// the existing row when the id is already present. Parameters follow
	// eventColumns followed by ts_epoch.
	UpsertEventSQL() string

	// SanitizeText cleans a string value before it is bound.
	SanitizeText(s string) string
}
