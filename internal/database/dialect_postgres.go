package database

import (
	"fmt"
	"strings"
)

// pgQuoteCol wraps a column name in double quotes if it is a PostgreSQL keyword.
// "timestamp" is a type name and must be quoted to be used as a column.
// Non-reserved names are returned as-is so PostgreSQL folds them to lowercase
// consistently with unquoted DDL definitions.
func pgQuoteCol(name string) string {
	switch name {
	case "timestamp", "type":
		return `"` + name + `"`
	default:
		return name
	}
}

// PostgresDialect implements the Dialect interface for PostgreSQL databases.
// It also satisfies query.QueryDialect through structural typing.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string               { return "pgx" }
func (d *PostgresDialect) DSN(pathOrConnStr string) string  { return pathOrConnStr }
func (d *PostgresDialect) Placeholder(index int) string     { return fmt.Sprintf("$%d", index) }
func (d *PostgresDialect) QuoteColumn(name string) string   { return pgQuoteCol(name) }
func (d *PostgresDialect) BinaryCollate(expr string) string { return expr + ` COLLATE "C"` }

// SanitizeText strips null bytes (0x00). SQLite stores these fine but
// PostgreSQL rejects them with "invalid byte sequence for encoding UTF8".
func (d *PostgresDialect) SanitizeText(s string) string {
	if strings.ContainsRune(s, '\x00') {
		return strings.ReplaceAll(s, "\x00", "")
	}
	return s
}

func (d *PostgresDialect) DateBetweenSQL(from, to string) string {
	return fmt.Sprintf("(%s BETWEEN %s AND %s)", EpochColumn, from, to)
}

func (d *PostgresDialect) HourBucketSQL(offsetMillis int64) string {
	return hourBucketExpr(offsetMillis)
}

func (d *PostgresDialect) SchemaCheckColumnSQL(table, column string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM information_schema.columns WHERE table_name='%s' AND column_name='%s'",
		table, column)
}

func (d *PostgresDialect) CreateTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS honeypot_events (
		id TEXT PRIMARY KEY, "type" TEXT, severity TEXT, kill_chain_phase TEXT,
		"timestamp" TEXT,
		attacker_id TEXT, attacker_ip TEXT, attacker_name TEXT, attacker_port BIGINT,
		decoy_id BIGINT, decoy_name TEXT, decoy_group TEXT, decoy_ip TEXT,
		decoy_port BIGINT, decoy_type TEXT,
		ts_epoch BIGINT
	)`
}

func (d *PostgresDialect) AddEpochColumnSQL() string {
	return "ALTER TABLE honeypot_events ADD COLUMN IF NOT EXISTS ts_epoch BIGINT"
}

func (d *PostgresDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, pgQuoteCol(column))
}

func (d *PostgresDialect) DropIndexSQL(indexName string) string {
	return fmt.Sprintf("DROP INDEX IF EXISTS %s", indexName)
}

func (d *PostgresDialect) UpsertEventSQL() string {
	return upsertSQL(d)
}
