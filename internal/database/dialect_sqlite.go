package database

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements the Dialect interface for SQLite databases.
// It also satisfies query.QueryDialect through structural typing.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string               { return "sqlite" }
func (d *SQLiteDialect) DSN(pathOrConnStr string) string  { return pathOrConnStr }
func (d *SQLiteDialect) Placeholder(index int) string     { return "?" }
func (d *SQLiteDialect) QuoteColumn(name string) string   { return name }
func (d *SQLiteDialect) BinaryCollate(expr string) string { return expr }
func (d *SQLiteDialect) SanitizeText(s string) string     { return s }

func (d *SQLiteDialect) DateBetweenSQL(from, to string) string {
	return fmt.Sprintf("(%s BETWEEN %s AND %s)", EpochColumn, from, to)
}

func (d *SQLiteDialect) HourBucketSQL(offsetMillis int64) string {
	return hourBucketExpr(offsetMillis)
}

func (d *SQLiteDialect) SchemaCheckColumnSQL(table, column string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name='%s'", table, column)
}

func (d *SQLiteDialect) CreateTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS honeypot_events (
		id TEXT PRIMARY KEY, type TEXT, severity TEXT, kill_chain_phase TEXT,
		timestamp TEXT,
		attacker_id TEXT, attacker_ip TEXT, attacker_name TEXT, attacker_port INTEGER,
		decoy_id INTEGER, decoy_name TEXT, decoy_group TEXT, decoy_ip TEXT,
		decoy_port INTEGER, decoy_type TEXT,
		ts_epoch INTEGER
	)`
}

func (d *SQLiteDialect) AddEpochColumnSQL() string {
	return "ALTER TABLE honeypot_events ADD COLUMN ts_epoch INTEGER"
}

func (d *SQLiteDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, column)
}

func (d *SQLiteDialect) DropIndexSQL(indexName string) string {
	return fmt.Sprintf("DROP INDEX IF EXISTS %s", indexName)
}

func (d *SQLiteDialect) UpsertEventSQL() string {
	return upsertSQL(d)
}

// upsertSQL renders the shared INSERT ... ON CONFLICT statement. Both SQLite
// (3.24+) and PostgreSQL accept the same syntax.
func upsertSQL(d Dialect) string {
	cols := append(eventColumns(), EpochColumn)
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	var updates []string
	for i, c := range cols {
		quoted[i] = d.QuoteColumn(c)
		params[i] = d.Placeholder(i + 1)
		if c != "id" {
			updates = append(updates, quoted[i]+" = excluded."+quoted[i])
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		TableName, strings.Join(quoted, ", "), strings.Join(params, ", "), strings.Join(updates, ", "))
}

// hourBucketExpr floors ts_epoch to the hour in a zone offsetMillis from UTC.
// Integer division truncates toward zero in both backends, which floors for
// timestamps after 1970.
func hourBucketExpr(offsetMillis int64) string {
	return fmt.Sprintf("(((%s + %d) / 3600000) * 3600000 - %d)", EpochColumn, offsetMillis, offsetMillis)
}
