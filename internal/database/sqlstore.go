package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cdtdelta/honeydash/internal/model"
)

// DefaultIndexFields are indexed when a new database is created.
// The timestamp index is on ts_epoch, which range filters and sorting use.
var DefaultIndexFields = []model.Field{
	model.FieldTimestamp, model.FieldType, model.FieldSeverity, model.FieldAttackerIP,
}

// progressEvery is how often InsertEvents reports progress.
const progressEvery = 10000

// eventColumns returns the event columns in model.Fields order.
func eventColumns() []string {
	fields := model.AllFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Column()
	}
	return cols
}

// SelectColumns returns the quoted select list matching the scan order used
// by ExecuteQuery.
func SelectColumns(d Dialect) []string {
	cols := eventColumns()
	for i, c := range cols {
		cols[i] = d.QuoteColumn(c)
	}
	return cols
}

// indexColumn maps a field to the column its index is built on.
func indexColumn(f model.Field) string {
	if f == model.FieldTimestamp {
		return EpochColumn
	}
	return f.Column()
}

// sqlStore holds the operations shared by the SQLite and PostgreSQL stores.
// The two differ only in their Dialect and how they are opened.
type sqlStore struct {
	conn    *sql.DB
	dialect Dialect
}

// openSQL connects through d and prepares the schema. With create set the
// table and indexes are created if missing; otherwise the connection is
// checked and an existing table is migrated. The connection is closed on
// failure.
func openSQL(d Dialect, target string, create bool, indexFields []model.Field) (*sqlStore, error) {
	conn, err := sql.Open(d.DriverName(), d.DSN(target))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db := &sqlStore{conn: conn, dialect: d}

	if create {
		err = db.createSchema(indexFields)
		if err != nil {
			err = fmt.Errorf("creating schema: %w", err)
		}
	} else if err = conn.Ping(); err != nil {
		err = fmt.Errorf("connecting to database: %w", err)
	} else if err = db.Migrate(); err != nil {
		err = fmt.Errorf("migrating database: %w", err)
	}
	if err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Dialect returns the SQL dialect of the store.
func (db *sqlStore) Dialect() Dialect { return db.dialect }

// Close closes the database connection.
func (db *sqlStore) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// createSchema builds the event table and indexes for a new database.
func (db *sqlStore) createSchema(indexFields []model.Field) error {
	if indexFields == nil {
		indexFields = DefaultIndexFields
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec(db.dialect.CreateTableSQL()); err != nil {
		return fmt.Errorf("creating %s table: %w", TableName, err)
	}

	for _, f := range indexFields {
		col := indexColumn(f)
		if _, err = tx.Exec(db.dialect.CreateIndexSQL(col+"_idx", TableName, col)); err != nil {
			return fmt.Errorf("creating index on %s: %w", col, err)
		}
	}

	return tx.Commit()
}

// Migrate adds ts_epoch to tables created without it and fills it from the
// raw timestamp column.
func (db *sqlStore) Migrate() error {
	var hasTable, hasEpoch int
	err := db.conn.QueryRow(db.dialect.SchemaCheckColumnSQL(TableName, "id")).Scan(&hasTable)
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if hasTable == 0 {
		return nil
	}
	err = db.conn.QueryRow(db.dialect.SchemaCheckColumnSQL(TableName, EpochColumn)).Scan(&hasEpoch)
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if hasEpoch > 0 {
		return nil
	}
	if _, err := db.conn.Exec(db.dialect.AddEpochColumnSQL()); err != nil {
		return fmt.Errorf("adding %s column: %w", EpochColumn, err)
	}
	return db.backfillEpoch()
}

func (db *sqlStore) backfillEpoch() error {
	ts := db.dialect.QuoteColumn("timestamp")
	rows, err := db.conn.Query("SELECT id, " + ts + " FROM " + TableName + " WHERE " + ts + " IS NOT NULL")
	if err != nil {
		return fmt.Errorf("reading timestamps: %w", err)
	}
	type pending struct {
		id    string
		epoch int64
	}
	var updates []pending
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("scanning timestamp: %w", err)
		}
		if t, ok := model.ParseTimestamp(raw, time.UTC); ok {
			updates = append(updates, pending{id, t.UnixMilli()})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf("UPDATE %s SET %s = %s WHERE id = %s",
		TableName, EpochColumn, db.dialect.Placeholder(1), db.dialect.Placeholder(2)))
	if err != nil {
		return fmt.Errorf("preparing backfill: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(u.epoch, u.id); err != nil {
			return fmt.Errorf("backfilling %s: %w", u.id, err)
		}
	}
	return tx.Commit()
}

// eventArgs converts an event to upsert parameters. Absent fields bind as NULL.
// Zone-less timestamps are read as UTC for ts_epoch.
func (db *sqlStore) eventArgs(e *model.Event) []interface{} {
	fields := model.AllFields()
	args := make([]interface{}, 0, len(fields)+1)
	for _, f := range fields {
		v := e.Value(f)
		switch {
		case v.Absent:
			args = append(args, nil)
		case v.Kind == model.KindNumber:
			args = append(args, v.Number)
		default:
			args = append(args, db.dialect.SanitizeText(v.Text))
		}
	}
	if t, ok := e.Time(time.UTC); ok {
		args = append(args, t.UnixMilli())
	} else {
		args = append(args, nil)
	}
	return args
}

// withID returns e, assigning a random id when it has none.
func withID(e model.Event) model.Event {
	if !e.Has(model.FieldID) || e.ID == "" {
		e.SetValue(model.FieldID, model.Text(uuid.NewString()))
	}
	return e
}

// InsertEvents upserts a batch of events inside a single transaction.
// The onProgress callback is called every 10,000 events with the current count.
// Pass nil for onProgress if you don't need progress updates.
func (db *sqlStore) InsertEvents(events []model.Event, onProgress func(count int)) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(db.dialect.UpsertEventSQL())
	if err != nil {
		return 0, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range events {
		ev := withID(events[i])
		if _, err := stmt.Exec(db.eventArgs(&ev)...); err != nil {
			return inserted, fmt.Errorf("inserting event %d: %w", inserted+1, err)
		}
		inserted++
		if onProgress != nil && inserted%progressEvery == 0 {
			onProgress(inserted)
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("committing transaction: %w", err)
	}

	return inserted, nil
}

// QueryEvents selects events matching whereClause (without the WHERE keyword).
func (db *sqlStore) QueryEvents(whereClause string, args []interface{}, orderBy string, limit, offset int) ([]model.Event, error) {
	q := "SELECT " + strings.Join(SelectColumns(db.dialect), ", ") + " FROM " + TableName

	if whereClause != "" {
		q += " WHERE " + whereClause
	}

	if orderBy != "" {
		q += " ORDER BY " + orderBy
	}

	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
		if offset > 0 {
			q += fmt.Sprintf(" OFFSET %d", offset)
		}
	}

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// AllEvents returns every event in timestamp order, unparseable timestamps last.
func (db *sqlStore) AllEvents() ([]model.Event, error) {
	return db.QueryEvents("", nil, EpochColumn+" ASC NULLS LAST, id ASC", 0, 0)
}

// CountEvents returns the total number of events, optionally filtered by a WHERE clause.
func (db *sqlStore) CountEvents(whereClause string, args []interface{}) (int64, error) {
	q := "SELECT COUNT(*) FROM " + TableName
	if whereClause != "" {
		q += " WHERE " + whereClause
	}

	var count int64
	err := db.conn.QueryRow(q, args...).Scan(&count)
	return count, err
}

// ExecuteQuery runs a pre-built SQL SELECT whose select list is SelectColumns.
func (db *sqlStore) ExecuteQuery(sqlStr string, args []interface{}) ([]model.Event, error) {
	rows, err := db.conn.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ExecuteCountQuery runs a pre-built COUNT query and returns the result.
func (db *sqlStore) ExecuteCountQuery(sqlStr string, args []interface{}) (int64, error) {
	var count int64
	err := db.conn.QueryRow(sqlStr, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("executing count query: %w", err)
	}
	return count, nil
}

// GetMinMaxTimestamp returns the raw timestamps of the earliest and latest
// events, or empty strings when no event has a parseable timestamp.
func (db *sqlStore) GetMinMaxTimestamp() (minTS, maxTS string, err error) {
	ts := db.dialect.QuoteColumn("timestamp")
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s %%s LIMIT 1",
		ts, TableName, EpochColumn, EpochColumn)

	for _, target := range []struct {
		dir string
		out *string
	}{{"ASC", &minTS}, {"DESC", &maxTS}} {
		var v sql.NullString
		err = db.conn.QueryRow(fmt.Sprintf(q, target.dir)).Scan(&v)
		if err == sql.ErrNoRows {
			return "", "", nil
		}
		if err != nil {
			return "", "", err
		}
		*target.out = v.String
	}
	return minTS, maxTS, nil
}

// GetDistinctValues returns a map of distinct values and their counts for a
// field. Absent values are not counted.
func (db *sqlStore) GetDistinctValues(field model.Field) (map[string]int64, error) {
	if field.Key() == "" {
		return nil, fmt.Errorf("invalid field: %d", int(field))
	}
	col := db.dialect.QuoteColumn(field.Column())

	q := fmt.Sprintf(
		"SELECT CAST(%s AS TEXT), COUNT(*) FROM %s WHERE %s IS NOT NULL GROUP BY %s",
		col, TableName, col, col)

	rows, err := db.conn.Query(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var value string
		var count int64
		if err := rows.Scan(&value, &count); err != nil {
			return nil, err
		}
		result[value] = count
	}
	return result, rows.Err()
}

// GetHourlyHistogram counts events per hour in a zone offsetMillis from UTC.
// whereClause is a fragment without the WHERE keyword. Events without a
// parseable timestamp are not counted.
func (db *sqlStore) GetHourlyHistogram(whereClause string, whereArgs []interface{}, offsetMillis int64) ([]HourBucket, error) {
	cond := EpochColumn + " IS NOT NULL"
	if whereClause != "" {
		cond += " AND (" + whereClause + ")"
	}
	histSQL := fmt.Sprintf(
		"SELECT %s AS bucket, COUNT(*) AS cnt FROM %s WHERE %s GROUP BY bucket ORDER BY bucket",
		db.dialect.HourBucketSQL(offsetMillis), TableName, cond)

	rows, err := db.conn.Query(histSQL, whereArgs...)
	if err != nil {
		return nil, fmt.Errorf("histogram query: %w", err)
	}
	defer rows.Close()

	buckets := []HourBucket{}
	for rows.Next() {
		var b HourBucket
		if err := rows.Scan(&b.Hour, &b.Count); err != nil {
			return nil, fmt.Errorf("scanning bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}

// RebuildIndexes drops all existing indexes and creates new ones for the given fields.
func (db *sqlStore) RebuildIndexes(indexFields []model.Field) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, f := range model.AllFields() {
		name := indexColumn(f) + "_idx"
		if _, err = tx.Exec(db.dialect.DropIndexSQL(name)); err != nil {
			return fmt.Errorf("dropping index %s: %w", name, err)
		}
	}

	for _, f := range indexFields {
		col := indexColumn(f)
		if _, err = tx.Exec(db.dialect.CreateIndexSQL(col+"_idx", TableName, col)); err != nil {
			return fmt.Errorf("creating index %s_idx: %w", col, err)
		}
	}

	return tx.Commit()
}

// scanEvents converts rows selected with SelectColumns into events.
// NULL columns become missing fields.
func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	fields := model.AllFields()
	texts := make([]sql.NullString, len(fields))
	nums := make([]sql.NullInt64, len(fields))
	dest := make([]interface{}, len(fields))
	for i, f := range fields {
		if f.Kind() == model.KindNumber {
			dest[i] = &nums[i]
		} else {
			dest[i] = &texts[i]
		}
	}

	events := []model.Event{}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		var e model.Event
		for i, f := range fields {
			switch {
			case f.Kind() == model.KindNumber && nums[i].Valid:
				e.SetValue(f, model.Number(nums[i].Int64))
			case f.Kind() != model.KindNumber && texts[i].Valid:
				e.SetValue(f, model.Text(texts[i].String))
			default:
				e.Missing = e.Missing.With(f)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
