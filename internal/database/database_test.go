package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/query"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func createTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := CreateSQLite(tempDBPath(t), nil)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleEvent(id string) model.Event {
	return model.Event{
		ID:             id,
		Type:           "Probe-Scan",
		Severity:       "high",
		KillChainPhase: "reconnaissance",
		Timestamp:      "2021-08-01T10:15:00Z",
		Attacker: model.Attacker{
			ID: "att-1", IP: "203.0.113.7", Name: "scanner", Port: 51022,
		},
		Decoy: model.Decoy{
			ID: 12, Name: "ssh-decoy", Group: "dmz", IP: "10.0.0.5", Port: 22, Type: "ssh",
		},
	}
}

func insertAll(t *testing.T, db Store, events ...model.Event) {
	t.Helper()
	if _, err := db.InsertEvents(events, nil); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}
}

func TestCreateAndOpen(t *testing.T) {
	path := tempDBPath(t)

	db, err := CreateSQLite(path, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	db.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	db2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db2.Close()

	count, err := db2.CountEvents("", nil)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 events, got %d", count)
	}
	if db2.Path() != path {
		t.Errorf("expected path %s, got %s", path, db2.Path())
	}
}

func TestInsertAndQueryEvent(t *testing.T) {
	db := createTestDB(t)
	insertAll(t, db, sampleEvent("evt-1"))

	events, err := db.QueryEvents("", nil, "", 0, 0)
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	got := events[0]
	if got.ID != "evt-1" {
		t.Errorf("expected ID 'evt-1', got '%s'", got.ID)
	}
	if got.Attacker.IP != "203.0.113.7" {
		t.Errorf("expected attacker IP '203.0.113.7', got '%s'", got.Attacker.IP)
	}
	if got.Decoy.Port != 22 || got.Decoy.ID != 12 {
		t.Errorf("expected decoy 12:22, got %d:%d", got.Decoy.ID, got.Decoy.Port)
	}
	if got.Timestamp != "2021-08-01T10:15:00Z" {
		t.Errorf("expected raw timestamp kept, got '%s'", got.Timestamp)
	}
	if got.Missing != 0 {
		t.Errorf("expected all fields present, missing=%b", got.Missing)
	}
}

func TestMissingFieldsRoundTripAsNull(t *testing.T) {
	db := createTestDB(t)
	e := sampleEvent("evt-1")
	e.Missing = e.Missing.With(model.FieldSeverity).With(model.FieldDecoyPort)
	insertAll(t, db, e)

	events, err := db.AllEvents()
	if err != nil {
		t.Fatalf("AllEvents failed: %v", err)
	}
	got := events[0]
	if got.Has(model.FieldSeverity) || got.Has(model.FieldDecoyPort) {
		t.Error("expected severity and decoy.port to come back missing")
	}
	if !got.Has(model.FieldType) {
		t.Error("expected type to be present")
	}

	count, _ := db.CountEvents("severity IS NULL", nil)
	if count != 1 {
		t.Errorf("expected absent severity stored as NULL, got %d rows", count)
	}
}

func TestInsertAssignsMissingID(t *testing.T) {
	db := createTestDB(t)
	e := sampleEvent("")
	insertAll(t, db, e, e)

	events, _ := db.AllEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID == "" || events[0].ID == events[1].ID {
		t.Errorf("expected distinct generated ids, got %q and %q", events[0].ID, events[1].ID)
	}
}

func TestInsertUpsertsOnID(t *testing.T) {
	db := createTestDB(t)
	e := sampleEvent("evt-1")
	insertAll(t, db, e)

	e.Severity = "low"
	insertAll(t, db, e)

	count, _ := db.CountEvents("", nil)
	if count != 1 {
		t.Fatalf("expected 1 event after upsert, got %d", count)
	}
	events, _ := db.AllEvents()
	if events[0].Severity != "low" {
		t.Errorf("expected severity updated to 'low', got '%s'", events[0].Severity)
	}
}

func TestInsertBatch(t *testing.T) {
	db := createTestDB(t)

	events := make([]model.Event, 100)
	for i := range events {
		events[i] = sampleEvent(fmt.Sprintf("evt-%03d", i))
	}

	var progressCalls int
	inserted, err := db.InsertEvents(events, func(count int) {
		progressCalls++
	})
	if err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}
	if inserted != 100 {
		t.Errorf("expected 100 inserted, got %d", inserted)
	}
	if progressCalls != 0 {
		t.Errorf("expected no progress callback below %d rows, got %d", progressEvery, progressCalls)
	}

	count, err := db.CountEvents("", nil)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 100 {
		t.Errorf("expected 100 events, got %d", count)
	}
}

func TestQueryWithFilter(t *testing.T) {
	db := createTestDB(t)

	for i, typ := range []string{"Probe-Scan", "login", "benign", "probe", "PROBE-X"} {
		e := sampleEvent(fmt.Sprintf("evt-%d", i))
		e.Type = typ
		insertAll(t, db, e)
	}

	events, err := db.QueryEvents("type = ?", []interface{}{"login"}, "", 0, 0)
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 login event, got %d", len(events))
	}

	where, args := query.Substring(model.FieldType, "probe").WhereClauseFor(db.Dialect())
	count, err := db.CountEvents(where, args)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 case-insensitive probe matches, got %d", count)
	}
}

func TestQueryPagination(t *testing.T) {
	db := createTestDB(t)

	for i := 0; i < 25; i++ {
		insertAll(t, db, sampleEvent(fmt.Sprintf("evt-%02d", i)))
	}

	page1, err := db.QueryEvents("", nil, "id", 10, 0)
	if err != nil {
		t.Fatalf("page 1 query failed: %v", err)
	}
	if len(page1) != 10 {
		t.Errorf("expected 10 events on page 1, got %d", len(page1))
	}

	page2, err := db.QueryEvents("", nil, "id", 10, 10)
	if err != nil {
		t.Fatalf("page 2 query failed: %v", err)
	}
	if len(page2) != 10 {
		t.Errorf("expected 10 events on page 2, got %d", len(page2))
	}

	page3, err := db.QueryEvents("", nil, "id", 10, 20)
	if err != nil {
		t.Fatalf("page 3 query failed: %v", err)
	}
	if len(page3) != 5 {
		t.Errorf("expected 5 events on page 3, got %d", len(page3))
	}

	if page1[0].ID == page2[0].ID {
		t.Error("page 1 and page 2 returned the same first event")
	}
}

func TestExecuteBuiltQuery(t *testing.T) {
	db := createTestDB(t)

	ports := []int64{443, 22, 8080, 80}
	for i, p := range ports {
		e := sampleEvent(fmt.Sprintf("evt-%d", i))
		e.Decoy.Port = p
		insertAll(t, db, e)
	}
	missing := sampleEvent("evt-missing")
	missing.Missing = missing.Missing.With(model.FieldDecoyPort)
	insertAll(t, db, missing)

	q := query.New(3)
	q.SetSort(&query.SortConfig{Field: model.FieldDecoyPort, Direction: query.Desc})
	sqlStr, args := q.Build(db.Dialect(), TableName, SelectColumns(db.Dialect()))

	events, err := db.ExecuteQuery(sqlStr, args)
	if err != nil {
		t.Fatalf("ExecuteQuery failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Decoy.Port != 8080 || events[2].Decoy.Port != 80 {
		t.Errorf("unexpected order: %d, %d, %d", events[0].Decoy.Port, events[1].Decoy.Port, events[2].Decoy.Port)
	}

	q.SetPage(2)
	sqlStr, args = q.Build(db.Dialect(), TableName, SelectColumns(db.Dialect()))
	events, _ = db.ExecuteQuery(sqlStr, args)
	if len(events) != 2 || events[1].ID != "evt-missing" {
		t.Errorf("expected missing port last on page 2, got %+v", events)
	}

	countSQL, countArgs := q.BuildCount(db.Dialect(), TableName)
	total, err := db.ExecuteCountQuery(countSQL, countArgs)
	if err != nil {
		t.Fatalf("ExecuteCountQuery failed: %v", err)
	}
	if total != 5 {
		t.Errorf("expected 5, got %d", total)
	}
}

// sqlMatchesMemory runs q both ways over what the store holds and fails when
// the ids differ.
func sqlMatchesMemory(t *testing.T, db Store, q *query.Query, label string) []string {
	t.Helper()
	all, err := db.AllEvents()
	if err != nil {
		t.Fatalf("AllEvents failed: %v", err)
	}
	sqlStr, args := q.Build(db.Dialect(), TableName, SelectColumns(db.Dialect()))
	fromSQL, err := db.ExecuteQuery(sqlStr, args)
	if err != nil {
		t.Fatalf("%s: ExecuteQuery failed: %v", label, err)
	}
	want, got := eventIDs(q.Apply(all)), eventIDs(fromSQL)
	if strings.Join(want, ",") != strings.Join(got, ",") {
		t.Errorf("%s: in-memory %v, sql %v", label, want, got)
	}
	return got
}

func eventIDs(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestSubstringFilterMatchesInMemory(t *testing.T) {
	db := createTestDB(t)
	for i, typ := range []string{"probe_scan", "probeXscan", "100% match", "100 match", `C:\Temp`, "ÄRGER", "login"} {
		e := sampleEvent(fmt.Sprintf("evt-%d", i))
		e.Type = typ
		insertAll(t, db, e)
	}

	cases := map[string]int{"probe_scan": 1, "100%": 1, "_": 1, "%": 1, `:\t`: 1, "ärger": 1, "PROBE": 2}
	for text, n := range cases {
		q := query.New(0)
		q.AddPredicate(query.Substring(model.FieldType, text))
		if got := sqlMatchesMemory(t, db, q, "filter "+text); len(got) != n {
			t.Errorf("filter %q: expected %d rows, got %v", text, n, got)
		}
	}
}

func TestSortMatchesInMemory(t *testing.T) {
	db := createTestDB(t)
	rows := []struct{ ts, typ string }{
		{"2021-08-02T00:00:00Z", "beta"},
		{"zzz", "Alpha"},
		{"2021-08-01T00:00:00Z", "alpha"},
		{"2021-08-01T99:00:00Z", "beta"},
		{"", ""},
		{"2021-08-01T00:00:00Z", "_under"},
	}
	for i, r := range rows {
		e := sampleEvent(fmt.Sprintf("evt-%d", i))
		e.Timestamp, e.Type = r.ts, r.typ
		if r.ts == "" {
			e.Missing = e.Missing.With(model.FieldTimestamp).With(model.FieldType)
		}
		insertAll(t, db, e)
	}

	for _, f := range []model.Field{model.FieldTimestamp, model.FieldType, model.FieldDecoyPort} {
		for _, dir := range []query.Direction{query.Asc, query.Desc} {
			q := query.New(0)
			q.SetSort(&query.SortConfig{Field: f, Direction: dir})
			sqlMatchesMemory(t, db, q, fmt.Sprintf("sort %s %s", f.Key(), dir))
		}
	}
}

func TestDateRangeFilter(t *testing.T) {
	db := createTestDB(t)

	for i, ts := range []string{
		"2021-07-25T23:59:59Z",
		"2021-07-26T00:00:00Z",
		"2021-08-25T23:59:59Z",
		"2021-08-26T00:00:00Z",
		"not a time",
	} {
		e := sampleEvent(fmt.Sprintf("evt-%d", i))
		e.Timestamp = ts
		insertAll(t, db, e)
	}

	where, args := query.DateRange(model.DefaultDateRange(time.UTC), time.UTC).WhereClauseFor(db.Dialect())
	count, err := db.CountEvents(where, args)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 events in range, got %d", count)
	}
}

func TestGetMinMaxTimestamp(t *testing.T) {
	db := createTestDB(t)

	minTS, maxTS, err := db.GetMinMaxTimestamp()
	if err != nil {
		t.Fatalf("GetMinMaxTimestamp on empty db failed: %v", err)
	}
	if minTS != "" || maxTS != "" {
		t.Errorf("expected empty bounds, got %q %q", minTS, maxTS)
	}

	for i, ts := range []string{"2021-08-01T10:00:00+02:00", "2021-07-30T00:00:00Z", "garbage", "2021-08-20T00:00:00Z"} {
		e := sampleEvent(fmt.Sprintf("evt-%d", i))
		e.Timestamp = ts
		insertAll(t, db, e)
	}

	minTS, maxTS, err = db.GetMinMaxTimestamp()
	if err != nil {
		t.Fatalf("GetMinMaxTimestamp failed: %v", err)
	}
	if minTS != "2021-07-30T00:00:00Z" {
		t.Errorf("expected min '2021-07-30T00:00:00Z', got '%s'", minTS)
	}
	if maxTS != "2021-08-20T00:00:00Z" {
		t.Errorf("expected max '2021-08-20T00:00:00Z', got '%s'", maxTS)
	}
}

func TestGetDistinctValues(t *testing.T) {
	db := createTestDB(t)

	for i, sev := range []string{"high", "low", "medium", "high", "high", "low"} {
		e := sampleEvent(fmt.Sprintf("evt-%d", i))
		e.Severity = sev
		insertAll(t, db, e)
	}
	absent := sampleEvent("evt-absent")
	absent.Missing = absent.Missing.With(model.FieldSeverity)
	insertAll(t, db, absent)

	vals, err := db.GetDistinctValues(model.FieldSeverity)
	if err != nil {
		t.Fatalf("GetDistinctValues failed: %v", err)
	}

	if vals["high"] != 3 {
		t.Errorf("expected high count 3, got %d", vals["high"])
	}
	if vals["low"] != 2 {
		t.Errorf("expected low count 2, got %d", vals["low"])
	}
	if len(vals) != 3 {
		t.Errorf("expected 3 distinct values, got %v", vals)
	}

	ports, err := db.GetDistinctValues(model.FieldDecoyPort)
	if err != nil {
		t.Fatalf("GetDistinctValues on number failed: %v", err)
	}
	if ports["22"] != 7 {
		t.Errorf("expected port 22 count 7, got %v", ports)
	}
}

func TestGetDistinctValuesInvalidField(t *testing.T) {
	db := createTestDB(t)

	_, err := db.GetDistinctValues(model.Field(99))
	if err == nil {
		t.Fatal("expected error for invalid field, got nil")
	}
}

func TestGetHourlyHistogram(t *testing.T) {
	db := createTestDB(t)

	for i, ts := range []string{"2021-08-01T10:15:00Z", "2021-08-01T10:45:00Z", "2021-08-01T11:05:00Z", "bad"} {
		e := sampleEvent(fmt.Sprintf("evt-%d", i))
		e.Timestamp = ts
		insertAll(t, db, e)
	}

	buckets, err := db.GetHourlyHistogram("", nil, 0)
	if err != nil {
		t.Fatalf("GetHourlyHistogram failed: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d: %v", len(buckets), buckets)
	}
	ten := time.Date(2021, 8, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	if buckets[0].Hour != ten || buckets[0].Count != 2 {
		t.Errorf("expected (%d, 2), got %+v", ten, buckets[0])
	}
	if buckets[1].Count != 1 {
		t.Errorf("expected second bucket count 1, got %d", buckets[1].Count)
	}

	// In a +05:30 zone 10:15Z is 15:45 while 10:45Z and 11:05Z share 16:00.
	ist := int64((5*time.Hour + 30*time.Minute) / time.Millisecond)
	buckets, err = db.GetHourlyHistogram("type = ?", []interface{}{"Probe-Scan"}, ist)
	if err != nil {
		t.Fatalf("GetHourlyHistogram with offset failed: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 local-hour buckets, got %d: %v", len(buckets), buckets)
	}
	if buckets[0].Count != 1 || buckets[1].Count != 2 {
		t.Errorf("expected counts 1 and 2 (15:00 and 16:00 IST), got %v", buckets)
	}
}

func TestMigrateBackfillsEpoch(t *testing.T) {
	path := tempDBPath(t)
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	legacy := strings.Replace((&SQLiteDialect{}).CreateTableSQL(), ",\n\t\tts_epoch INTEGER", "", 1)
	if _, err := conn.Exec(legacy); err != nil {
		t.Fatalf("creating legacy table: %v", err)
	}
	if _, err := conn.Exec("INSERT INTO honeypot_events (id, timestamp) VALUES ('a', '2021-08-01T10:00:00Z')"); err != nil {
		t.Fatalf("inserting legacy row: %v", err)
	}
	conn.Close()

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	var epoch int64
	if err := db.conn.QueryRow("SELECT ts_epoch FROM honeypot_events WHERE id = 'a'").Scan(&epoch); err != nil {
		t.Fatalf("reading ts_epoch: %v", err)
	}
	if want := time.Date(2021, 8, 1, 10, 0, 0, 0, time.UTC).UnixMilli(); epoch != want {
		t.Errorf("expected ts_epoch %d, got %d", want, epoch)
	}
}

func TestRebuildIndexes(t *testing.T) {
	db := createTestDB(t)

	err := db.RebuildIndexes([]model.Field{model.FieldDecoyName, model.FieldTimestamp})
	if err != nil {
		t.Fatalf("RebuildIndexes failed: %v", err)
	}

	rows, err := db.conn.Query("SELECT name FROM sqlite_master WHERE type='index' AND name LIKE '%_idx'")
	if err != nil {
		t.Fatalf("querying indexes failed: %v", err)
	}
	defer rows.Close()

	indexes := make(map[string]bool)
	for rows.Next() {
		var name string
		rows.Scan(&name)
		indexes[name] = true
	}

	if !indexes["decoy_name_idx"] {
		t.Error("expected decoy_name_idx to exist")
	}
	if !indexes["ts_epoch_idx"] {
		t.Error("expected ts_epoch_idx to exist")
	}
	if indexes["severity_idx"] {
		t.Error("expected severity_idx to be dropped")
	}
}

func TestFactoryRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenStore("mysql", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
	if _, err := CreateStore("mysql", "x", nil); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestFactoryCreatesSQLite(t *testing.T) {
	s, err := CreateStore("sqlite", tempDBPath(t), nil)
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	defer s.Close()
	if _, ok := s.Dialect().(*SQLiteDialect); !ok {
		t.Errorf("expected SQLite dialect, got %T", s.Dialect())
	}
}
