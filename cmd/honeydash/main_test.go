package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsJSON = `[
	{"id":"a","type":"probe","timestamp":"2021-08-01T10:15:00Z","attacker.ip":"10.0.0.1"},
	{"id":"b","type":"login","timestamp":"2021-08-01T10:45:00Z","attacker.ip":"10.0.0.2"},
	{"id":"c","type":"probe","timestamp":"2021-08-03T08:00:00Z","attacker.ip":"10.0.0.1"},
	{"id":"d","type":"probe","timestamp":"2021-09-01T00:00:00Z"}
]`

func writeEvents(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Data.json")
	require.NoError(t, os.WriteFile(path, []byte(eventsJSON), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error", "--timezone", "UTC"))
	err := root.Execute()
	return out.String(), err
}

func TestImport(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	out, err := run(t, "import", writeEvents(t), "--dsn", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "Imported 4 events into "+dbPath+" (0 excluded)\n"+
		"Database holds 4 events from 2021-08-01T10:15:00Z to 2021-09-01T00:00:00Z\n", out)

	// Re-importing the same ids replaces rows rather than duplicating them.
	out, err = run(t, "import", writeEvents(t), "--dsn", dbPath, "--index", "type,attacker.ip")
	require.NoError(t, err)
	assert.Contains(t, out, "Database holds 4 events from")

	out, err = run(t, "export", "--source", "sqlite", "--dsn", dbPath, "--cols", "type", "--sort", "timestamp", "--dir", "desc")
	require.NoError(t, err)
	assert.Equal(t, "Type\nprobe\nprobe\nlogin\nprobe\n", out)
}

func TestImportErrors(t *testing.T) {
	_, err := run(t, "import", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = run(t, "import", writeEvents(t), "--index", "nope")
	assert.ErrorContains(t, err, `unknown column "nope"`)

	_, err = run(t, "import")
	assert.Error(t, err)
}

func TestSeriesFromFile(t *testing.T) {
	out, err := run(t, "series", "--path", writeEvents(t), "--start", "2021-08-01", "--end", "2021-08-03")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"2021-08-01", "10:00", "2"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"2021-08-03", "08:00", "1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"total", "3"}, strings.Fields(lines[2]))
}

func TestSeriesFromDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	_, err := run(t, "import", writeEvents(t), "--dsn", dbPath)
	require.NoError(t, err)

	out, err := run(t, "series", "--source", "sqlite", "--dsn", dbPath, "--start", "2021-08-01", "--end", "2021-08-31", "--json")
	require.NoError(t, err)

	var points [][2]int64
	require.NoError(t, json.Unmarshal([]byte(out), &points))
	assert.Equal(t, [][2]int64{
		{time.Date(2021, 8, 1, 10, 0, 0, 0, time.UTC).UnixMilli(), 2},
		{time.Date(2021, 8, 3, 8, 0, 0, 0, time.UTC).UnixMilli(), 1},
	}, points)
}

func TestSeriesInvertedRange(t *testing.T) {
	out, err := run(t, "series", "--path", writeEvents(t), "--start", "2021-08-05", "--end", "2021-08-01", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestExportFromFile(t *testing.T) {
	out, err := run(t, "export", "--path", writeEvents(t),
		"--cols", "attacker.ip,timestamp", "--filter", "type=PRO", "--sort", "attacker.ip", "--dir", "desc")
	require.NoError(t, err)
	assert.Equal(t, "Timestamp,Attacker IP\n"+
		"2021-08-01T10:15:00Z,10.0.0.1\n"+
		"2021-08-03T08:00:00Z,10.0.0.1\n"+
		"2021-09-01T00:00:00Z,\n", out, "columns keep display order; missing values sort last")
}

func TestExportFromDatabaseMatchesMemory(t *testing.T) {
	file := writeEvents(t)
	dbPath := filepath.Join(t.TempDir(), "events.db")
	_, err := run(t, "import", file, "--dsn", dbPath)
	require.NoError(t, err)

	args := []string{"--cols", "timestamp,attacker.ip", "--filter", "attacker.ip=10.0", "--sort", "timestamp", "--dir", "desc"}
	fromFile, err := run(t, append([]string{"export", "--path", file}, args...)...)
	require.NoError(t, err)
	fromDB, err := run(t, append([]string{"export", "--source", "sqlite", "--dsn", dbPath}, args...)...)
	require.NoError(t, err)

	assert.Equal(t, "Timestamp,Attacker IP\n"+
		"2021-08-03T08:00:00Z,10.0.0.1\n"+
		"2021-08-01T10:45:00Z,10.0.0.2\n"+
		"2021-08-01T10:15:00Z,10.0.0.1\n", fromFile)
	assert.Equal(t, fromFile, fromDB)
}

func TestExportToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	out, err := run(t, "export", "--path", writeEvents(t), "--cols", "type", "--out", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Type\nprobe\nlogin\nprobe\nprobe\n", string(data))
}

func TestExportRejectsUnknownColumns(t *testing.T) {
	for _, args := range [][]string{
		{"--cols", "type,bogus"},
		{"--sort", "bogus"},
		{"--filter", "bogus=x"},
	} {
		_, err := run(t, append([]string{"export", "--path", writeEvents(t)}, args...)...)
		assert.ErrorContains(t, err, `unknown column "bogus"`, args)
	}

	_, err := run(t, "export", "--path", writeEvents(t), "--cols", "id")
	assert.ErrorContains(t, err, `unknown column "id"`, "the event id is not a table column")
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("HONEYDASH_SOURCE_KIND", "http")
	t.Setenv("HONEYDASH_SOURCE_URL", "http://127.0.0.1:1/unused")

	_, err := run(t, "series", "--source", "file", "--path", writeEvents(t))
	assert.NoError(t, err)
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := run(t, "series", "--source", "carrier-pigeon")
	assert.ErrorContains(t, err, "source.kind")
}

func indexNames(t *testing.T, dbPath string) []string {
	t.Helper()
	conn, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer conn.Close()
	rows, err := conn.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE '%_idx' ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestImportReindex(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	_, err := run(t, "import", writeEvents(t), "--dsn", dbPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"attacker_ip_idx", "severity_idx", "ts_epoch_idx", "type_idx"}, indexNames(t, dbPath))

	_, err = run(t, "import", writeEvents(t), "--dsn", dbPath, "--index", "decoy.name")
	require.NoError(t, err)
	assert.Contains(t, indexNames(t, dbPath), "decoy_name_idx")
	assert.Contains(t, indexNames(t, dbPath), "type_idx", "without --reindex indexes are only added")

	_, err = run(t, "import", writeEvents(t), "--dsn", dbPath, "--index", "decoy.name", "--reindex")
	require.NoError(t, err)
	assert.Equal(t, []string{"decoy_name_idx"}, indexNames(t, dbPath))
}

func TestExportCount(t *testing.T) {
	file := writeEvents(t)
	dbPath := filepath.Join(t.TempDir(), "events.db")
	_, err := run(t, "import", file, "--dsn", dbPath)
	require.NoError(t, err)

	out, err := run(t, "export", "--path", file, "--count", "--filter", "type=probe")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = run(t, "export", "--source", "sqlite", "--dsn", dbPath, "--count", "--filter", "type=probe", "--filter", "attacker.ip=.1")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestValues(t *testing.T) {
	file := writeEvents(t)
	out, err := run(t, "values", "type", "--path", file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"probe", "3"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"login", "1"}, strings.Fields(lines[1]))

	dbPath := filepath.Join(t.TempDir(), "events.db")
	_, err = run(t, "import", file, "--dsn", dbPath)
	require.NoError(t, err)

	fromFile, err := run(t, "values", "attacker.ip", "--path", file)
	require.NoError(t, err)
	fromDB, err := run(t, "values", "attacker.ip", "--source", "sqlite", "--dsn", dbPath)
	require.NoError(t, err)
	assert.Equal(t, fromFile, fromDB)
	assert.Equal(t, 2, strings.Count(fromDB, "\n"), "the event without an attacker ip is not counted")

	out, err = run(t, "values", "type", "--path", file, "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	_, err = run(t, "values", "bogus", "--path", file)
	assert.ErrorContains(t, err, `unknown column "bogus"`)
}
