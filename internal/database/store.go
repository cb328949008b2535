package database

import (
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/query"
)

// TableName is the event table.
const TableName = "honeypot_events"

// EpochColumn holds the parsed timestamp in epoch milliseconds; NULL when the
// timestamp is absent or unparseable.
const EpochColumn = query.TimestampColumn

// HourBucket is one row of the SQL-side hourly histogram.
type HourBucket struct {
	Hour  int64 `json:"hour"` // epoch milliseconds of the hour start
	Count int64 `json:"count"`
}

// Store defines the interface for all database operations.
// Every method that the application needs is captured here so that callers
// depend on the interface, not on a concrete database type.
type Store interface {
	// Event writes. Events without an id are assigned a random UUID.
	InsertEvents(events []model.Event, onProgress func(int)) (int, error)

	// Event reads. where is a fragment without the WHERE keyword.
	QueryEvents(where string, args []interface{}, orderBy string, limit, offset int) ([]model.Event, error)
	CountEvents(where string, args []interface{}) (int64, error)
	AllEvents() ([]model.Event, error)

	// Query execution for pre-built SQL from query.Query.Build with
	// SelectColumns as the select list.
	ExecuteQuery(sql string, args []interface{}) ([]model.Event, error)
	ExecuteCountQuery(sql string, args []interface{}) (int64, error)

	// Metadata
	GetDistinctValues(field model.Field) (map[string]int64, error)
	GetMinMaxTimestamp() (string, string, error)
	GetHourlyHistogram(where string, args []interface{}, offsetMillis int64) ([]HourBucket, error)

	// Schema and maintenance
	RebuildIndexes(fields []model.Field) error
	Migrate() error

	// Lifecycle
	Dialect() Dialect
	Close() error
	Path() string
}
