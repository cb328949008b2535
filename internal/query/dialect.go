package query

// QueryDialect is the part of a database dialect that predicate and query
// rendering needs. database.Dialect satisfies it.
type QueryDialect interface {
	// Placeholder renders bind parameter number index, counting from 1.
	Placeholder(index int) string

	// DateBetweenSQL returns the SQL fragment for an epoch-millisecond range
	// filter on the timestamp column, given the two rendered placeholders.
	DateBetweenSQL(from, to string) string

	// QuoteColumn quotes name where the backend reserves it.
	QuoteColumn(name string) string

	// BinaryCollate makes a text expression sort by bytes.
	BinaryCollate(expr string) string
}

// TimestampColumn holds the parsed event instant in epoch milliseconds.
// The raw timestamp text is kept in the "timestamp" column.
const TimestampColumn = "ts_epoch"
