package csvparser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cdtdelta/honeydash/internal/model"
)

// ReadResult contains the outcome of a CSV import operation.
type ReadResult struct {
	Events   []model.Event
	Count    int
	Excluded int
}

// fieldAliases maps lower-cased header names to event fields. Every field's
// dotted key, column name, and label are accepted as well (see init).
var fieldAliases = map[string]model.Field{
	"event_id":       model.FieldID,
	"event_type":     model.FieldType,
	"level":          model.FieldSeverity,
	"phase":          model.FieldKillChainPhase,
	"killchainphase": model.FieldKillChainPhase,
	"time":           model.FieldTimestamp,
	"datetime":       model.FieldTimestamp,
	"@timestamp":     model.FieldTimestamp,
	"src_ip":         model.FieldAttackerIP,
	"source_ip":      model.FieldAttackerIP,
	"src_port":       model.FieldAttackerPort,
	"source_port":    model.FieldAttackerPort,
	"dst_ip":         model.FieldDecoyIP,
	"dest_ip":        model.FieldDecoyIP,
	"dst_port":       model.FieldDecoyPort,
	"dest_port":      model.FieldDecoyPort,
}

func init() {
	for _, f := range model.AllFields() {
		fieldAliases[f.Key()] = f
		fieldAliases[f.Column()] = f
		fieldAliases[strings.ToLower(f.Label())] = f
	}
}

// ReadFile reads all events from a CSV file. See ReadEvents.
func ReadFile(path string, onProgress func(count int)) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return ReadEvents(f, onProgress)
}

// ReadEvents reads events from CSV. The header row decides which column holds
// which field; unknown columns are ignored and fields without a column are
// missing. Empty cells are missing values. Rows whose numeric cells do not
// parse, and malformed rows, are excluded and counted. Any other read error
// aborts the import.
// An onProgress callback is called every 10,000 events if non-nil.
func ReadEvents(r io.Reader, onProgress func(count int)) (*ReadResult, error) {
	reader := newReader(r)
	reader.FieldsPerRecord = -1 // allow variable field counts

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	colMap := buildColumnMap(header)
	if len(colMap) == 0 {
		return nil, fmt.Errorf("no recognized event fields in header (found: %s)", strings.Join(header, ", "))
	}

	result := &ReadResult{Events: []model.Event{}}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			result.Excluded++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", result.Count+result.Excluded+1, err)
		}

		event, err := rowToEvent(row, colMap)
		if err != nil {
			result.Excluded++
			continue
		}
		result.Events = append(result.Events, event)
		result.Count++

		if onProgress != nil && result.Count%10000 == 0 {
			onProgress(result.Count)
		}
	}

	return result, nil
}

// WriteEvents writes events as CSV with a header row of column labels.
// Values are written raw (timestamps as stored); missing values are empty.
func WriteEvents(w io.Writer, columns []model.Field, events []model.Event) error {
	writer := csv.NewWriter(w)

	header := make([]string, len(columns))
	for i, f := range columns {
		header[i] = f.Label()
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(columns))
	for i := range events {
		for j, f := range columns {
			row[j] = events[i].Value(f).String()
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile writes events to a CSV file. See WriteEvents.
func WriteFile(path string, columns []model.Field, events []model.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := WriteEvents(f, columns, events); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(newNullStripper(r))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

// columnMapping maps a column index to an event field.
type columnMapping struct {
	index int
	field model.Field
}

// buildColumnMap creates a mapping from column indices to fields.
func buildColumnMap(header []string) []columnMapping {
	var mappings []columnMapping
	seen := make(map[model.Field]bool)

	for i, col := range header {
		col = strings.TrimSpace(strings.ToLower(strings.TrimPrefix(col, "\ufeff")))
		if f, ok := fieldAliases[col]; ok {
			// Avoid duplicate mappings (first one wins)
			if !seen[f] {
				seen[f] = true
				mappings = append(mappings, columnMapping{index: i, field: f})
			}
		}
	}

	return mappings
}

// rowToEvent converts a CSV row to an Event using the column mapping.
func rowToEvent(row []string, colMap []columnMapping) (model.Event, error) {
	var e model.Event
	for _, f := range model.AllFields() {
		e.Missing = e.Missing.With(f)
	}

	for _, cm := range colMap {
		val := strings.TrimSpace(safeIndex(row, cm.index))
		if val == "" {
			continue
		}
		if err := e.SetText(cm.field, val); err != nil {
			return model.Event{}, err
		}
	}
	return e, nil
}

// safeIndex returns the value at index i, or empty string if out of bounds.
func safeIndex(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// nullStripper wraps a reader and strips null bytes from the stream,
// which would otherwise make csv.Reader fail.
type nullStripper struct {
	r io.Reader
}

func newNullStripper(r io.Reader) io.Reader {
	return &nullStripper{r: r}
}

func (ns *nullStripper) Read(p []byte) (int, error) {
	n, err := ns.r.Read(p)
	if n > 0 {
		// Replace null bytes in place
		cleaned := strings.ReplaceAll(string(p[:n]), "\x00", "")
		copy(p, cleaned)
		n = len(cleaned)
	}
	return n, err
}
