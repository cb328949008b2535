package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/csvparser"
	"github.com/cdtdelta/honeydash/internal/model"
)

// FileSource reads events from a local JSON, JSON lines, or CSV file.
// The format is chosen by extension; anything other than .csv is JSON.
type FileSource struct {
	path string
	log  *zap.Logger
}

// NewFile returns a source reading path.
func NewFile(path string, log *zap.Logger) *FileSource {
	return &FileSource{path: path, log: log}
}

func (s *FileSource) String() string { return "file:" + s.path }

// IsCSV reports whether path is read as CSV.
func IsCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// Fetch reads the whole file.
func (s *FileSource) Fetch(ctx context.Context) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, loadFailure(err, "reading %s", s.path)
	}

	events, excluded, err := ReadFile(s.path, nil)
	if err != nil {
		return nil, loadFailure(err, "reading %s", s.path)
	}
	if excluded > 0 {
		s.log.Warn("skipped unusable records", zap.String("path", s.path), zap.Int("excluded", excluded))
	}
	return events, nil
}

// ReadFile parses a JSON, JSON lines, or CSV file. It returns the events
// and the number of records that were skipped as unusable.
// An onProgress callback is called every 10,000 events for CSV input if non-nil.
func ReadFile(path string, onProgress func(count int)) ([]model.Event, int, error) {
	if IsCSV(path) {
		result, err := csvparser.ReadFile(path, onProgress)
		if err != nil {
			return nil, 0, err
		}
		return result.Events, result.Excluded, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	result, err := decodeEvents(f)
	if err != nil {
		return nil, 0, err
	}
	if onProgress != nil && len(result.Events) > 0 {
		onProgress(len(result.Events))
	}
	return result.Events, result.Excluded, nil
}
