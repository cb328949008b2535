package dashboard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cdtdelta/honeydash/internal/config"
)

func TestNewLoadsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"1","type":"probe","timestamp":"2021-08-01T10:15:00Z"},
		{"id":"2","type":"login","timestamp":"2021-08-20T03:00:00Z"}
	]`), 0o644))

	cfg := config.Default()
	cfg.Source.Path = path
	cfg.Timezone = "UTC"
	cfg.Range.Start = "2021-08-10"
	require.NoError(t, cfg.Validate())

	srv, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, srv.Reload(context.Background()))

	snap, view := srv.Graph()
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, time.Date(2021, 8, 10, 0, 0, 0, 0, time.UTC), snap.Range.Start)
	assert.Equal(t, 1, view.Summary.Total)
	assert.Equal(t, "file:"+path, snap.Source)
}

func TestNewRejectsBadTimezone(t *testing.T) {
	cfg := config.Default()
	cfg.Timezone = "Mars/Olympus"

	_, err := New(cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNewRejectsIncompleteSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source.Kind = "opensearch"

	_, err := New(cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
