// Package store holds the loaded event collection and the active date range.
// All mutation goes through Load and the command methods; readers take an
// immutable Snapshot.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/model"
)

// Fetcher produces the full event collection. Implemented by source.Source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Event, error)
}

// ErrSuperseded is returned by Load when a later Load started before this
// one finished. Its result was discarded.
var ErrSuperseded = errors.New("load superseded by a newer load")

// Snapshot is a read-only view of the store. Events is shared with the store
// and must not be modified; the store replaces the slice, never its elements.
type Snapshot struct {
	Events   []model.Event   `json:"-"`
	Count    int             `json:"count"`
	Range    model.DateRange `json:"range"`
	Loading  bool            `json:"loading"`
	Error    string          `json:"error,omitempty"`
	Version  uint64          `json:"version"`
	LoadedAt time.Time       `json:"loadedAt"`
	Source   string          `json:"source,omitempty"`
}

// Loaded reports whether at least one load has succeeded.
func (s Snapshot) Loaded() bool { return s.Version > 0 }

// Store is the owned state object behind both views.
type Store struct {
	mu       sync.RWMutex
	events   []model.Event
	dates    model.DateRange
	loading  bool
	errMsg   string
	version  uint64
	gen      uint64
	loadedAt time.Time
	source   string

	log *zap.Logger
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l.Named("store") }
}

// WithDateRange overrides the initial date range.
func WithDateRange(r model.DateRange) Option {
	return func(s *Store) { s.dates = r }
}

// New returns an empty store with the default date range in loc.
func New(loc *time.Location, opts ...Option) *Store {
	s := &Store{
		dates:  model.DefaultDateRange(loc),
		events: []model.Event{},
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Events:   s.events,
		Count:    len(s.events),
		Range:    s.dates,
		Loading:  s.loading,
		Error:    s.errMsg,
		Version:  s.version,
		LoadedAt: s.loadedAt,
		Source:   s.source,
	}
}

// Load fetches the event collection from f and replaces the stored one.
// On failure the previous events are kept and the error message is recorded.
// When Load is invoked again before an earlier call returns, only the latest
// call's outcome is applied. There is no retry.
func (s *Store) Load(ctx context.Context, f Fetcher) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	name := describe(f)
	log := s.log.With(zap.Uint64("generation", gen), zap.String("source", name))
	log.Info("Loading events")
	start := s.now()

	events, err := f.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		log.Info("Discarding superseded load", zap.Uint64("current_generation", s.gen))
		return ErrSuperseded
	}
	s.loading = false

	if err != nil {
		err = errors.Wrap(err, "failed to load events")
		s.errMsg = err.Error()
		log.Error("Load failed", zap.Error(err))
		return err
	}

	if events == nil {
		events = []model.Event{}
	}
	s.events = events
	s.version++
	s.loadedAt = s.now()
	s.source = name
	log.Info("Loaded events",
		zap.Int("count", len(events)),
		zap.Duration("duration", s.loadedAt.Sub(start)),
		zap.Uint64("version", s.version))
	return nil
}

// SetStartDate replaces the start of the date range. No check against End.
func (s *Store) SetStartDate(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates.Start = t
	s.log.Debug("Start date set", zap.Time("start", t))
}

// SetEndDate replaces the end of the date range. No check against Start.
func (s *Store) SetEndDate(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates.End = t
	s.log.Debug("End date set", zap.Time("end", t))
}

// SetDateRange replaces both bounds at once.
func (s *Store) SetDateRange(r model.DateRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = r
	s.log.Debug("Date range set", zap.Stringer("range", r))
}

func describe(f Fetcher) string {
	if st, ok := f.(interface{ String() string }); ok {
		return st.String()
	}
	return "unknown"
}
