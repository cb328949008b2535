package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cdtdelta/honeydash/internal/model"
)

type fetchFunc func(ctx context.Context) ([]model.Event, error)

func (f fetchFunc) Fetch(ctx context.Context) ([]model.Event, error) { return f(ctx) }

func static(events ...model.Event) Fetcher {
	return fetchFunc(func(context.Context) ([]model.Event, error) { return events, nil })
}

func failing(msg string) Fetcher {
	return fetchFunc(func(context.Context) ([]model.Event, error) { return nil, errors.New(msg) })
}

// gated blocks until release is closed, then returns its events.
type gated struct {
	started chan struct{}
	release chan struct{}
	events  []model.Event
}

func newGated(events ...model.Event) *gated {
	return &gated{started: make(chan struct{}), release: make(chan struct{}), events: events}
}

func (g *gated) Fetch(ctx context.Context) ([]model.Event, error) {
	close(g.started)
	<-g.release
	return g.events, nil
}

func newStore(t *testing.T) *Store {
	return New(time.UTC, WithLogger(zaptest.NewLogger(t)))
}

func TestNewStoreDefaults(t *testing.T) {
	s := newStore(t)
	snap := s.Snapshot()

	assert.Empty(t, snap.Events)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.Loaded())
	assert.Equal(t, model.DefaultDateRange(time.UTC), snap.Range)
}

func TestLoadSuccess(t *testing.T) {
	s := newStore(t)
	err := s.Load(context.Background(), static(model.Event{ID: "a"}, model.Event{ID: "b"}))
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Len(t, snap.Events, 2)
	assert.Equal(t, 2, snap.Count)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, uint64(1), snap.Version)
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestLoadFailureKeepsEvents(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Load(context.Background(), static(model.Event{ID: "a"})))

	err := s.Load(context.Background(), failing("connection refused"))
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "failed to load events: connection refused", snap.Error)
	assert.False(t, snap.Loading)
	assert.Len(t, snap.Events, 1, "previous collection is kept")
	assert.Equal(t, uint64(1), snap.Version)
}

func TestLoadFailureOnFirstLoadLeavesEmpty(t *testing.T) {
	s := newStore(t)
	require.Error(t, s.Load(context.Background(), failing("404")))

	snap := s.Snapshot()
	assert.Empty(t, snap.Events)
	assert.NotEmpty(t, snap.Error)
}

func TestReloadClearsError(t *testing.T) {
	s := newStore(t)
	require.Error(t, s.Load(context.Background(), failing("boom")))
	require.NoError(t, s.Load(context.Background(), static(model.Event{ID: "a"})))
	assert.Empty(t, s.Snapshot().Error)
}

func TestLoadingFlagWhilePending(t *testing.T) {
	s := newStore(t)
	g := newGated(model.Event{ID: "a"})

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background(), g) }()

	<-g.started
	assert.True(t, s.Snapshot().Loading)

	close(g.release)
	require.NoError(t, <-done)
	assert.False(t, s.Snapshot().Loading)
}

func TestLastInvokedLoadWins(t *testing.T) {
	s := newStore(t)
	first := newGated(model.Event{ID: "old"})
	second := newGated(model.Event{ID: "new1"}, model.Event{ID: "new2"})

	errs := make(chan error, 2)
	go func() { errs <- s.Load(context.Background(), first) }()
	<-first.started
	go func() { errs <- s.Load(context.Background(), second) }()
	<-second.started

	close(second.release)
	require.NoError(t, <-errs)
	close(first.release)
	assert.ErrorIs(t, <-errs, ErrSuperseded)

	snap := s.Snapshot()
	require.Len(t, snap.Events, 2)
	assert.Equal(t, "new1", snap.Events[0].ID)
	assert.False(t, snap.Loading)
}

func TestSettersAreUnconditional(t *testing.T) {
	s := newStore(t)
	later := time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)

	s.SetStartDate(later)
	s.SetEndDate(earlier)

	r := s.Snapshot().Range
	assert.Equal(t, later, r.Start)
	assert.Equal(t, earlier, r.End)
	assert.True(t, r.Inverted(time.UTC))
}

func TestSetDateRange(t *testing.T) {
	s := newStore(t)
	r := model.DateRange{
		Start: time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 8, 2, 0, 0, 0, 0, time.UTC),
	}
	s.SetDateRange(r)
	assert.Equal(t, r, s.Snapshot().Range)
}

func TestDispatch(t *testing.T) {
	s := newStore(t)
	d := time.Date(2021, 8, 3, 0, 0, 0, 0, time.UTC)

	snap, err := s.Dispatch(SetStartDate{Date: d})
	require.NoError(t, err)
	assert.Equal(t, d, snap.Range.Start)
	assert.Equal(t, model.DefaultDateRange(time.UTC).End, snap.Range.End)

	snap, err = s.Dispatch(SetEndDate{Date: d})
	require.NoError(t, err)
	assert.Equal(t, d, snap.Range.End)

	_, err = s.Dispatch(nil)
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("SetDateRange", "2021-08-01", "2021-08-05", time.UTC)
	require.NoError(t, err)
	rc, ok := cmd.(SetDateRange)
	require.True(t, ok)
	assert.Equal(t, time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC), rc.Range.Start)
	assert.Equal(t, time.Date(2021, 8, 5, 0, 0, 0, 0, time.UTC), rc.Range.End)

	cmd, err = ParseCommand("SetEndDate", "", "2021-08-09", time.UTC)
	require.NoError(t, err)
	assert.IsType(t, SetEndDate{}, cmd)

	_, err = ParseCommand("SetStartDate", "yesterday", "", time.UTC)
	assert.ErrorContains(t, err, "start")

	_, err = ParseCommand("Swap", "", "", time.UTC)
	assert.ErrorContains(t, err, "unknown command")
}

func TestConcurrentReadsDuringUpdates(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Load(context.Background(), static(model.Event{ID: "a"})))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.SetStartDate(time.Date(2021, 8, i+1, 0, 0, 0, 0, time.UTC))
		}(i)
		go func() {
			defer wg.Done()
			assert.Len(t, s.Snapshot().Events, 1)
		}()
	}
	wg.Wait()
}
