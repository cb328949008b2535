package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/database"
	"github.com/cdtdelta/honeydash/internal/model"
)

// DatabaseSource reads every stored event from a database written by the
// import command.
type DatabaseSource struct {
	driver string
	dsn    string
	log    *zap.Logger
}

// NewDatabase returns a source reading from the given driver and DSN.
func NewDatabase(driver, dsn string, log *zap.Logger) *DatabaseSource {
	return &DatabaseSource{driver: driver, dsn: dsn, log: log}
}

func (s *DatabaseSource) String() string { return s.driver + ":" + redact(s.dsn) }

// Fetch opens the database, reads all events in timestamp order and closes it.
func (s *DatabaseSource) Fetch(ctx context.Context) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, loadFailure(err, "opening %s", s)
	}

	store, err := database.OpenStore(s.driver, s.dsn)
	if err != nil {
		return nil, loadFailure(err, "opening %s", s)
	}
	defer store.Close()

	events, err := store.AllEvents()
	if err != nil {
		return nil, loadFailure(err, "reading %s", s)
	}
	s.log.Debug("read events from database", zap.String("driver", s.driver), zap.Int("count", len(events)))
	return events, nil
}
