// Package dashboard assembles the event source, store, and web server from
// settings. Both the CLI and the desktop window start from here.
package dashboard

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/config"
	"github.com/cdtdelta/honeydash/internal/source"
	"github.com/cdtdelta/honeydash/internal/store"
	"github.com/cdtdelta/honeydash/internal/web"
)

// Version is the application version, overridden at link time.
var Version = "0.1.0"

// New builds a web server over an empty store. Nothing is loaded yet; call
// Reload or ReloadAsync on the result.
func New(cfg *config.Config, log *zap.Logger) (*web.Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	dates, err := cfg.DateRange(loc)
	if err != nil {
		return nil, err
	}
	src, err := source.New(cfg.SourceConfig(log))
	if err != nil {
		return nil, errors.Wrap(err, "event source")
	}

	log.Info("Dashboard configured",
		zap.String("version", Version),
		zap.Stringer("source", src),
		zap.String("timezone", loc.String()),
		zap.Stringer("range", dates))

	st := store.New(loc, store.WithLogger(log), store.WithDateRange(dates))
	return web.New(st, src,
		web.WithLogger(log),
		web.WithLocation(loc),
		web.WithPageSize(cfg.Table.PageSize),
		web.WithDateBounds(dates),
	), nil
}
