package main

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/database"
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/source"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		index   []string
		reindex bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON, JSON lines, or CSV event file into the database",
		Long: `Import reads events from a JSON array, JSON lines, or CSV file and writes
them to the configured database, creating the schema when needed. Events that
already exist (same id) are replaced. --index adds indexes; with --reindex the
indexes are rebuilt so that only the listed columns (or the defaults) keep one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			fields, err := parseFields(index)
			if err != nil {
				return err
			}
			return a.importFile(args[0], fields, reindex)
		},
	}
	cmd.Flags().StringSliceVar(&index, "index", nil, "columns to index (default timestamp,type,severity,attacker.ip)")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "drop indexes on columns not named by --index")
	return cmd
}

func (a *app) importFile(path string, index []model.Field, reindex bool) error {
	start := time.Now()
	log := a.log.With(zap.String("file", path))

	events, excluded, err := source.ReadFile(path, func(n int) {
		log.Info("Parsing", zap.Int("rows", n))
	})
	if err != nil {
		return err
	}
	if excluded > 0 {
		log.Warn("Skipped unreadable records", zap.Int("excluded", excluded))
	}

	driver, dsn := a.cfg.Database.Driver, a.cfg.Database.DSN
	db, err := database.CreateStore(driver, dsn, index)
	if err != nil {
		return errors.Wrapf(err, "opening %s database", driver)
	}
	defer db.Close()

	n, err := db.InsertEvents(events, func(done int) {
		log.Info("Inserting", zap.Int("done", done), zap.Int("total", len(events)))
	})
	if err != nil {
		return errors.Wrap(err, "inserting events")
	}

	if reindex {
		if index == nil {
			index = database.DefaultIndexFields
		}
		if err := db.RebuildIndexes(index); err != nil {
			return errors.Wrap(err, "rebuilding indexes")
		}
		log.Info("Rebuilt indexes", zap.Int("columns", len(index)))
	}

	log.Info("Import complete",
		zap.Int("inserted", n),
		zap.Int("excluded", excluded),
		zap.Duration("duration", time.Since(start)))
	// Connection strings may carry credentials; only sqlite paths are shown.
	target := driver
	if driver == "sqlite" {
		target = db.Path()
	}
	fmt.Fprintf(a.out, "Imported %s events into %s (%s excluded)\n",
		humanize.Comma(int64(n)), target, humanize.Comma(int64(excluded)))
	return a.printHoldings(db)
}

// printHoldings reports how many events the database now holds and the time
// they span.
func (a *app) printHoldings(db database.Store) error {
	total, err := db.CountEvents("", nil)
	if err != nil {
		return errors.Wrap(err, "counting events")
	}
	first, last, err := db.GetMinMaxTimestamp()
	if err != nil {
		return errors.Wrap(err, "reading time span")
	}
	fmt.Fprintf(a.out, "Database holds %s events", humanize.Comma(total))
	if first != "" {
		fmt.Fprintf(a.out, " from %s to %s", first, last)
	}
	fmt.Fprintln(a.out)
	return nil
}

// parseFields resolves column keys. An empty list yields nil, which selects
// the default set.
func parseFields(keys []string) ([]model.Field, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	fields := make([]model.Field, 0, len(keys))
	for _, k := range keys {
		f, ok := model.ParseField(k)
		if !ok {
			return nil, errors.Newf("unknown column %q", k)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
