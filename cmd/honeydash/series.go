package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/database"
	"github.com/cdtdelta/honeydash/internal/derive"
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/query"
)

func newSeriesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Print hourly event counts for a date range",
		Long: `Series counts the events of each hour between --start and --end (inclusive
whole days in the configured timezone). Database sources are bucketed in SQL;
other sources are loaded and bucketed in memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			buckets, err := a.series(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(a.out).Encode(derive.Points(buckets))
			}
			return a.printBuckets(buckets)
		},
	}
	cmd.Flags().String("start", "", "first day, YYYY-MM-DD")
	cmd.Flags().String("end", "", "last day, YYYY-MM-DD")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print [[epochMillis, count], ...]")
	return cmd
}

func (a *app) series(ctx context.Context) ([]derive.Bucket, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	r, err := a.cfg.DateRange(loc)
	if err != nil {
		return nil, err
	}
	if r.Inverted(loc) {
		a.log.Warn("Start date is after end date", zap.Stringer("range", r))
		return []derive.Bucket{}, nil
	}

	if a.fromDatabase() {
		return a.seriesFromDatabase(r, loc)
	}

	events, err := a.fetchEvents(ctx)
	if err != nil {
		return nil, err
	}
	return derive.HourlyBuckets(derive.DateFilter(events, r, loc), loc), nil
}

// seriesFromDatabase buckets in SQL with the zone offset in effect at the
// start of the range.
func (a *app) seriesFromDatabase(r model.DateRange, loc *time.Location) ([]derive.Bucket, error) {
	db, err := a.openDatabase()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	where, args := query.DateRange(r, loc).WhereClauseFor(db.Dialect())
	_, offset := r.StartOfDay(loc).Zone()
	rows, err := db.GetHourlyHistogram(where, args, int64(offset)*1000)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(b database.HourBucket, _ int) derive.Bucket {
		return derive.Bucket{Hour: time.UnixMilli(b.Hour).In(loc), Count: int(b.Count)}
	}), nil
}

func (a *app) printBuckets(buckets []derive.Bucket) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	total := 0
	for _, b := range buckets {
		fmt.Fprintf(w, "%s\t%s\n", b.Hour.Format("2006-01-02 15:04"), humanize.Comma(int64(b.Count)))
		total += b.Count
	}
	fmt.Fprintf(w, "total\t%s\n", humanize.Comma(int64(total)))
	return w.Flush()
}
