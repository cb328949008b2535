package main

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/cdtdelta/honeydash/internal/model"
)

func newValuesCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "values <column>",
		Short: "List the distinct values of a column with their event counts",
		Long: `Values counts the events holding each distinct value of a column, most
frequent first. Events missing the column are not counted. Database sources
are grouped in SQL; other sources are loaded and counted in memory.

  honeydash values attacker.ip --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := model.ParseField(args[0])
			if !ok {
				return errors.Newf("unknown column %q", args[0])
			}
			counts, err := a.distinctValues(cmd.Context(), f)
			if err != nil {
				return err
			}
			return a.printValues(counts, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many values (0 for all)")
	return cmd
}

func (a *app) distinctValues(ctx context.Context, f model.Field) (map[string]int64, error) {
	if a.fromDatabase() {
		db, err := a.openDatabase()
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.GetDistinctValues(f)
	}

	events, err := a.fetchEvents(ctx)
	if err != nil {
		return nil, err
	}
	present := lo.Filter(events, func(e model.Event, _ int) bool { return e.Has(f) })
	counts := lo.CountValuesBy(present, func(e model.Event) string { return e.Value(f).String() })
	return lo.MapValues(counts, func(n int, _ string) int64 { return int64(n) }), nil
}

func (a *app) printValues(counts map[string]int64, limit int) error {
	values := lo.Keys(counts)
	slices.SortFunc(values, func(x, y string) int {
		if c := cmp.Compare(counts[y], counts[x]); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	if limit > 0 && len(values) > limit {
		values = values[:limit]
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, v := range values {
		fmt.Fprintf(w, "%s\t%s\n", v, humanize.Comma(counts[v]))
	}
	return w.Flush()
}
