package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/csvparser"
	"github.com/cdtdelta/honeydash/internal/database"
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/table"
)

type exportOptions struct {
	count   bool
	out     string
	columns []string
	sort    string
	dir     string
	filters map[string]string
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered and sorted event table as CSV",
		Long: `Export writes every row of a table view, not just one page, with the
visible columns in display order. Filters are case-insensitive substring
matches, as in the table view:

  honeydash export --cols timestamp,attacker.ip,type --filter type=probe --sort timestamp --dir desc

With --count only the number of matching rows is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.export(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.count, "count", false, "print the number of matching rows instead of the rows")
	f.StringVarP(&opts.out, "out", "o", "-", `output file, "-" for stdout`)
	f.StringSliceVar(&opts.columns, "cols", nil, "visible columns (default: the table's initial columns)")
	f.StringVar(&opts.sort, "sort", "", "column to sort by")
	f.StringVar(&opts.dir, "dir", "asc", "sort direction (asc, desc)")
	f.StringToStringVar(&opts.filters, "filter", nil, "column=text filters")
	return cmd
}

// state builds the table view state the options describe, through the same
// query-string form the web table uses.
func (o exportOptions) state() (*table.State, error) {
	v := url.Values{}
	if len(o.columns) > 0 {
		for _, k := range o.columns {
			if err := checkColumn(k); err != nil {
				return nil, err
			}
		}
		v.Set("cols", strings.Join(o.columns, ","))
	}
	if o.sort != "" {
		if err := checkColumn(o.sort); err != nil {
			return nil, err
		}
		v.Set("sort", o.sort)
		v.Set("dir", o.dir)
	}
	for k, text := range o.filters {
		if err := checkColumn(k); err != nil {
			return nil, err
		}
		v.Set("f."+k, text)
	}
	return table.Decode(v, 0), nil
}

func checkColumn(key string) error {
	f, ok := model.ParseField(key)
	if !ok || !table.IsColumn(f) {
		return errors.Newf("unknown column %q", key)
	}
	return nil
}

func (a *app) export(ctx context.Context, opts exportOptions) error {
	st, err := opts.state()
	if err != nil {
		return err
	}
	if opts.count {
		n, err := a.countRows(ctx, st)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, n)
		return nil
	}

	var events []model.Event
	if a.fromDatabase() {
		events, err = a.exportFromDatabase(st)
	} else {
		events, err = a.exportFromSource(ctx, st)
	}
	if err != nil {
		return err
	}

	var w io.Writer = a.out
	if opts.out != "-" {
		f, err := os.Create(opts.out)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		w = f
	}
	if err := csvparser.WriteEvents(w, st.Visible(), events); err != nil {
		return err
	}
	a.log.Info("Exported events", zap.Int("rows", len(events)), zap.String("out", opts.out))
	return nil
}

func (a *app) exportFromSource(ctx context.Context, st *table.State) ([]model.Event, error) {
	events, err := a.fetchEvents(ctx)
	if err != nil {
		return nil, err
	}
	return st.All(events), nil
}

// exportFromDatabase runs the filter and sort as SQL.
func (a *app) exportFromDatabase(st *table.State) ([]model.Event, error) {
	db, err := a.openDatabase()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	sqlStr, args := st.Unpaged().Build(db.Dialect(), database.TableName, database.SelectColumns(db.Dialect()))
	a.log.Debug("Export query", zap.String("sql", sqlStr))
	return db.ExecuteQuery(sqlStr, args)
}

// countRows counts the rows an export would write.
func (a *app) countRows(ctx context.Context, st *table.State) (int64, error) {
	if !a.fromDatabase() {
		events, err := a.exportFromSource(ctx, st)
		return int64(len(events)), err
	}
	db, err := a.openDatabase()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	sqlStr, args := st.Unpaged().BuildCount(db.Dialect(), database.TableName)
	return db.ExecuteCountQuery(sqlStr, args)
}
