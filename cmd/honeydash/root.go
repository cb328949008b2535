package main

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/config"
	"github.com/cdtdelta/honeydash/internal/dashboard"
	"github.com/cdtdelta/honeydash/internal/database"
	"github.com/cdtdelta/honeydash/internal/logging"
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/source"
)

// flagKeys maps command-line flags onto configuration keys. A flag only
// overrides the configuration when it is given.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"timezone":   "timezone",
	"source":     "source.kind",
	"path":       "source.path",
	"url":        "source.url",
	"retries":    "source.retries",
	"driver":     "database.driver",
	"dsn":        "database.dsn",
	"addr":       "server.addr",
	"start":      "range.start",
	"end":        "range.end",
}

// app carries what every subcommand needs once the root has loaded settings.
type app struct {
	v       *viper.Viper
	cfgPath string
	cfg     *config.Config
	log     *zap.Logger
	out     io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "honeydash",
		Short:         "Dashboard for honeypot decoy events",
		Version:       dashboard.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "YAML configuration file")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (console, json)")
	pf.String("timezone", "", `IANA timezone for dates and buckets, or "Local"`)
	pf.String("source", "", "event source kind (http, file, sqlite, postgres, opensearch)")
	pf.String("path", "", "event file for the file source")
	pf.String("url", "", "event URL for the http source")
	pf.Int("retries", 0, "retries for the http and opensearch sources")
	pf.String("driver", "", "database driver (sqlite, postgres)")
	pf.String("dsn", "", "database file or connection string")

	root.AddCommand(
		newServeCmd(a),
		newImportCmd(a),
		newSeriesCmd(a),
		newExportCmd(a),
		newValuesCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := bindFlags(cmd.Flags(), a.v); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.cfgPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	a.out = cmd.OutOrStdout()
	return nil
}

// bindFlags binds every flag named in flagKeys that is present on fs.
func bindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	var result error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			result = errors.CombineErrors(result, errors.Wrapf(err, "binding --%s", f.Name))
		}
	})
	return result
}

// fromDatabase reports whether the configured source is a database that
// commands can query directly instead of loading every event.
func (a *app) fromDatabase() bool {
	switch a.cfg.Source.Kind {
	case "sqlite", "postgres":
		return true
	}
	return false
}

func (a *app) openDatabase() (database.Store, error) {
	db, err := database.OpenStore(a.cfg.Source.Kind, a.cfg.Database.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", a.cfg.Source.Kind)
	}
	return db, nil
}

func (a *app) fetchEvents(ctx context.Context) ([]model.Event, error) {
	src, err := source.New(a.cfg.SourceConfig(a.log))
	if err != nil {
		return nil, err
	}
	return src.Fetch(ctx)
}
