package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cdtdelta/honeydash/internal/dashboard"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load events and serve the dashboard over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down
// within the configured timeout. The first load starts immediately; the pages
// show the loading state until it finishes.
func (a *app) serve(ctx context.Context) error {
	srv, err := dashboard.New(a.cfg, a.log)
	if err != nil {
		return err
	}
	srv.ReloadAsync()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(a.cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("Shutting down", zap.Duration("timeout", a.cfg.Server.ShutdownTimeout))
		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
