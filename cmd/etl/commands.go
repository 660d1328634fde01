package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/chess-data-etl/internal/adapter/filestore"
	httpadapter "github.com/couchcryptid/chess-data-etl/internal/adapter/http"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <player>",
	Short: "Download every monthly archive of a player into the raw store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := a.pipeline.Extract(ctx, args[0])
		printExtractReport(cmd.ErrOrStderr(), report)
		return err
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform <player>",
	Short: "Rebuild a player's dataset from the raw store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		d, err := a.pipeline.Build(ctx, args[0])
		if d.Player != "" {
			a.printDataset(cmd.ErrOrStderr(), d.Player, d.Len())
		}
		return err
	},
}

var runCmd = &cobra.Command{
	Use:   "run <player>",
	Short: "Extract a player's archives, then rebuild the dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := a.pipeline.Run(ctx, args[0])
		out := cmd.ErrOrStderr()
		if report.Extract.Player != "" {
			printExtractReport(out, report.Extract)
		}
		if report.Dataset.Player != "" {
			a.printDataset(out, report.Dataset.Player, report.Dataset.Len())
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve built datasets, health checks and metrics over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		reader := filestore.NewCachedReader(a.datasets, a.cfg.DatasetCacheSize)
		srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.datasets, reader, a.logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("http server listening", "addr", a.cfg.HTTPAddr)
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				return err
			}
		}
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", "error", err)
		}
		a.logger.Info("shutdown complete")
		return nil
	},
}
