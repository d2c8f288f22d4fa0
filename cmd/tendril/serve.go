package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/cli"
	httpAdapter "github.com/aretw0/tendril/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves sessions over HTTP: post messages, answer questions, decide
approvals and follow each session's events as a server-sent event stream.
Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		logger, err := cli.NewLogger(cfg.LogLevel, false)
		if err != nil {
			return err
		}
		rt, err := cli.NewRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		// Runs outlive their request; they end with the server.
		runCtx, stopRuns := context.WithCancel(context.Background())
		defer stopRuns()

		api := httpAdapter.NewServer(rt.Factory(),
			httpAdapter.WithSessions(rt.Sessions),
			httpAdapter.WithRegistry(rt.Registry),
			httpAdapter.WithMetrics(rt.Metrics.Handler()),
			httpAdapter.WithVersion(tendril.Version),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithBaseContext(runCtx),
		)
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("http server listening", "addr", srv.Addr, "root", rt.Workspace.Root(), "mode", rt.Mode())
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-sc.Done():
			logger.Info("shutting down", "signal", sc.Signal())
		}

		stopRuns()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			return srv.Close()
		}
		logger.Info("http server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
}
