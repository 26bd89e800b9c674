package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nb-assistant/internal/config"
	"nb-assistant/internal/http"
	"nb-assistant/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

var skipRecovery bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. Notebooks whose last rebuild never completed are
rebuilt in the background, and REBUILD_SCHEDULE runs periodic rebuilds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipRecovery, "skip-recovery", false, "do not rebuild notebooks left incomplete by a previous run")
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("Failed to release resources", "error", err)
		}
	}()

	router := http.NewRouter(&http.Deps{
		QueryEngine:  a.engine,
		Pipeline:     a.pipeline,
		NotebookName: cfg.NotebookName,
		HealthChecks: a.health,
	})

	// Finish interrupted rebuilds in background after router is ready
	if !skipRecovery {
		go func() {
			recovered, err := a.pipeline.RecoverIncomplete(ctx, cfg.RebuildNotebooks)
			if err != nil {
				slog.Error("Recovery completed with errors", "recovered", recovered, "error", err)
				return
			}
			if len(recovered) > 0 {
				slog.Info("Recovered incomplete rebuilds", "notebooks", recovered)
			}
		}()
	}

	if cfg.RebuildSchedule != "" {
		sched, err := scheduler.New(a.pipeline, cfg.RebuildSchedule, cfg.RebuildNotebooks, slog.Default())
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop(shutdownTimeout)
	}

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}
