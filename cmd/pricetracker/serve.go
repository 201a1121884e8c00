package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ahmethakanbesel/price-tracker/internal/config"
	"github.com/ahmethakanbesel/price-tracker/internal/job"
	"github.com/ahmethakanbesel/price-tracker/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API and the import workers",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cfg)
			return serve(cfg)
		},
	}
}

func serve(cfg config.Config) error {
	// Root context: cancelled on SIGINT/SIGTERM so in-flight imports and
	// report fan-outs stop promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	a, err := newApp(rootCtx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Worker pool: picks up queued imports in the background
	pool := job.NewWorkerPool(a.jobRepo, cfg.Workers)
	pool.Handle(job.KindItemImport, a.itemSvc)
	a.jobSvc.SetNotify(pool.Notify)
	poolDone := make(chan struct{})
	go func() {
		pool.Run(rootCtx)
		close(poolDone)
	}()

	// Re-queue interrupted jobs so workers pick them up.
	if err := a.jobSvc.RecoverStaleJobs(rootCtx); err != nil {
		slog.Error("failed to recover stale jobs", "error", err)
	}
	pool.Notify()

	srv := server.New(rootCtx, cfg.Port, server.Services{
		Catalog: a.catalogSvc,
		Items:   a.itemSvc,
		Reports: a.reportSvc,
		Jobs:    a.jobSvc,
	}, server.Options{
		APIKey:     cfg.APIKey,
		WriteRPS:   cfg.WriteRPS,
		WriteBurst: cfg.WriteBurst,
	})

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server started", "port", cfg.Port, "driver", cfg.DBDriver)
	select {
	case <-done:
	case err := <-errCh:
		rootCancel()
		<-poolDone
		return err
	}

	// Cancel root context first so in-flight requests begin winding down.
	rootCancel()

	// Wait for worker pool to drain before shutting down HTTP.
	<-poolDone

	// Then drain connections with a deadline.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
