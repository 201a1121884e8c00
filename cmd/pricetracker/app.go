package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ahmethakanbesel/price-tracker/internal/catalog"
	"github.com/ahmethakanbesel/price-tracker/internal/config"
	"github.com/ahmethakanbesel/price-tracker/internal/item"
	"github.com/ahmethakanbesel/price-tracker/internal/job"
	"github.com/ahmethakanbesel/price-tracker/internal/platform/postgres"
	"github.com/ahmethakanbesel/price-tracker/internal/platform/redis"
	"github.com/ahmethakanbesel/price-tracker/internal/platform/sqldb"
	"github.com/ahmethakanbesel/price-tracker/internal/platform/sqlite"
	"github.com/ahmethakanbesel/price-tracker/internal/report"
	catalogrepo "github.com/ahmethakanbesel/price-tracker/internal/repository/catalog"
	itemrepo "github.com/ahmethakanbesel/price-tracker/internal/repository/item"
	jobrepo "github.com/ahmethakanbesel/price-tracker/internal/repository/job"
	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

// app holds the wired services shared by every command.
type app struct {
	db    *sqldb.DB
	cache *redis.Cache

	jobRepo *jobrepo.Repository

	catalogSvc *catalog.Service
	itemSvc    *item.Service
	reportSvc  *report.Service
	jobSvc     *job.Service
}

func setupLogger(cfg config.Config) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openDB(ctx context.Context, cfg config.Config) (*sqldb.DB, error) {
	if cfg.DBDriver == "postgres" {
		return postgres.Open(ctx, cfg.DatabaseURL)
	}
	return sqlite.Open(cfg.DBPath)
}

// newApp opens storage, wires the services and rebuilds the interval store
// from the database.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &app{db: db}
	store := timeline.NewStore()

	a.jobRepo = jobrepo.NewRepository(db)
	a.catalogSvc = catalog.NewService(catalogrepo.NewRepository(db))
	a.itemSvc = item.NewService(store, itemrepo.NewRepository(db))
	a.reportSvc = report.NewService(store, a.catalogSvc)
	a.jobSvc = job.NewService(a.jobRepo)
	a.itemSvc.SetSubmitter(a.jobSvc)

	if cfg.Redis.Addr != "" {
		cache, err := redis.NewCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.CacheTTL)
		if err != nil {
			// Reports work without the cache.
			slog.Warn("report cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.cache = cache
			a.reportSvc.SetCache(cache)
		}
	}

	if err := a.itemSvc.Rehydrate(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = a.db.Close()
}
