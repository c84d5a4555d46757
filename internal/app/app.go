// Package app assembles the vault's services over one database handle. The
// API server and the standalone maintenance worker share this wiring.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/studiovault/internal/archive"
	"github.com/angelmondragon/studiovault/internal/assets"
	"github.com/angelmondragon/studiovault/internal/collections"
	"github.com/angelmondragon/studiovault/internal/compression"
	"github.com/angelmondragon/studiovault/internal/cron"
	"github.com/angelmondragon/studiovault/internal/modelcatalog"
	"github.com/angelmondragon/studiovault/internal/presets"
	"github.com/angelmondragon/studiovault/internal/projects"
	"github.com/angelmondragon/studiovault/internal/stats"
	"github.com/angelmondragon/studiovault/internal/storage"
	"github.com/angelmondragon/studiovault/pkg/config"
	"github.com/angelmondragon/studiovault/pkg/db"
	"github.com/angelmondragon/studiovault/pkg/display"
	"github.com/angelmondragon/studiovault/pkg/logger"
	"github.com/angelmondragon/studiovault/pkg/metrics"
	"github.com/angelmondragon/studiovault/pkg/pagination"
	"github.com/angelmondragon/studiovault/pkg/redis"
)

type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	// DBOptions are passed through to db.New (tests pin migration targets).
	DBOptions []db.Option
}

type App struct {
	cfg  *config.Config
	logg *logger.Logger

	DB            *db.Handle
	Redis         *redis.Client
	Metrics       *prometheus.Registry
	StorageMetric *metrics.StorageMetrics
	Display       *display.Registry

	AssetRepo   *assets.Repository
	Projects    projects.Service
	Assets      *assets.Service
	Collections *collections.Service
	Archive     *archive.Service
	Models      *modelcatalog.Service
	Presets     *presets.Service
	Stats       *stats.Service
	Compression *compression.Service
	Maintenance *cron.Service
}

// New wires every service. The database file is not touched until the first
// query. Redis is dialed only when configured.
func New(ctx context.Context, params Params) (*App, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	reg := params.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	cfg := params.Config

	a := &App{
		cfg:           cfg,
		logg:          logg,
		DB:            db.New(cfg.DB, logg, params.DBOptions...),
		Metrics:       reg,
		StorageMetric: metrics.NewStorageMetrics(reg),
		Display:       display.NewRegistry(),
	}

	estimator := storage.NewHostEstimator(storage.HostParams{
		Path:       cfg.DB.Path,
		QuotaBytes: cfg.Storage.QuotaBytes,
		Logger:     logg,
		Metrics:    a.StorageMetric,
	})
	a.Stats = stats.NewService(a.DB, estimator)

	a.AssetRepo = assets.NewRepository(a.DB)
	collectionRepo := collections.NewRepository(a.DB)

	var err error
	if a.Projects, err = projects.NewService(projects.ServiceParams{
		Store:       a.DB,
		Assets:      a.AssetRepo,
		Collections: collectionRepo,
		Logger:      logg,
	}); err != nil {
		return nil, fmt.Errorf("project service: %w", err)
	}
	if a.Assets, err = assets.NewService(assets.ServiceParams{
		Repo:     a.AssetRepo,
		Stats:    a.Stats,
		Registry: a.Display,
		Limits:   pagination.Limits{Default: cfg.Gallery.DefaultLimit, Max: cfg.Gallery.MaxLimit},
		Logger:   logg,
	}); err != nil {
		return nil, fmt.Errorf("asset service: %w", err)
	}
	if a.Collections, err = collections.NewService(collectionRepo, a.Projects); err != nil {
		return nil, fmt.Errorf("collection service: %w", err)
	}
	if a.Archive, err = archive.NewService(archive.ServiceParams{
		Store:            a.DB,
		Assets:           a.AssetRepo,
		Logger:           logg,
		MaxUnpackedBytes: cfg.Archive.MaxUnpackedBytes,
	}); err != nil {
		return nil, fmt.Errorf("archive service: %w", err)
	}
	if a.Models, err = modelcatalog.NewService(a.DB); err != nil {
		return nil, fmt.Errorf("model service: %w", err)
	}
	if a.Presets, err = presets.NewService(a.DB); err != nil {
		return nil, fmt.Errorf("preset service: %w", err)
	}
	if a.Compression, err = compression.NewService(compression.ServiceParams{
		Assets:     a.AssetRepo,
		Reclaimer:  a.DB,
		Transcoder: compression.NewJPEGTranscoder(cfg.Compression.Quality),
		Metrics:    a.StorageMetric,
		Logger:     logg,
	}); err != nil {
		return nil, fmt.Errorf("compression service: %w", err)
	}

	if cfg.Redis.Enabled() {
		if a.Redis, err = redis.New(ctx, cfg.Redis, logg); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}
	if a.Maintenance, err = a.newMaintenance(); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) newMaintenance() (*cron.Service, error) {
	telemetry, err := cron.NewStorageTelemetryJob(cron.StorageTelemetryJobParams{
		Logger:  a.logg,
		Stats:   a.Stats,
		Metrics: a.StorageMetric,
	})
	if err != nil {
		return nil, fmt.Errorf("storage telemetry job: %w", err)
	}
	orphans, err := cron.NewOrphanSweepJob(cron.OrphanSweepJobParams{
		Logger: a.logg,
		Assets: a.AssetRepo,
		Grace:  a.cfg.Maintenance.OrphanGrace,
	})
	if err != nil {
		return nil, fmt.Errorf("orphan sweep job: %w", err)
	}
	reaper, err := cron.NewDisplayReaperJob(cron.DisplayReaperJobParams{
		Logger:   a.logg,
		Registry: a.Display,
		Idle:     a.cfg.Maintenance.DisplayIdleTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("display reaper job: %w", err)
	}

	var lock cron.Lock = cron.NewLocalLock()
	if a.Redis != nil {
		if lock, err = cron.NewRedisLock(a.Redis, a.Redis.LockKey(a.cfg.App.Env, a.cfg.DB.Path), 0); err != nil {
			return nil, fmt.Errorf("maintenance lock: %w", err)
		}
	}

	svc, err := cron.NewService(cron.ServiceParams{
		Logger:   a.logg,
		Registry: cron.NewRegistry(telemetry, orphans, reaper),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(a.Metrics),
		Interval: a.cfg.Maintenance.Interval,
	})
	if err != nil {
		return nil, fmt.Errorf("maintenance service: %w", err)
	}
	return svc, nil
}

// Close releases the database handle and the Redis client.
func (a *App) Close(ctx context.Context) {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logg.Error(ctx, "error closing redis", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		a.logg.Error(ctx, "error closing database", err)
	}
}
