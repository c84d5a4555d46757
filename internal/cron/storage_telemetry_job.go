package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/studiovault/internal/storage"
	"github.com/angelmondragon/studiovault/pkg/logger"
	"github.com/angelmondragon/studiovault/pkg/metrics"
)

type StorageTelemetryJobParams struct {
	Logger  *logger.Logger
	Stats   storageRefresher
	Metrics *metrics.StorageMetrics
}

type storageRefresher interface {
	RefreshStorage(ctx context.Context) (storage.Estimate, error)
}

// NewStorageTelemetryJob copies the current storage estimate into the usage
// stats record and the storage gauges.
func NewStorageTelemetryJob(params StorageTelemetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("stats service required")
	}
	return &storageTelemetryJob{
		logg:    params.Logger,
		stats:   params.Stats,
		metrics: params.Metrics,
	}, nil
}

type storageTelemetryJob struct {
	logg    *logger.Logger
	stats   storageRefresher
	metrics *metrics.StorageMetrics
}

func (j *storageTelemetryJob) Name() string { return "storage-telemetry-refresh" }

func (j *storageTelemetryJob) Run(ctx context.Context) error {
	est, err := j.stats.RefreshStorage(ctx)
	if err != nil {
		return fmt.Errorf("refresh storage stats: %w", err)
	}
	j.metrics.SetEstimate(est.Usage, est.Quota)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"usage_bytes": est.Usage,
		"quota_bytes": est.Quota,
	}), "storage telemetry refreshed")
	return nil
}
