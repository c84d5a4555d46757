// Package storage reports how much space the local database uses and how
// much it may grow into.
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/angelmondragon/studiovault/pkg/logger"
	"github.com/angelmondragon/studiovault/pkg/metrics"
)

// Estimate is a point-in-time footprint. Zero values mean unknown.
type Estimate struct {
	Usage int64 `json:"usage"`
	Quota int64 `json:"quota"`
}

// UsedFraction is Usage/Quota, or 0 when the quota is unknown.
func (e Estimate) UsedFraction() float64 {
	if e.Quota <= 0 {
		return 0
	}
	return float64(e.Usage) / float64(e.Quota)
}

// Estimator never fails; hosts without the capability report {0,0}.
type Estimator interface {
	Estimate(ctx context.Context) Estimate
}

// NoopEstimator is used where the host cannot measure storage.
type NoopEstimator struct{}

func (NoopEstimator) Estimate(context.Context) Estimate {
	return Estimate{}
}

var errUnsupported = errors.New("filesystem statistics unsupported on this platform")

// HostEstimator measures the database file and its WAL companions, and
// derives the quota from free space on the volume unless one is configured.
type HostEstimator struct {
	path      string
	quota     int64
	logg      *logger.Logger
	metrics   *metrics.StorageMetrics
	freeSpace func(dir string) (int64, error)
}

type HostParams struct {
	Path       string
	QuotaBytes int64
	Logger     *logger.Logger
	Metrics    *metrics.StorageMetrics
}

func NewHostEstimator(params HostParams) *HostEstimator {
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &HostEstimator{
		path:      params.Path,
		quota:     params.QuotaBytes,
		logg:      logg,
		metrics:   params.Metrics,
		freeSpace: availableBytes,
	}
}

var companions = []string{"", "-wal", "-shm"}

func (e *HostEstimator) Estimate(ctx context.Context) Estimate {
	if e == nil || e.path == "" {
		return Estimate{}
	}

	var usage int64
	for _, suffix := range companions {
		info, err := os.Stat(e.path + suffix)
		if err != nil {
			continue
		}
		usage += info.Size()
	}

	quota := e.quota
	if quota <= 0 {
		free, err := e.freeSpace(filepath.Dir(e.path))
		if err != nil {
			if !errors.Is(err, errUnsupported) {
				e.logg.Warn(e.logg.WithField(ctx, "path", e.path), "storage estimate unavailable: "+err.Error())
			}
			return Estimate{}
		}
		quota = usage + free
	}

	est := Estimate{Usage: usage, Quota: quota}
	e.metrics.SetEstimate(est.Usage, est.Quota)
	return est
}
