package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/studiovault/pkg/logger"
)

const (
	defaultOrphanGrace = 24 * time.Hour
	orphanBatchSize    = 200
)

type OrphanSweepJobParams struct {
	Logger *logger.Logger
	Assets orphanRepository
	Grace  time.Duration
}

type orphanRepository interface {
	ListOrphansBefore(ctx context.Context, cutoff int64, limit int) ([]string, error)
	DeleteMany(ctx context.Context, ids []string) error
}

// NewOrphanSweepJob deletes assets left behind by a project delete that did
// not purge. Assets younger than the grace period are kept. The sweep is a
// manual job: deleting a project never cascades on its own.
func NewOrphanSweepJob(params OrphanSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultOrphanGrace
	}
	return &orphanSweepJob{
		logg:   params.Logger,
		assets: params.Assets,
		grace:  grace,
		now:    time.Now,
	}, nil
}

type orphanSweepJob struct {
	logg   *logger.Logger
	assets orphanRepository
	grace  time.Duration
	now    func() time.Time
}

func (j *orphanSweepJob) Name() string { return "orphan-asset-sweep" }

func (j *orphanSweepJob) Manual() bool { return true }

func (j *orphanSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.grace).UnixMilli()
	deleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := j.assets.ListOrphansBefore(ctx, cutoff, orphanBatchSize)
		if err != nil {
			return fmt.Errorf("list orphan assets: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		if err := j.assets.DeleteMany(ctx, batch); err != nil {
			return fmt.Errorf("delete orphan assets: %w", err)
		}
		deleted += len(batch)
		if len(batch) < orphanBatchSize {
			break
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"grace_seconds": int64(j.grace.Seconds()),
		"rows_deleted":  deleted,
	}), "orphan asset sweep complete")
	return nil
}
