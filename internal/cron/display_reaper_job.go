package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/studiovault/pkg/logger"
)

const defaultDisplayIdle = 30 * time.Minute

type DisplayReaperJobParams struct {
	Logger   *logger.Logger
	Registry handleReaper
	Idle     time.Duration
}

type handleReaper interface {
	Reap(idle time.Duration) int
	Live() int
}

// NewDisplayReaperJob revokes display handles a client never released.
func NewDisplayReaperJob(params DisplayReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("display registry required")
	}
	idle := params.Idle
	if idle <= 0 {
		idle = defaultDisplayIdle
	}
	return &displayReaperJob{logg: params.Logger, registry: params.Registry, idle: idle}, nil
}

type displayReaperJob struct {
	logg     *logger.Logger
	registry handleReaper
	idle     time.Duration
}

func (j *displayReaperJob) Name() string { return "display-handle-reaper" }

func (j *displayReaperJob) Run(ctx context.Context) error {
	reaped := j.registry.Reap(j.idle)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"reaped": reaped,
		"live":   j.registry.Live(),
	}), "display handles reaped")
	return nil
}
