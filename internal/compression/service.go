package compression

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/enums"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/logger"
	"github.com/angelmondragon/studiovault/pkg/metrics"
)

type assetStore interface {
	GetAll(ctx context.Context) ([]models.Asset, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

type reclaimer interface {
	Reclaim(ctx context.Context) error
}

// ServiceParams configures the sweep.
type ServiceParams struct {
	Assets     assetStore
	Reclaimer  reclaimer
	Transcoder Transcoder
	Metrics    *metrics.StorageMetrics
	Logger     *logger.Logger
}

type Service struct {
	assets     assetStore
	reclaimer  reclaimer
	transcoder Transcoder
	metrics    *metrics.StorageMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Assets == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	transcoder := params.Transcoder
	if transcoder == nil {
		transcoder = NewJPEGTranscoder(DefaultQuality)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		assets:     params.Assets,
		reclaimer:  params.Reclaimer,
		transcoder: transcoder,
		metrics:    params.Metrics,
		logg:       logg,
	}, nil
}

// Options controls one sweep. Aggressive extends eligibility from SKETCH
// assets to every image. Progress, when set, receives the completed fraction
// after each asset.
type Options struct {
	Aggressive bool
	Progress   func(fraction float64)
}

// Result summarises a sweep. ItemErrors aggregates per-asset failures; the
// sweep itself still succeeded when it is non-nil.
type Result struct {
	Examined   int           `json:"examined"`
	Compressed int           `json:"compressed"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	BytesFreed int64         `json:"bytes_freed"`
	Duration   time.Duration `json:"duration"`
	ItemErrors error         `json:"-"`
}

// Sweep re-encodes eligible image assets and keeps the new payload only when
// it is strictly smaller. Videos, already compressed assets and empty
// payloads are never touched.
func (s *Service) Sweep(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	rows, err := s.assets.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeStorageUnavailable, err, "load assets for compression")
	}

	result := &Result{}
	total := len(rows)
	report := func(done int) {
		if opts.Progress == nil {
			return
		}
		if total == 0 {
			opts.Progress(1)
			return
		}
		opts.Progress(float64(done) / float64(total))
	}

	for i := range rows {
		if err := ctx.Err(); err != nil {
			s.finish(ctx, opts, result, started)
			return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compression sweep interrupted")
		}
		asset := &rows[i]
		result.Examined++

		if !eligible(asset, opts.Aggressive) {
			result.Skipped++
			report(i + 1)
			continue
		}

		freed, err := s.compressOne(ctx, asset)
		switch {
		case err != nil && pkgerrors.Is(err, pkgerrors.CodeStorageUnavailable):
			s.finish(ctx, opts, result, started)
			return result, err
		case err != nil:
			result.Failed++
			result.ItemErrors = multierr.Append(result.ItemErrors, err)
			s.logg.Warn(s.logg.WithFields(s.logg.WithAssetID(ctx, asset.ID), map[string]any{
				"error": err.Error(),
			}), "asset compression failed")
		case freed > 0:
			result.Compressed++
			result.BytesFreed += freed
		default:
			result.Skipped++
		}
		report(i + 1)
	}
	if total == 0 {
		report(0)
	}

	s.finish(ctx, opts, result, started)
	if result.BytesFreed > 0 && s.reclaimer != nil {
		if err := s.reclaimer.Reclaim(ctx); err != nil {
			s.logg.Error(ctx, "failed to reclaim freed pages", err)
		}
	}
	return result, nil
}

func eligible(asset *models.Asset, aggressive bool) bool {
	if asset.Type == enums.MediaTypeVideo || asset.IsCompressed || len(asset.Blob) == 0 {
		return false
	}
	return aggressive || asset.Tier == enums.GenerationTierSketch
}

// compressOne returns the bytes saved, or zero when the re-encoded payload
// was not smaller and the asset was left as it was.
func (s *Service) compressOne(ctx context.Context, asset *models.Asset) (int64, error) {
	encoded, mimeType, err := s.transcoder.Transcode(asset.Blob)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeCompressionItem, err, fmt.Sprintf("compress asset %s", asset.ID))
	}
	original := int64(len(asset.Blob))
	size := int64(len(encoded))
	if size >= original {
		return 0, nil
	}

	err = s.assets.Update(ctx, asset.ID, map[string]any{
		"blob":          encoded,
		"mime_type":     mimeType,
		"size_bytes":    size,
		"is_compressed": true,
	})
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeStorageUnavailable) {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeCompressionItem, err, fmt.Sprintf("store compressed asset %s", asset.ID))
	}
	return original - size, nil
}

func (s *Service) finish(ctx context.Context, opts Options, result *Result, started time.Time) {
	result.Duration = time.Since(started)
	s.metrics.ObserveSweep(opts.Aggressive, result.Compressed, result.Skipped, result.Failed, result.BytesFreed)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"aggressive":  opts.Aggressive,
		"examined":    result.Examined,
		"compressed":  result.Compressed,
		"skipped":     result.Skipped,
		"failed":      result.Failed,
		"bytes_freed": result.BytesFreed,
	}), "compression sweep finished")
}
