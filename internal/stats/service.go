package stats

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/studiovault/internal/repo"
	"github.com/angelmondragon/studiovault/internal/storage"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/enums"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
)

// Service maintains the singleton usage record.
type Service struct {
	store     repo.Store
	repo      *repo.Repository[models.UsageStats]
	estimator storage.Estimator
	now       func() time.Time
}

func NewService(store repo.Store, estimator storage.Estimator) *Service {
	if estimator == nil {
		estimator = storage.NoopEstimator{}
	}
	return &Service{
		store:     store,
		repo:      repo.New[models.UsageStats](store),
		estimator: estimator,
		now:       time.Now,
	}
}

func emptyStats() models.UsageStats {
	return models.UsageStats{ID: models.StatsID, EstimatedCost: decimal.Zero}
}

// Get returns the current record, or a zeroed one if nothing was tracked yet.
func (s *Service) Get(ctx context.Context) (models.UsageStats, error) {
	current, err := s.repo.Get(ctx, models.StatsID)
	if err != nil {
		return models.UsageStats{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load usage stats")
	}
	if current == nil {
		return emptyStats(), nil
	}
	return *current, nil
}

// mutate reads the record inside a transaction, applies fn and writes it back.
func (s *Service) mutate(ctx context.Context, fn func(*models.UsageStats)) (models.UsageStats, error) {
	var out models.UsageStats
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var current models.UsageStats
		res := tx.Where("id = ?", models.StatsID).Limit(1).Find(&current)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			current = emptyStats()
		}
		fn(&current)
		current.UpdatedAt = s.now().UnixMilli()
		out = current
		return s.repo.AddWithTx(tx, current)
	})
	return out, err
}

// TrackAsset adds one generated asset to the counters.
func (s *Service) TrackAsset(ctx context.Context, mediaType enums.MediaType, keyTier enums.KeyTier, cost decimal.Decimal) (models.UsageStats, error) {
	return s.mutate(ctx, func(st *models.UsageStats) {
		paid := keyTier == enums.KeyTierPaid
		switch {
		case mediaType == enums.MediaTypeVideo && paid:
			st.PaidVideos++
		case mediaType == enums.MediaTypeVideo:
			st.FreeVideos++
		case paid:
			st.PaidImages++
		default:
			st.FreeImages++
		}
		st.EstimatedCost = st.EstimatedCost.Add(cost)
	})
}

// RefreshStorage copies the current storage estimate into the record.
func (s *Service) RefreshStorage(ctx context.Context) (storage.Estimate, error) {
	est := s.estimator.Estimate(ctx)
	_, err := s.mutate(ctx, func(st *models.UsageStats) {
		st.StorageUsage = est.Usage
		st.StorageQuota = est.Quota
	})
	return est, err
}

// Estimate exposes the live estimate without persisting it.
func (s *Service) Estimate(ctx context.Context) storage.Estimate {
	return s.estimator.Estimate(ctx)
}
