package assets

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/studiovault/internal/repo"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/pagination"
)

// CompoundIndex is the (project_id, timestamp, id) index added by the second
// migration. Databases that predate it fall back to unordered reads.
const CompoundIndex = "idx_assets_project_timestamp"

// futureSkew widens the open upper bound so rows written a moment ago by a
// slightly faster clock are still included.
const futureSkew = time.Minute

// Repository adds the project-scoped queries to the generic asset CRUD.
type Repository struct {
	*repo.Repository[models.Asset]
	store repo.Store
	now   func() time.Time
}

func NewRepository(store repo.Store) *Repository {
	return &Repository{
		Repository: repo.New[models.Asset](store),
		store:      store,
		now:        time.Now,
	}
}

func hasCompoundIndex(db *gorm.DB) (bool, error) {
	var count int64
	err := db.Raw(`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, CompoundIndex).Scan(&count).Error
	return count > 0, err
}

// GetByProject returns up to limit assets of projectID newest first, strictly
// older than before when it is set. Assets sharing the exact timestamp of the
// previous page boundary are not returned on the next page.
//
// Without the compound index the rows come back in storage order.
func (r *Repository) GetByProject(ctx context.Context, projectID string, limit int, before *int64) ([]models.Asset, error) {
	upper := r.now().Add(futureSkew).UnixMilli()
	if before != nil {
		upper = *before - 1
	}

	var rows []models.Asset
	err := r.store.View(ctx, func(db *gorm.DB) error {
		indexed, err := hasCompoundIndex(db)
		if err != nil {
			return err
		}
		q := db.Where("project_id = ? AND timestamp BETWEEN ? AND ?", projectID, 0, upper)
		if indexed {
			q = q.Order("timestamp DESC").Order("id DESC")
		}
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Find(&rows).Error
	})
	return rows, err
}

// ListByProject returns every asset of projectID with its payload.
func (r *Repository) ListByProject(ctx context.Context, projectID string) ([]models.Asset, error) {
	var rows []models.Asset
	err := r.store.View(ctx, func(db *gorm.DB) error {
		return db.Where("project_id = ?", projectID).
			Order("timestamp DESC").
			Order("id DESC").
			Find(&rows).Error
	})
	return rows, err
}

// PageQuery is one keyset read. Limit is passed through unchanged.
type PageQuery struct {
	ProjectID string
	Limit     int
	Cursor    *pagination.Cursor
	WithBlob  bool
}

// ListPage returns rows ordered by (timestamp, id) descending that come
// strictly after the cursor.
func (r *Repository) ListPage(ctx context.Context, query PageQuery) ([]models.Asset, error) {
	var rows []models.Asset
	err := r.store.View(ctx, func(db *gorm.DB) error {
		q := db.Where("project_id = ?", query.ProjectID)
		if query.Cursor != nil {
			q = q.Where("((timestamp < ?) OR (timestamp = ? AND id < ?))",
				query.Cursor.Timestamp, query.Cursor.Timestamp, query.Cursor.ID)
		}
		if !query.WithBlob {
			q = q.Omit("blob")
		}
		return q.Order("timestamp DESC").
			Order("id DESC").
			Limit(query.Limit).
			Find(&rows).Error
	})
	return rows, err
}

// CountByProject counts the assets filed under projectID.
func (r *Repository) CountByProject(ctx context.Context, projectID string) (int64, error) {
	var count int64
	err := r.store.View(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Asset{}).Where("project_id = ?", projectID).Count(&count).Error
	})
	return count, err
}

// DeleteByProjectWithTx removes every asset of projectID inside tx.
func (r *Repository) DeleteByProjectWithTx(tx *gorm.DB, projectID string) (int64, error) {
	res := tx.Where("project_id = ?", projectID).Delete(&models.Asset{})
	return res.RowsAffected, res.Error
}

// ListOrphansBefore returns ids of assets whose project no longer exists and
// whose timestamp is older than cutoff.
func (r *Repository) ListOrphansBefore(ctx context.Context, cutoff int64, limit int) ([]string, error) {
	var orphanIDs []string
	err := r.store.View(ctx, func(db *gorm.DB) error {
		q := db.Model(&models.Asset{}).
			Where("timestamp < ?", cutoff).
			Where("project_id NOT IN (SELECT id FROM projects)").
			Order("timestamp ASC")
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q.Pluck("id", &orphanIDs).Error
	})
	return orphanIDs, err
}
