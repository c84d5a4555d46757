package collections

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/studiovault/internal/repo"
	"github.com/angelmondragon/studiovault/pkg/db/models"
)

// Repository stores the named groupings inside a project.
type Repository struct {
	*repo.Repository[models.Collection]
	store repo.Store
}

func NewRepository(store repo.Store) *Repository {
	return &Repository{Repository: repo.New[models.Collection](store), store: store}
}

// ListByProject returns the project's collections oldest first.
func (r *Repository) ListByProject(ctx context.Context, projectID string) ([]models.Collection, error) {
	var rows []models.Collection
	err := r.store.View(ctx, func(db *gorm.DB) error {
		return db.Where("project_id = ?", projectID).
			Order("created_at ASC").
			Order("id ASC").
			Find(&rows).Error
	})
	return rows, err
}

func (r *Repository) DeleteByProjectWithTx(tx *gorm.DB, projectID string) (int64, error) {
	res := tx.Where("project_id = ?", projectID).Delete(&models.Collection{})
	return res.RowsAffected, res.Error
}
