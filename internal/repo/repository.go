package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entity is a record stored in its own table and keyed by a string id.
type Entity interface {
	TableName() string
	PrimaryKey() string
}

// Transient is implemented by entities carrying in-memory fields that must
// be cleared before the record is written.
type Transient interface {
	StripTransient()
}

// Store is the transactional surface repositories run on. *db.Handle
// satisfies it.
type Store interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	View(ctx context.Context, fn func(db *gorm.DB) error) error
}

// Repository provides generic CRUD over one entity table. Every write runs
// in its own transaction and returns after commit.
type Repository[T Entity] struct {
	store Store
}

func New[T Entity](store Store) *Repository[T] {
	return &Repository[T]{store: store}
}

func (r *Repository[T]) Store() Store {
	return r.store
}

func persistable[T Entity](item T) T {
	if t, ok := any(&item).(Transient); ok {
		t.StripTransient()
	}
	return item
}

var upsertOnID = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	UpdateAll: true,
}

// Add inserts item or replaces every column of the existing row with the
// same id.
func (r *Repository[T]) Add(ctx context.Context, item T) error {
	return r.store.WithTx(ctx, func(tx *gorm.DB) error {
		return r.AddWithTx(tx, item)
	})
}

// AddMany upserts items in one transaction.
func (r *Repository[T]) AddMany(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	return r.store.WithTx(ctx, func(tx *gorm.DB) error {
		for _, item := range items {
			if err := r.AddWithTx(tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository[T]) AddWithTx(tx *gorm.DB, item T) error {
	row := persistable(item)
	return tx.Clauses(upsertOnID).Create(&row).Error
}

// Update applies a partial change. A missing id is a no-op.
func (r *Repository[T]) Update(ctx context.Context, id string, fields map[string]any) error {
	changes := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		changes[k] = v
	}
	if len(changes) == 0 {
		return nil
	}
	return r.store.WithTx(ctx, func(tx *gorm.DB) error {
		return r.UpdateWithTx(tx, id, changes)
	})
}

func (r *Repository[T]) UpdateWithTx(tx *gorm.DB, id string, changes map[string]any) error {
	var zero T
	return tx.Model(&zero).Where("id = ?", id).Updates(changes).Error
}

// Get returns nil, nil when no row has id.
func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	var (
		out   T
		found bool
	)
	err := r.store.View(ctx, func(db *gorm.DB) error {
		res := db.Where("id = ?", id).Limit(1).Find(&out)
		found = res.RowsAffected > 0
		return res.Error
	})
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	var items []T
	err := r.store.View(ctx, func(db *gorm.DB) error {
		return db.Find(&items).Error
	})
	return items, err
}

func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var (
		zero  T
		count int64
	)
	err := r.store.View(ctx, func(db *gorm.DB) error {
		return db.Model(&zero).Count(&count).Error
	})
	return count, err
}

// Delete removes id if present.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	return r.store.WithTx(ctx, func(tx *gorm.DB) error {
		return r.DeleteWithTx(tx, id)
	})
}

func (r *Repository[T]) DeleteWithTx(tx *gorm.DB, id string) error {
	var zero T
	return tx.Where("id = ?", id).Delete(&zero).Error
}

// DeleteMany removes every listed id in one transaction.
func (r *Repository[T]) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.store.WithTx(ctx, func(tx *gorm.DB) error {
		var zero T
		return tx.Where("id IN ?", ids).Delete(&zero).Error
	})
}
