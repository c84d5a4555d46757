// Package modelcatalog manages the synthetic subjects assets are generated
// from. Models live outside any project.
package modelcatalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/angelmondragon/studiovault/internal/repo"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/ids"
)

type AddInput struct {
	ID         string
	Name       string
	Attributes map[string]any
	Morphology map[string]any
}

type Service struct {
	repo *repo.Repository[models.Model]
	now  func() time.Time
}

func NewService(store repo.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	return &Service{repo: repo.New[models.Model](store), now: time.Now}, nil
}

// Repository exposes the underlying CRUD for bulk callers such as the
// archive packer.
func (s *Service) Repository() *repo.Repository[models.Model] {
	return s.repo
}

// Add saves a model. An input carrying an existing id replaces that model.
func (s *Service) Add(ctx context.Context, input AddInput) (*models.Model, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "model name required")
	}
	now := s.now()
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = ids.Timed(now)
	}
	model := models.Model{
		ID:         id,
		Name:       name,
		Attributes: datatypes.JSONMap(input.Attributes),
		Morphology: datatypes.JSONMap(input.Morphology),
		CreatedAt:  now.UnixMilli(),
	}
	if err := s.repo.Add(ctx, model); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "save model")
	}
	return &model, nil
}

// List returns every model, newest first.
func (s *Service) List(ctx context.Context) ([]models.Model, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "list models")
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt > rows[j].CreatedAt
	})
	return rows, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Model, error) {
	model, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load model")
	}
	if model == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "model not found")
	}
	return model, nil
}

// Delete removes the model. Assets referencing it are left untouched.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "delete model")
	}
	return nil
}
