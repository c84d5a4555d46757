package projects

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/studiovault/internal/assets"
	"github.com/angelmondragon/studiovault/internal/collections"
	"github.com/angelmondragon/studiovault/internal/repo"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/ids"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

// ServiceParams groups dependencies for the project service.
type ServiceParams struct {
	Store       repo.Store
	Assets      *assets.Repository
	Collections *collections.Repository
	Logger      *logger.Logger
}

// Service exposes project management.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Get(ctx context.Context, id string) (*models.Project, error)
	Exists(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, id string, input UpdateInput) (*models.Project, error)
	Delete(ctx context.Context, id string) error
	Purge(ctx context.Context, id string) (*PurgeResult, error)
}

type service struct {
	store       repo.Store
	repo        *repo.Repository[models.Project]
	assets      *assets.Repository
	collections *collections.Repository
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds a project service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if params.Collections == nil {
		return nil, fmt.Errorf("collection repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		store:       params.Store,
		repo:        repo.New[models.Project](params.Store),
		assets:      params.Assets,
		collections: params.Collections,
		logg:        logg,
		now:         time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name required")
	}
	if input.Budget != nil && input.Budget.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget cannot be negative")
	}

	now := s.now()
	project := models.Project{
		ID:                 ids.Timed(now),
		Name:               name,
		Description:        strings.TrimSpace(input.Description),
		CustomInstructions: input.CustomInstructions,
		CreatedAt:          now.UnixMilli(),
	}
	if input.Budget != nil {
		project.Budget = decimal.NewNullDecimal(*input.Budget)
	}
	if err := s.repo.Add(ctx, project); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "create project")
	}
	return &project, nil
}

// List returns every project, newest first.
func (s *service) List(ctx context.Context) ([]models.Project, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "list projects")
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt > rows[j].CreatedAt
	})
	return rows, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load project")
	}
	if project == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
	}
	return project, nil
}

func (s *service) Exists(ctx context.Context, id string) (bool, error) {
	project, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return project != nil, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*models.Project, error) {
	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "project name cannot be empty")
		}
		fields["name"] = name
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
	}
	if input.CustomInstructions != nil {
		fields["custom_instructions"] = *input.CustomInstructions
	}
	switch {
	case input.ClearBudget:
		fields["budget"] = decimal.NullDecimal{}
	case input.Budget != nil:
		if input.Budget.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget cannot be negative")
		}
		fields["budget"] = decimal.NewNullDecimal(*input.Budget)
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "update project")
	}
	return s.Get(ctx, id)
}

// Delete removes only the project row. Its assets and collections stay
// behind until purged or swept.
func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "delete project")
	}
	return nil
}

// Purge removes the project together with its assets and collections in
// one transaction.
func (s *service) Purge(ctx context.Context, id string) (*PurgeResult, error) {
	result := &PurgeResult{ProjectID: id}
	err := s.store.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if result.AssetsDeleted, err = s.assets.DeleteByProjectWithTx(tx, id); err != nil {
			return err
		}
		if result.CollectionsDeleted, err = s.collections.DeleteByProjectWithTx(tx, id); err != nil {
			return err
		}
		return s.repo.DeleteWithTx(tx, id)
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithProjectID(ctx, id), map[string]any{
		"assets_deleted":      result.AssetsDeleted,
		"collections_deleted": result.CollectionsDeleted,
	}), "project purged")
	return result, nil
}
