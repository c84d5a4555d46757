package collections

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/studiovault/pkg/db/models"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/ids"
)

type projectLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo     *Repository
	projects projectLookup
	now      func() time.Time
}

// NewService builds the collection service. projects may be nil, in which
// case collections are not checked against an existing project.
func NewService(repo *Repository, projects projectLookup) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("collection repository required")
	}
	return &Service{repo: repo, projects: projects, now: time.Now}, nil
}

func (s *Service) Create(ctx context.Context, projectID, name string) (*models.Collection, error) {
	projectID = strings.TrimSpace(projectID)
	name = strings.TrimSpace(name)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection name required")
	}
	if s.projects != nil {
		ok, err := s.projects.Exists(ctx, projectID)
		if err != nil {
			return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load project")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
	}

	now := s.now()
	collection := models.Collection{
		ID:        ids.Timed(now),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: now.UnixMilli(),
	}
	if err := s.repo.Add(ctx, collection); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "create collection")
	}
	return &collection, nil
}

func (s *Service) ListByProject(ctx context.Context, projectID string) ([]models.Collection, error) {
	rows, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "list collections")
	}
	return rows, nil
}

// Delete removes the collection. Assets filed under it keep their
// collection id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "delete collection")
	}
	return nil
}
