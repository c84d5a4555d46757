package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/studiovault/internal/storage"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/display"
	"github.com/angelmondragon/studiovault/pkg/enums"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/ids"
	"github.com/angelmondragon/studiovault/pkg/logger"
	"github.com/angelmondragon/studiovault/pkg/pagination"
)

type usageTracker interface {
	TrackAsset(ctx context.Context, mediaType enums.MediaType, keyTier enums.KeyTier, cost decimal.Decimal) (models.UsageStats, error)
	RefreshStorage(ctx context.Context) (storage.Estimate, error)
}

type ServiceParams struct {
	Repo     *Repository
	Stats    usageTracker
	Registry *display.Registry
	Limits   pagination.Limits
	Logger   *logger.Logger
}

// Service is the gallery and intake surface over the asset table.
type Service struct {
	repo     *Repository
	stats    usageTracker
	registry *display.Registry
	limits   pagination.Limits
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("stats service required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("display registry required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		repo:     params.Repo,
		stats:    params.Stats,
		registry: params.Registry,
		limits:   params.Limits,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// ListParams configures one gallery page. Scope names the display scope the
// page's handles are attached to; empty means no payloads are loaded.
type ListParams struct {
	ProjectID string
	Limit     int
	Cursor    string
	Scope     string
}

// Page is one slice of a project's assets, newest first. Items carry a
// Display handle when the page was read into a scope.
type Page struct {
	Items      []models.Asset
	NextCursor string
}

func (s *Service) ListPage(ctx context.Context, params ListParams) (*Page, error) {
	projectID := strings.TrimSpace(params.ProjectID)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}

	limit := s.limits.Normalize(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListPage(ctx, PageQuery{
		ProjectID: projectID,
		Limit:     limit + 1,
		Cursor:    cursor,
		WithBlob:  params.Scope != "",
	})
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "list assets")
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[limit-1]
		next = pagination.EncodeCursor(pagination.Cursor{Timestamp: last.Timestamp, ID: last.ID})
	}

	if params.Scope != "" {
		scope := s.registry.Scope(params.Scope)
		if cursor == nil {
			scope.Reset()
		}
		for i := range rows {
			if len(rows[i].Blob) == 0 {
				continue
			}
			rows[i].Display = s.registry.Create(rows[i].Blob, rows[i].MimeType)
			scope.Add(rows[i].Display)
		}
	}

	return &Page{Items: rows, NextCursor: next}, nil
}

// ListBefore returns up to limit assets of projectID strictly older than
// before, newest first, straight from the timestamp index. Assets sharing the
// boundary timestamp of the previous call are not returned; ListPage has no
// such gap.
func (s *Service) ListBefore(ctx context.Context, projectID string, limit int, before *int64) ([]models.Asset, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	rows, err := s.repo.GetByProject(ctx, projectID, s.limits.Normalize(limit), before)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "list assets")
	}
	return rows, nil
}

// GenerationOutput is what a finished generation call hands over.
type GenerationOutput struct {
	ProjectID    string
	CollectionID *string
	ModelID      *string
	Blob         []byte
	MimeType     string
	Type         enums.MediaType
	Tier         enums.GenerationTier
	KeyTier      enums.KeyTier
	Prompt       string
	Cost         decimal.Decimal
	Tags         []string
}

// SaveGenerated persists a generated asset and records it in the usage
// stats. A stats failure does not undo the saved asset. The project id is
// not checked against existing projects.
func (s *Service) SaveGenerated(ctx context.Context, out GenerationOutput) (*models.Asset, error) {
	asset, err := s.buildAsset(out)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Add(ctx, *asset); err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "save asset")
	}

	ctx = s.logg.WithAssetID(s.logg.WithProjectID(ctx, asset.ProjectID), asset.ID)
	if _, err := s.stats.TrackAsset(ctx, asset.Type, asset.KeyTier, asset.Cost); err != nil {
		s.logg.Error(ctx, "failed to track generated asset", err)
	}
	if _, err := s.stats.RefreshStorage(ctx); err != nil {
		s.logg.Error(ctx, "failed to refresh storage estimate", err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"type":       asset.Type,
		"tier":       asset.Tier,
		"size_bytes": asset.SizeBytes,
	}), "generated asset saved")
	return asset, nil
}

func (s *Service) buildAsset(out GenerationOutput) (*models.Asset, error) {
	projectID := strings.TrimSpace(out.ProjectID)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if len(out.Blob) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "asset payload is empty")
	}

	mimeType := strings.TrimSpace(out.MimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(out.Blob).String()
	}

	mediaType := out.Type
	if mediaType == "" {
		mediaType = enums.MediaTypeImage
		if strings.HasPrefix(mimeType, "video/") {
			mediaType = enums.MediaTypeVideo
		}
	}
	if !mediaType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid media type %q", mediaType))
	}

	tier := out.Tier
	if tier == "" {
		tier = enums.GenerationTierSketch
	}
	if !tier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid generation tier %q", tier))
	}

	keyTier := out.KeyTier
	if keyTier == "" {
		keyTier = enums.KeyTierFree
	}
	if !keyTier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid key tier %q", keyTier))
	}
	if out.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost cannot be negative")
	}

	now := s.now()
	return &models.Asset{
		ID:           ids.Timed(now),
		ProjectID:    projectID,
		CollectionID: out.CollectionID,
		ModelID:      out.ModelID,
		Blob:         out.Blob,
		MimeType:     mimeType,
		SizeBytes:    int64(len(out.Blob)),
		Type:         mediaType,
		Tier:         tier,
		KeyTier:      keyTier,
		Prompt:       out.Prompt,
		Cost:         out.Cost,
		Timestamp:    now.UnixMilli(),
		Tags:         out.Tags,
	}, nil
}

// Content returns the asset with its payload.
func (s *Service) Content(ctx context.Context, id string) (*models.Asset, error) {
	asset, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load asset")
	}
	if asset == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	return asset, nil
}

// Delete removes one asset. Deleting a missing asset succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "asset id required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "delete asset")
	}
	return nil
}

func (s *Service) DeleteMany(ctx context.Context, assetIDs []string) error {
	if err := s.repo.DeleteMany(ctx, assetIDs); err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "delete assets")
	}
	return nil
}
