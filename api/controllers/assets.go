package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/api/validators"
	"github.com/angelmondragon/studiovault/internal/assets"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/enums"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

type assetService interface {
	ListPage(ctx context.Context, params assets.ListParams) (*assets.Page, error)
	ListBefore(ctx context.Context, projectID string, limit int, before *int64) ([]models.Asset, error)
	SaveGenerated(ctx context.Context, out assets.GenerationOutput) (*models.Asset, error)
	Content(ctx context.Context, id string) (*models.Asset, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, assetIDs []string) error
}

// assetView is the gallery shape of an asset: metadata plus the display URL
// of its payload when the page was read into a scope.
type assetView struct {
	models.Asset
	DisplayID  string `json:"display_id,omitempty"`
	DisplayURL string `json:"display_url,omitempty"`
}

type assetPageResponse struct {
	Items      []assetView `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
	NextBefore *int64      `json:"next_before,omitempty"`
}

func newAssetView(asset models.Asset) assetView {
	view := assetView{Asset: asset}
	if asset.Display != nil {
		view.DisplayID = asset.Display.ID()
		view.DisplayURL = asset.Display.URL()
	}
	return view
}

// AssetList serves one gallery page. The scope query parameter names the
// display scope for the page's payload URLs; without it only metadata is
// returned. A before timestamp switches to the timestamp-bounded listing,
// which pages with next_before instead of a cursor.
func AssetList(svc assetService, maxLimit int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()

		if query.Has("before") {
			before, err := validators.ParseQueryInt64(r, "before", 1)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			rows, err := svc.ListBefore(r.Context(), chi.URLParam(r, "projectId"), limit, before)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			resp := assetPageResponse{Items: make([]assetView, 0, len(rows))}
			for _, row := range rows {
				resp.Items = append(resp.Items, newAssetView(row))
			}
			if len(rows) > 0 {
				last := rows[len(rows)-1].Timestamp
				resp.NextBefore = &last
			}
			responses.WriteSuccess(w, resp)
			return
		}

		page, err := svc.ListPage(r.Context(), assets.ListParams{
			ProjectID: chi.URLParam(r, "projectId"),
			Limit:     limit,
			Cursor:    strings.TrimSpace(query.Get("cursor")),
			Scope:     validators.SanitizeString(query.Get("scope"), 64),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := assetPageResponse{Items: make([]assetView, 0, len(page.Items)), NextCursor: page.NextCursor}
		for _, item := range page.Items {
			resp.Items = append(resp.Items, newAssetView(item))
		}
		responses.WriteSuccess(w, resp)
	}
}

// Data carries the payload base64 encoded.
type createAssetRequest struct {
	ProjectID    string   `json:"project_id" validate:"required"`
	CollectionID *string  `json:"collection_id,omitempty"`
	ModelID      *string  `json:"model_id,omitempty"`
	Data         []byte   `json:"data" validate:"required"`
	MimeType     string   `json:"mime_type" validate:"max=128"`
	Type         string   `json:"type" validate:"omitempty,oneof=IMAGE VIDEO"`
	Tier         string   `json:"tier" validate:"omitempty,oneof=SKETCH RENDER"`
	KeyTier      string   `json:"key_tier" validate:"omitempty,oneof=FREE PAID"`
	Prompt       string   `json:"prompt"`
	Cost         string   `json:"cost" validate:"decimal"`
	Tags         []string `json:"tags,omitempty" validate:"omitempty,dive,required,max=64"`
}

func (r createAssetRequest) toOutput() (assets.GenerationOutput, error) {
	cost := decimal.Zero
	if raw := strings.TrimSpace(r.Cost); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return assets.GenerationOutput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cost")
		}
		cost = parsed
	}
	return assets.GenerationOutput{
		ProjectID:    strings.TrimSpace(r.ProjectID),
		CollectionID: r.CollectionID,
		ModelID:      r.ModelID,
		Blob:         r.Data,
		MimeType:     strings.TrimSpace(r.MimeType),
		Type:         enums.MediaType(r.Type),
		Tier:         enums.GenerationTier(r.Tier),
		KeyTier:      enums.KeyTier(r.KeyTier),
		Prompt:       r.Prompt,
		Cost:         cost,
		Tags:         r.Tags,
	}, nil
}

func AssetCreate(svc assetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createAssetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := payload.toOutput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		asset, err := svc.SaveGenerated(r.Context(), out)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newAssetView(*asset))
	}
}

type deleteAssetsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=1000,dive,required"`
}

func AssetDeleteMany(svc assetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload deleteAssetsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteMany(r.Context(), payload.IDs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func AssetDelete(svc assetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "assetId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AssetContent streams the stored payload of one asset.
func AssetContent(svc assetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, err := svc.Content(r.Context(), chi.URLParam(r, "assetId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteBinary(w, asset.MimeType, asset.Blob)
	}
}
