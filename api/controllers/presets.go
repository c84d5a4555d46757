package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/api/validators"
	"github.com/angelmondragon/studiovault/internal/presets"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/enums"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

// maxPresetDocumentBytes bounds an uploaded presets document.
const maxPresetDocumentBytes = 4 << 20

type presetService interface {
	Add(ctx context.Context, input presets.AddInput) (*models.Preset, error)
	List(ctx context.Context, workspace enums.WorkspaceKind) ([]models.Preset, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, data []byte) (*presets.ImportResult, error)
}

type createPresetRequest struct {
	Name      string         `json:"name" validate:"required,max=200"`
	Workspace string         `json:"workspace" validate:"required,oneof=STUDIO INFLUENCER MOTION"`
	Settings  map[string]any `json:"settings,omitempty"`
}

func PresetList(svc presetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var workspace enums.WorkspaceKind
		if raw := strings.TrimSpace(r.URL.Query().Get("workspace")); raw != "" {
			parsed, err := enums.ParseWorkspaceKind(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid workspace"))
				return
			}
			workspace = parsed
		}

		items, err := svc.List(r.Context(), workspace)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func PresetCreate(svc presetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPresetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		preset, err := svc.Add(r.Context(), presets.AddInput{
			Name:      validators.SanitizeString(payload.Name, 200),
			Workspace: enums.WorkspaceKind(payload.Workspace),
			Settings:  payload.Settings,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, preset)
	}
}

func PresetDelete(svc presetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "presetId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// PresetExport downloads every preset as a JSON array file.
func PresetExport(svc presetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.Export(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="presets.json"`)
		responses.WriteBinary(w, "application/json", data)
	}
}

func PresetImport(svc presetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPresetDocumentBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "presets document too large"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read presets document"))
			return
		}

		result, err := svc.Import(r.Context(), data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
