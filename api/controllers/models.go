package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/api/validators"
	"github.com/angelmondragon/studiovault/internal/modelcatalog"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

type modelService interface {
	Add(ctx context.Context, input modelcatalog.AddInput) (*models.Model, error)
	List(ctx context.Context) ([]models.Model, error)
	Delete(ctx context.Context, id string) error
}

type saveModelRequest struct {
	ID         string         `json:"id,omitempty" validate:"max=128"`
	Name       string         `json:"name" validate:"required,max=200"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Morphology map[string]any `json:"morphology,omitempty"`
}

func ModelList(svc modelService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ModelSave creates a model, or replaces it when the body names an existing id.
func ModelSave(svc modelService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload saveModelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		model, err := svc.Add(r.Context(), modelcatalog.AddInput{
			ID:         validators.SanitizeString(payload.ID, 128),
			Name:       validators.SanitizeString(payload.Name, 200),
			Attributes: payload.Attributes,
			Morphology: payload.Morphology,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, model)
	}
}

func ModelDelete(svc modelService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "modelId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
