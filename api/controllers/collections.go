package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/api/validators"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

type collectionService interface {
	Create(ctx context.Context, projectID, name string) (*models.Collection, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Collection, error)
	Delete(ctx context.Context, id string) error
}

type createCollectionRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

func CollectionList(svc collectionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListByProject(r.Context(), chi.URLParam(r, "projectId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func CollectionCreate(svc collectionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createCollectionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		collection, err := svc.Create(r.Context(), chi.URLParam(r, "projectId"), validators.SanitizeString(payload.Name, 200))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, collection)
	}
}

func CollectionDelete(svc collectionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "collectionId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
