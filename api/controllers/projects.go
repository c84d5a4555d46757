package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/api/validators"
	"github.com/angelmondragon/studiovault/internal/projects"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

type createProjectRequest struct {
	Name               string  `json:"name" validate:"required,max=200"`
	Description        string  `json:"description" validate:"max=4000"`
	CustomInstructions string  `json:"custom_instructions" validate:"max=20000"`
	Budget             *string `json:"budget,omitempty"`
}

func (r createProjectRequest) toInput() (projects.CreateInput, error) {
	budget, err := parseBudget(r.Budget)
	if err != nil {
		return projects.CreateInput{}, err
	}
	return projects.CreateInput{
		Name:               validators.SanitizeString(r.Name, 200),
		Description:        strings.TrimSpace(r.Description),
		CustomInstructions: r.CustomInstructions,
		Budget:             budget,
	}, nil
}

type updateProjectRequest struct {
	Name               *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description        *string `json:"description,omitempty" validate:"omitempty,max=4000"`
	CustomInstructions *string `json:"custom_instructions,omitempty" validate:"omitempty,max=20000"`
	Budget             *string `json:"budget,omitempty"`
	ClearBudget        bool    `json:"clear_budget,omitempty"`
}

func (r updateProjectRequest) toInput() (projects.UpdateInput, error) {
	budget, err := parseBudget(r.Budget)
	if err != nil {
		return projects.UpdateInput{}, err
	}
	input := projects.UpdateInput{
		Description:        r.Description,
		CustomInstructions: r.CustomInstructions,
		Budget:             budget,
		ClearBudget:        r.ClearBudget,
	}
	if r.Name != nil {
		name := validators.SanitizeString(*r.Name, 200)
		input.Name = &name
	}
	return input, nil
}

func parseBudget(raw *string) (*decimal.Decimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid budget").WithDetails(map[string]string{"budget": "must be a decimal"})
	}
	if d.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "budget cannot be negative")
	}
	return &d, nil
}

func ProjectList(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ProjectCreate(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProjectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, project)
	}
}

func ProjectGet(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := svc.Get(r.Context(), chi.URLParam(r, "projectId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

func ProjectUpdate(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateProjectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.Update(r.Context(), chi.URLParam(r, "projectId"), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

// ProjectDelete removes the project row. With ?purge=true its assets and
// collections go with it in the same transaction.
func ProjectDelete(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectId")
		purge, err := validators.ParseQueryBool(r, "purge")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if purge {
			result, err := svc.Purge(r.Context(), projectID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
			return
		}

		if err := svc.Delete(r.Context(), projectID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
