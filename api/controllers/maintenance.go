package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/multierr"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/api/validators"
	"github.com/angelmondragon/studiovault/internal/compression"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

type compressionService interface {
	Sweep(ctx context.Context, opts compression.Options) (*compression.Result, error)
}

type jobRunner interface {
	RunJob(ctx context.Context, name string) error
	Names() []string
}

type compressRequest struct {
	Aggressive bool `json:"aggressive"`
}

type compressResponse struct {
	*compression.Result
	DurationMS int64    `json:"duration_ms"`
	Errors     []string `json:"errors,omitempty"`
}

// MaintenanceCompress runs one compression sweep synchronously. An empty
// body runs the standard sweep.
func MaintenanceCompress(svc compressionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload compressRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Sweep(r.Context(), compression.Options{Aggressive: payload.Aggressive})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := compressResponse{Result: result, DurationMS: result.Duration.Milliseconds()}
		for _, itemErr := range multierr.Errors(result.ItemErrors) {
			resp.Errors = append(resp.Errors, itemErr.Error())
		}
		responses.WriteSuccess(w, resp)
	}
}

func MaintenanceJobs(runner jobRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string][]string{"jobs": runner.Names()})
	}
}

// MaintenanceRunJob runs a registered job now. A job already running under
// the maintenance lock answers 409.
func MaintenanceRunJob(runner jobRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "job")
		if err := runner.RunJob(r.Context(), name); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Ensure(pkgerrors.CodeInternal, err, "maintenance job failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"job": name, "status": "completed"})
	}
}
