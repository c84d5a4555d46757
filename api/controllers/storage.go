package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/internal/storage"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

type statsService interface {
	Get(ctx context.Context) (models.UsageStats, error)
	Estimate(ctx context.Context) storage.Estimate
}

type storageEstimateResponse struct {
	storage.Estimate
	UsedFraction float64 `json:"used_fraction"`
}

// StorageEstimate reports the live footprint. Hosts that cannot measure it
// answer zeros rather than an error.
func StorageEstimate(svc statsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		estimate := svc.Estimate(r.Context())
		responses.WriteSuccess(w, storageEstimateResponse{Estimate: estimate, UsedFraction: estimate.UsedFraction()})
	}
}

func UsageStats(svc statsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
