package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/pkg/config"
	"github.com/angelmondragon/studiovault/pkg/db"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

const envHeader = "X-StudioVault-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the local store. Failure to open the database file
// reports 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStorageUnavailable, "store not configured"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Ensure(pkgerrors.CodeStorageUnavailable, err, "store ping failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
