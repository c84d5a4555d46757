package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/pkg/display"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

type displayRegistry interface {
	Resolve(id string) (display.Entry, bool)
	Revoke(id string) bool
	ReleaseScope(name string) int
}

// BlobGet serves the payload behind a display handle. Released or reaped
// handles answer 404.
func BlobGet(registry displayRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := registry.Resolve(chi.URLParam(r, "handleId"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "display handle not found"))
			return
		}
		responses.WriteBinary(w, entry.MimeType, entry.Blob)
	}
}

func BlobRelease(registry displayRegistry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !registry.Revoke(chi.URLParam(r, "handleId")) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "display handle not found"))
			return
		}
		responses.WriteNoContent(w)
	}
}

// BlobScopeRelease releases every handle of a view, for example when the
// gallery unmounts.
func BlobScopeRelease(registry displayRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		released := registry.ReleaseScope(chi.URLParam(r, "scope"))
		responses.WriteSuccess(w, map[string]int{"released": released})
	}
}
