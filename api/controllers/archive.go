package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/studiovault/api/responses"
	"github.com/angelmondragon/studiovault/internal/archive"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

type archiveService interface {
	Export(ctx context.Context, projectID string, w io.Writer) error
	Import(ctx context.Context, r io.ReaderAt, size int64) (*archive.ImportResult, error)
}

// attachmentWriter defers the download headers until the first byte so an
// error raised before any output still gets a JSON envelope.
type attachmentWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		a.w.Header().Set("Content-Type", "application/zip")
		a.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.filename))
		a.w.WriteHeader(http.StatusOK)
	}
	return a.w.Write(p)
}

func ProjectExport(svc archiveService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectId")
		out := &attachmentWriter{w: w, filename: projectID + ".zip"}

		if err := svc.Export(r.Context(), projectID, out); err != nil {
			if !out.started {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				logg.Error(logg.WithProjectID(r.Context(), projectID), "export aborted mid-stream", err)
			}
		}
	}
}

// ArchiveImport loads a zip body as a new project. The body is spooled to a
// temporary file because the zip directory sits at the end of the archive.
func ArchiveImport(svc archiveService, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := r.Body
		if maxBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, maxBytes)
		}

		spool, err := os.CreateTemp("", "studiovault-import-*.zip")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create import spool"))
			return
		}
		defer func() {
			_ = spool.Close()
			_ = os.Remove(spool.Name())
		}()

		size, err := io.Copy(spool, body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "archive exceeds the import size limit").
					WithDetails(map[string]any{"max_bytes": tooLarge.Limit}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read archive body"))
			return
		}
		if size == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "archive body is empty"))
			return
		}

		result, err := svc.Import(r.Context(), spool, size)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
