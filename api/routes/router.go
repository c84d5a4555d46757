package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/studiovault/api/controllers"
	"github.com/angelmondragon/studiovault/api/middleware"
	"github.com/angelmondragon/studiovault/internal/archive"
	"github.com/angelmondragon/studiovault/internal/assets"
	"github.com/angelmondragon/studiovault/internal/collections"
	"github.com/angelmondragon/studiovault/internal/compression"
	"github.com/angelmondragon/studiovault/internal/cron"
	"github.com/angelmondragon/studiovault/internal/modelcatalog"
	"github.com/angelmondragon/studiovault/internal/presets"
	"github.com/angelmondragon/studiovault/internal/projects"
	"github.com/angelmondragon/studiovault/internal/stats"
	"github.com/angelmondragon/studiovault/pkg/config"
	"github.com/angelmondragon/studiovault/pkg/db"
	"github.com/angelmondragon/studiovault/pkg/display"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

// Services is everything the API routes to. Maintenance is optional; without
// it the job trigger routes are not mounted.
type Services struct {
	Projects    projects.Service
	Assets      *assets.Service
	Collections *collections.Service
	Archive     *archive.Service
	Models      *modelcatalog.Service
	Presets     *presets.Service
	Stats       *stats.Service
	Compression *compression.Service
	Maintenance *cron.Service
	Display     *display.Registry
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
	})

	gatherer := svc.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", controllers.ProjectList(svc.Projects, logg))
			r.Post("/", controllers.ProjectCreate(svc.Projects, logg))
			r.Route("/{projectId}", func(r chi.Router) {
				r.Get("/", controllers.ProjectGet(svc.Projects, logg))
				r.Patch("/", controllers.ProjectUpdate(svc.Projects, logg))
				r.Delete("/", controllers.ProjectDelete(svc.Projects, logg))
				r.Get("/assets", controllers.AssetList(svc.Assets, cfg.Gallery.MaxLimit, logg))
				r.Get("/collections", controllers.CollectionList(svc.Collections, logg))
				r.Post("/collections", controllers.CollectionCreate(svc.Collections, logg))
				r.Get("/export", controllers.ProjectExport(svc.Archive, logg))
			})
		})
		r.Delete("/collections/{collectionId}", controllers.CollectionDelete(svc.Collections, logg))
		r.Post("/imports", controllers.ArchiveImport(svc.Archive, cfg.Archive.MaxImportBytes, logg))

		r.Route("/assets", func(r chi.Router) {
			r.Post("/", controllers.AssetCreate(svc.Assets, logg))
			r.Delete("/", controllers.AssetDeleteMany(svc.Assets, logg))
			r.Delete("/{assetId}", controllers.AssetDelete(svc.Assets, logg))
			r.Get("/{assetId}/content", controllers.AssetContent(svc.Assets, logg))
		})

		r.Route("/blobs", func(r chi.Router) {
			r.Get("/{handleId}", controllers.BlobGet(svc.Display, logg))
			r.Delete("/{handleId}", controllers.BlobRelease(svc.Display, logg))
		})
		r.Delete("/blob-scopes/{scope}", controllers.BlobScopeRelease(svc.Display))

		r.Route("/models", func(r chi.Router) {
			r.Get("/", controllers.ModelList(svc.Models, logg))
			r.Post("/", controllers.ModelSave(svc.Models, logg))
			r.Delete("/{modelId}", controllers.ModelDelete(svc.Models, logg))
		})

		r.Route("/presets", func(r chi.Router) {
			r.Get("/", controllers.PresetList(svc.Presets, logg))
			r.Post("/", controllers.PresetCreate(svc.Presets, logg))
			r.Get("/export", controllers.PresetExport(svc.Presets, logg))
			r.Post("/import", controllers.PresetImport(svc.Presets, logg))
			r.Delete("/{presetId}", controllers.PresetDelete(svc.Presets, logg))
		})

		r.Get("/storage/estimate", controllers.StorageEstimate(svc.Stats))
		r.Get("/stats", controllers.UsageStats(svc.Stats, logg))

		r.Route("/maintenance", func(r chi.Router) {
			r.Post("/compress", controllers.MaintenanceCompress(svc.Compression, logg))
			if svc.Maintenance != nil {
				r.Get("/jobs", controllers.MaintenanceJobs(svc.Maintenance))
				r.Post("/jobs/{job}", controllers.MaintenanceRunJob(svc.Maintenance, logg))
			}
		})
	})

	return r
}
