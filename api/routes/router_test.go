package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/studiovault/internal/archive"
	"github.com/angelmondragon/studiovault/internal/assets"
	"github.com/angelmondragon/studiovault/internal/collections"
	"github.com/angelmondragon/studiovault/internal/compression"
	"github.com/angelmondragon/studiovault/internal/cron"
	"github.com/angelmondragon/studiovault/internal/dbtest"
	"github.com/angelmondragon/studiovault/internal/modelcatalog"
	"github.com/angelmondragon/studiovault/internal/presets"
	"github.com/angelmondragon/studiovault/internal/projects"
	"github.com/angelmondragon/studiovault/internal/stats"
	"github.com/angelmondragon/studiovault/internal/storage"
	"github.com/angelmondragon/studiovault/pkg/config"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/display"
	"github.com/angelmondragon/studiovault/pkg/enums"
	"github.com/angelmondragon/studiovault/pkg/logger"
	"github.com/angelmondragon/studiovault/pkg/metrics"
	"github.com/angelmondragon/studiovault/pkg/pagination"
)

type stubJob struct {
	runs int
}

func (s *stubJob) Name() string { return "stub-job" }

func (s *stubJob) Run(context.Context) error {
	s.runs++
	return nil
}

type testEnv struct {
	handler  http.Handler
	registry *display.Registry
	assets   *assets.Repository
	job      *stubJob
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test"},
		Gallery: config.GalleryConfig{DefaultLimit: 10, MaxLimit: 50},
		Archive: config.ArchiveConfig{MaxImportBytes: 64 << 20},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	h := dbtest.New(t)
	logg := logger.Nop()
	reg := prometheus.NewRegistry()

	assetRepo := assets.NewRepository(h)
	collectionRepo := collections.NewRepository(h)
	statsSvc := stats.NewService(h, storage.NoopEstimator{})
	registry := display.NewRegistry()

	projectSvc, err := projects.NewService(projects.ServiceParams{Store: h, Assets: assetRepo, Collections: collectionRepo, Logger: logg})
	require.NoError(t, err)
	assetSvc, err := assets.NewService(assets.ServiceParams{
		Repo:     assetRepo,
		Stats:    statsSvc,
		Registry: registry,
		Limits:   pagination.Limits{Default: 10, Max: 50},
		Logger:   logg,
	})
	require.NoError(t, err)
	collectionSvc, err := collections.NewService(collectionRepo, projectSvc)
	require.NoError(t, err)
	archiveSvc, err := archive.NewService(archive.ServiceParams{Store: h, Assets: assetRepo, Logger: logg})
	require.NoError(t, err)
	modelSvc, err := modelcatalog.NewService(h)
	require.NoError(t, err)
	presetSvc, err := presets.NewService(h)
	require.NoError(t, err)
	compressionSvc, err := compression.NewService(compression.ServiceParams{
		Assets:    assetRepo,
		Reclaimer: h,
		Metrics:   metrics.NewStorageMetrics(reg),
		Logger:    logg,
	})
	require.NoError(t, err)

	job := &stubJob{}
	maintenance, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Lock:     cron.NewLocalLock(),
		Metrics:  metrics.NewJobMetrics(reg),
	})
	require.NoError(t, err)

	handler := NewRouter(testConfig(), logg, h, Services{
		Projects:    projectSvc,
		Assets:      assetSvc,
		Collections: collectionSvc,
		Archive:     archiveSvc,
		Models:      modelSvc,
		Presets:     presetSvc,
		Stats:       statsSvc,
		Compression: compressionSvc,
		Maintenance: maintenance,
		Display:     registry,
		Gatherer:    reg,
	})
	return &testEnv{handler: handler, registry: registry, assets: assetRepo, job: job}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return e.do(t, method, path, bytes.NewReader(data))
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope), w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
	return envelope.Error.Code
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type projectBody struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func createProject(t *testing.T, env *testEnv, name string) projectBody {
	t.Helper()
	w := env.doJSON(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": name, "budget": "12.50"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var project projectBody
	decodeData(t, w, &project)
	return project
}

func createAsset(t *testing.T, env *testEnv, projectID string) string {
	t.Helper()
	w := env.doJSON(t, http.MethodPost, "/api/v1/assets", map[string]any{
		"project_id": projectID,
		"data":       testPNG(t),
		"prompt":     "studio portrait",
		"cost":       "0.02",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var asset struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	}
	decodeData(t, w, &asset)
	require.Equal(t, "image/png", asset.MimeType)
	return asset.ID
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", w.Header().Get("X-StudioVault-Env"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = env.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	project := createProject(t, env, "Spring Lookbook")

	w := env.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []projectBody
	decodeData(t, w, &list)
	require.Len(t, list, 1)

	w = env.doJSON(t, http.MethodPatch, "/api/v1/projects/"+project.ID, map[string]any{"name": "Summer Lookbook"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated projectBody
	decodeData(t, w, &updated)
	assert.Equal(t, "Summer Lookbook", updated.Name)

	w = env.do(t, http.MethodDelete, "/api/v1/projects/"+project.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/projects/"+project.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestProjectCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/v1/projects", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/v1/projects", map[string]any{"name": "x", "budget": "lots"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGalleryScopeServesAndReleasesBlobs(t *testing.T) {
	env := newTestEnv(t)
	project := createProject(t, env, "Gallery")
	createAsset(t, env, project.ID)
	createAsset(t, env, project.ID)

	w := env.do(t, http.MethodGet, "/api/v1/projects/"+project.ID+"/assets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plain struct {
		Items []struct {
			DisplayURL string `json:"display_url"`
		} `json:"items"`
	}
	decodeData(t, w, &plain)
	require.Len(t, plain.Items, 2)
	assert.Empty(t, plain.Items[0].DisplayURL)

	w = env.do(t, http.MethodGet, "/api/v1/projects/"+project.ID+"/assets?limit=1&scope=gallery", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []struct {
			ID         string `json:"id"`
			DisplayURL string `json:"display_url"`
		} `json:"items"`
		NextCursor string `json:"next_cursor"`
	}
	decodeData(t, w, &page)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)
	require.True(t, strings.HasPrefix(page.Items[0].DisplayURL, display.DefaultBasePath+"/"))

	w = env.do(t, http.MethodGet, page.Items[0].DisplayURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = env.do(t, http.MethodDelete, "/api/v1/blob-scopes/gallery", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var released map[string]int
	decodeData(t, w, &released)
	assert.Equal(t, 1, released["released"])

	w = env.do(t, http.MethodGet, page.Items[0].DisplayURL, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/assets/"+page.Items[0].ID+"/content", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAssetListRejectsBadLimit(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/projects/p/assets?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssetListBeforeTimestamp(t *testing.T) {
	env := newTestEnv(t)
	var rows []models.Asset
	for ts := int64(1); ts <= 5; ts++ {
		rows = append(rows, models.Asset{
			ID: fmt.Sprintf("a-%d", ts), ProjectID: "p", Blob: []byte{1}, MimeType: "image/png", SizeBytes: 1,
			Type: enums.MediaTypeImage, Tier: enums.GenerationTierSketch, KeyTier: enums.KeyTierFree,
			Cost: decimal.Zero, Timestamp: ts,
		})
	}
	require.NoError(t, env.assets.AddMany(context.Background(), rows))

	type page struct {
		Items []struct {
			Timestamp int64 `json:"timestamp"`
		} `json:"items"`
		NextBefore *int64 `json:"next_before"`
	}
	read := func(path string) page {
		w := env.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var p page
		decodeData(t, w, &p)
		return p
	}

	first := read("/api/v1/projects/p/assets?limit=2&before=6")
	require.Len(t, first.Items, 2)
	assert.Equal(t, int64(5), first.Items[0].Timestamp)
	assert.Equal(t, int64(4), first.Items[1].Timestamp)
	require.NotNil(t, first.NextBefore)
	assert.Equal(t, int64(4), *first.NextBefore)

	second := read(fmt.Sprintf("/api/v1/projects/p/assets?limit=2&before=%d", *first.NextBefore))
	require.Len(t, second.Items, 2)
	assert.Equal(t, int64(3), second.Items[0].Timestamp)

	w := env.do(t, http.MethodGet, "/api/v1/projects/p/assets?before=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPurgeRemovesChildren(t *testing.T) {
	env := newTestEnv(t)
	project := createProject(t, env, "Purge me")
	createAsset(t, env, project.ID)

	w := env.doJSON(t, http.MethodPost, "/api/v1/projects/"+project.ID+"/collections", map[string]any{"name": "Hero shots"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodDelete, "/api/v1/projects/"+project.ID+"?purge=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result projects.PurgeResult
	decodeData(t, w, &result)
	assert.Equal(t, int64(1), result.AssetsDeleted)
	assert.Equal(t, int64(1), result.CollectionsDeleted)
}

func TestCollectionRequiresProject(t *testing.T) {
	env := newTestEnv(t)
	w := env.doJSON(t, http.MethodPost, "/api/v1/projects/missing/collections", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	project := createProject(t, env, "Portable")
	createAsset(t, env, project.ID)

	w := env.do(t, http.MethodGet, "/api/v1/projects/"+project.ID+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	zipped := w.Body.Bytes()

	w = env.do(t, http.MethodPost, "/api/v1/imports", bytes.NewReader(zipped))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result archive.ImportResult
	decodeData(t, w, &result)
	assert.Equal(t, 1, result.AssetsImported)
	assert.Equal(t, "Portable (Imported)", result.ProjectName)

	w = env.do(t, http.MethodGet, "/api/v1/projects", nil)
	var list []projectBody
	decodeData(t, w, &list)
	assert.Len(t, list, 2)
}

func TestExportMissingProjectIsJSONError(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/projects/nope/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestImportRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/imports", strings.NewReader("definitely not a zip"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ARCHIVE_STRUCTURE_INVALID", errorCode(t, w))
}

func TestPresetsExportImport(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/v1/presets", map[string]any{
		"name":      "Soft light",
		"workspace": "STUDIO",
		"settings":  map[string]any{"lighting": "soft"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.doJSON(t, http.MethodPost, "/api/v1/presets", map[string]any{"name": "Bad", "workspace": "KITCHEN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/presets/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := w.Body.Bytes()

	w = env.do(t, http.MethodPost, "/api/v1/presets/import", bytes.NewReader(doc))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result presets.ImportResult
	decodeData(t, w, &result)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Renamed)

	w = env.do(t, http.MethodGet, "/api/v1/presets?workspace=studio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	decodeData(t, w, &list)
	assert.Len(t, list, 2)
}

func TestModelsCatalog(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodPost, "/api/v1/models", map[string]any{"name": "Ava", "attributes": map[string]any{"hair": "red"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var model struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &model)

	w = env.do(t, http.MethodDelete, "/api/v1/models/"+model.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/models", nil)
	var list []map[string]any
	decodeData(t, w, &list)
	assert.Empty(t, list)
}

func TestStatsAndEstimate(t *testing.T) {
	env := newTestEnv(t)
	project := createProject(t, env, "Stats")
	createAsset(t, env, project.ID)

	w := env.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage struct {
		FreeImages    int64  `json:"free_images"`
		EstimatedCost string `json:"estimated_cost"`
	}
	decodeData(t, w, &usage)
	assert.Equal(t, int64(1), usage.FreeImages)
	assert.Equal(t, "0.02", usage.EstimatedCost)

	w = env.do(t, http.MethodGet, "/api/v1/storage/estimate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var estimate map[string]any
	decodeData(t, w, &estimate)
	assert.EqualValues(t, 0, estimate["quota"])
}

func TestMaintenanceRoutes(t *testing.T) {
	env := newTestEnv(t)
	project := createProject(t, env, "Sweep")
	createAsset(t, env, project.ID)

	w := env.do(t, http.MethodPost, "/api/v1/maintenance/compress", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sweep struct {
		Examined int `json:"examined"`
	}
	decodeData(t, w, &sweep)
	assert.Equal(t, 1, sweep.Examined)

	w = env.doJSON(t, http.MethodPost, "/api/v1/maintenance/compress", map[string]any{"aggressive": true})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/maintenance/jobs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var jobs map[string][]string
	decodeData(t, w, &jobs)
	assert.Equal(t, []string{"stub-job"}, jobs["jobs"])

	w = env.do(t, http.MethodPost, "/api/v1/maintenance/jobs/stub-job", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.job.runs)

	w = env.do(t, http.MethodPost, "/api/v1/maintenance/jobs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkDeleteAssets(t *testing.T) {
	env := newTestEnv(t)
	project := createProject(t, env, "Bulk")
	first := createAsset(t, env, project.ID)
	second := createAsset(t, env, project.ID)

	w := env.doJSON(t, http.MethodDelete, "/api/v1/assets", map[string]any{"ids": []string{first, second}})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/assets/"+first+"/content", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doJSON(t, http.MethodDelete, "/api/v1/assets", map[string]any{"ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
