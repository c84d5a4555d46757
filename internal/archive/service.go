// Package archive packs a project into a portable zip and loads such a zip
// back as a new project.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
	"gorm.io/gorm"

	"github.com/angelmondragon/studiovault/internal/assets"
	"github.com/angelmondragon/studiovault/internal/repo"
	"github.com/angelmondragon/studiovault/pkg/db/models"
	pkgerrors "github.com/angelmondragon/studiovault/pkg/errors"
	"github.com/angelmondragon/studiovault/pkg/ids"
	"github.com/angelmondragon/studiovault/pkg/logger"
)

// maxMetadataBytes bounds each JSON document read from an archive.
const maxMetadataBytes = 64 << 20

// defaultMaxUnpackedBytes bounds the decompressed size of all binaries read
// by one import.
const defaultMaxUnpackedBytes = 8 << 30

type ServiceParams struct {
	Store  repo.Store
	Assets *assets.Repository
	Logger *logger.Logger
	// MaxUnpackedBytes caps the total decompressed payload of one import.
	MaxUnpackedBytes int64
}

type Service struct {
	store    repo.Store
	assets   *assets.Repository
	projects *repo.Repository[models.Project]
	models   *repo.Repository[models.Model]
	logg     *logger.Logger
	now      func() time.Time

	maxUnpacked int64
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	maxUnpacked := params.MaxUnpackedBytes
	if maxUnpacked <= 0 {
		maxUnpacked = defaultMaxUnpackedBytes
	}
	return &Service{
		store:    params.Store,
		assets:   params.Assets,
		projects: repo.New[models.Project](params.Store),
		models:   repo.New[models.Model](params.Store),
		logg:     logg,
		now:      time.Now,

		maxUnpacked: maxUnpacked,
	}, nil
}

// Export writes projectID, the whole model catalog and every asset of the
// project to w as a zip archive.
func (s *Service) Export(ctx context.Context, projectID string, w io.Writer) error {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load project")
	}
	if project == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
	}
	catalog, err := s.models.GetAll(ctx)
	if err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load models")
	}
	rows, err := s.assets.ListByProject(ctx, projectID)
	if err != nil {
		return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load assets")
	}
	if catalog == nil {
		catalog = []models.Model{}
	}

	entries := make([]ArchivedAsset, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, ArchivedAsset{Asset: row, FileName: fileNameFor(row)})
	}

	zw := zip.NewWriter(w)
	modified := s.now()
	if err := writeJSON(zw, ProjectEntry, project, modified); err != nil {
		return err
	}
	if err := writeJSON(zw, ModelsEntry, catalog, modified); err != nil {
		return err
	}
	if err := writeJSON(zw, AssetsEntry, entries, modified); err != nil {
		return err
	}
	for _, entry := range entries {
		// payloads are already compressed media
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     AssetsDir + entry.FileName,
			Method:   zip.Store,
			Modified: time.UnixMilli(entry.Timestamp),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create archive entry")
		}
		if _, err := fw.Write(entry.Blob); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write archive entry")
		}
	}
	if err := zw.Close(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finish archive")
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithProjectID(ctx, projectID), map[string]any{
		"assets": len(entries),
		"models": len(catalog),
	}), "project exported")
	return nil
}

func writeJSON(zw *zip.Writer, name string, v any, modified time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create archive entry")
	}
	enc := json.NewEncoder(fw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encode %s", name))
	}
	return nil
}

// Import reads an archive produced by Export and stores it as a new project.
// The structure is checked before anything is written, and everything is
// then written in one transaction.
func (s *Service) Import(ctx context.Context, r io.ReaderAt, size int64) (*ImportResult, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeArchiveInvalid, err, "not a zip archive")
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var (
		project models.Project
		catalog []models.Model
		entries []ArchivedAsset
	)
	if err := readJSON(files, ProjectEntry, &project); err != nil {
		return nil, err
	}
	if err := readJSON(files, ModelsEntry, &catalog); err != nil {
		return nil, err
	}
	if err := readJSON(files, AssetsEntry, &entries); err != nil {
		return nil, err
	}
	if project.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeArchiveInvalid, "project.json has no id")
	}

	now := s.now()
	imported := models.Project{
		Name:               project.Name + " (Imported)",
		Description:        project.Description,
		CustomInstructions: project.CustomInstructions,
		Budget:             project.Budget,
		CreatedAt:          now.UnixMilli(),
	}
	result := &ImportResult{ProjectName: imported.Name}

	budget := s.maxUnpacked
	batch := make([]models.Asset, 0, len(entries))
	for _, entry := range entries {
		blob, ok, err := readBinary(files, entry.FileName, &budget)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.AssetsSkipped++
			continue
		}
		asset := entry.Asset
		asset.ID = ids.Timed(now)
		asset.Blob = blob
		if len(blob) == 0 {
			asset.Blob = nil
		}
		asset.SizeBytes = int64(len(blob))
		asset.Display = nil
		batch = append(batch, asset)
	}

	err = s.store.WithTx(ctx, func(tx *gorm.DB) error {
		id, err := freeProjectID(tx, fmt.Sprintf("%s_imported_%d", project.ID, now.UnixMilli()))
		if err != nil {
			return err
		}
		imported.ID = id
		// plain insert: an id taken by a concurrent writer fails the import
		if err := tx.Create(&imported).Error; err != nil {
			return err
		}
		for _, model := range catalog {
			if model.ID == "" {
				result.ModelsSkipped++
				continue
			}
			var count int64
			if err := tx.Model(&models.Model{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				result.ModelsSkipped++
				continue
			}
			if err := s.models.AddWithTx(tx, model); err != nil {
				return err
			}
			result.ModelsImported++
		}
		for _, asset := range batch {
			asset.ProjectID = imported.ID
			if err := s.assets.AddWithTx(tx, asset); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.ProjectID = imported.ID
	result.AssetsImported = len(batch)

	s.logg.Info(s.logg.WithFields(s.logg.WithProjectID(ctx, imported.ID), map[string]any{
		"source_project":  project.ID,
		"assets_imported": result.AssetsImported,
		"assets_skipped":  result.AssetsSkipped,
		"models_imported": result.ModelsImported,
		"models_skipped":  result.ModelsSkipped,
	}), "project imported")
	return result, nil
}

// freeProjectID returns base, or base with random suffixes appended until no
// project uses it.
func freeProjectID(tx *gorm.DB, base string) (string, error) {
	id := base
	for {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return id, nil
		}
		id = base + "_" + ids.Suffix()
	}
}

func readJSON(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeArchiveInvalid, fmt.Sprintf("archive is missing %s", name))
	}
	rc, err := f.Open()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeArchiveInvalid, err, fmt.Sprintf("open %s", name))
	}
	defer rc.Close()
	if err := json.NewDecoder(io.LimitReader(rc, maxMetadataBytes)).Decode(v); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeArchiveInvalid, err, fmt.Sprintf("decode %s", name))
	}
	return nil
}

// readBinary loads AssetsDir/name and charges its size to budget. A missing
// entry is reported with ok=false.
func readBinary(files map[string]*zip.File, name string, budget *int64) ([]byte, bool, error) {
	if name == "" {
		return nil, false, nil
	}
	f, ok := files[AssetsDir+name]
	if !ok {
		return nil, false, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeArchiveInvalid, err, fmt.Sprintf("open %s", f.Name))
	}
	defer rc.Close()
	blob, err := io.ReadAll(io.LimitReader(rc, *budget+1))
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeArchiveInvalid, err, fmt.Sprintf("read %s", f.Name))
	}
	if int64(len(blob)) > *budget {
		return nil, false, pkgerrors.New(pkgerrors.CodeArchiveInvalid, "archive payloads exceed the unpacked size limit")
	}
	*budget -= int64(len(blob))
	return blob, true, nil
}
