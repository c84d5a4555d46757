package archive

import (
	"github.com/angelmondragon/studiovault/pkg/db/models"
	"github.com/angelmondragon/studiovault/pkg/enums"
)

// Entry names inside an exported archive.
const (
	ProjectEntry = "project.json"
	ModelsEntry  = "models.json"
	AssetsEntry  = "assets.json"
	AssetsDir    = "assets/"
)

// ArchivedAsset is an asset's durable metadata plus the name of its binary
// under AssetsDir.
type ArchivedAsset struct {
	models.Asset
	FileName string `json:"fileName"`
}

func fileNameFor(asset models.Asset) string {
	ext := "png"
	if asset.Type == enums.MediaTypeVideo {
		ext = "mp4"
	}
	return asset.ID + "." + ext
}

// ImportResult reports what an import wrote.
type ImportResult struct {
	ProjectID      string `json:"project_id"`
	ProjectName    string `json:"project_name"`
	AssetsImported int    `json:"assets_imported"`
	AssetsSkipped  int    `json:"assets_skipped"`
	ModelsImported int    `json:"models_imported"`
	ModelsSkipped  int    `json:"models_skipped"`
}
