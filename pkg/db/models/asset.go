package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/studiovault/pkg/display"
	"github.com/angelmondragon/studiovault/pkg/enums"
)

// Asset is a generated image or video together with its binary payload.
type Asset struct {
	ID           string                      `gorm:"column:id;primaryKey" json:"id"`
	ProjectID    string                      `gorm:"column:project_id;not null;index:idx_assets_project" json:"project_id"`
	CollectionID *string                     `gorm:"column:collection_id" json:"collection_id,omitempty"`
	ModelID      *string                     `gorm:"column:model_id" json:"model_id,omitempty"`
	Blob         []byte                      `gorm:"column:blob" json:"-"`
	MimeType     string                      `gorm:"column:mime_type;not null" json:"mime_type"`
	SizeBytes    int64                       `gorm:"column:size_bytes;not null" json:"size_bytes"`
	Type         enums.MediaType             `gorm:"column:type;not null" json:"type"`
	Tier         enums.GenerationTier        `gorm:"column:tier;not null" json:"tier"`
	KeyTier      enums.KeyTier               `gorm:"column:key_tier;not null" json:"key_tier"`
	Prompt       string                      `gorm:"column:prompt;not null" json:"prompt"`
	Cost         decimal.Decimal             `gorm:"column:cost;type:text;not null" json:"cost"`
	Timestamp    int64                       `gorm:"column:timestamp;not null" json:"timestamp"`
	IsCompressed bool                        `gorm:"column:is_compressed;not null" json:"is_compressed"`
	Tags         datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`

	// Display is derived from Blob by the reader that renders the asset.
	Display *display.Handle `gorm:"-" json:"-"`
}

func (Asset) TableName() string { return "assets" }

func (a Asset) PrimaryKey() string { return a.ID }

// StripTransient clears fields that must never reach the store.
func (a *Asset) StripTransient() {
	a.Display = nil
}

// ReleaseDisplay releases the display handle if one is attached.
func (a *Asset) ReleaseDisplay() {
	if a.Display != nil {
		a.Display.Release()
		a.Display = nil
	}
}
