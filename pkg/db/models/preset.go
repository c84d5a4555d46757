package models

import (
	"gorm.io/datatypes"

	"github.com/angelmondragon/studiovault/pkg/enums"
)

// Preset is a named, partial set of generation settings for one workspace.
type Preset struct {
	ID        string              `gorm:"column:id;primaryKey" json:"id"`
	Name      string              `gorm:"column:name;not null" json:"name"`
	Workspace enums.WorkspaceKind `gorm:"column:workspace;not null" json:"workspace"`
	Settings  datatypes.JSONMap   `gorm:"column:settings" json:"settings"`
	CreatedAt int64               `gorm:"column:created_at;not null;autoCreateTime:false" json:"created_at"`
}

func (Preset) TableName() string { return "presets" }

func (p Preset) PrimaryKey() string { return p.ID }
