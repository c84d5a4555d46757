package models

import "gorm.io/datatypes"

// Model is a reusable synthetic subject. It is not owned by any project;
// assets reference it by id without enforcement.
type Model struct {
	ID         string            `gorm:"column:id;primaryKey" json:"id"`
	Name       string            `gorm:"column:name;not null" json:"name"`
	Attributes datatypes.JSONMap `gorm:"column:attributes" json:"attributes"`
	Morphology datatypes.JSONMap `gorm:"column:morphology" json:"morphology"`
	CreatedAt  int64             `gorm:"column:created_at;not null;autoCreateTime:false" json:"created_at"`
}

func (Model) TableName() string { return "models" }

func (m Model) PrimaryKey() string { return m.ID }
