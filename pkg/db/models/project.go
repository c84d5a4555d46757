package models

import "github.com/shopspring/decimal"

type Project struct {
	ID                 string              `gorm:"column:id;primaryKey" json:"id"`
	Name               string              `gorm:"column:name;not null" json:"name"`
	Description        string              `gorm:"column:description;not null" json:"description"`
	CustomInstructions string              `gorm:"column:custom_instructions;not null" json:"custom_instructions"`
	Budget             decimal.NullDecimal `gorm:"column:budget;type:text" json:"budget"`
	CreatedAt          int64               `gorm:"column:created_at;not null;autoCreateTime:false" json:"created_at"`
}

func (Project) TableName() string { return "projects" }

func (p Project) PrimaryKey() string { return p.ID }
