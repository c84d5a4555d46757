package models

type Collection struct {
	ID        string `gorm:"column:id;primaryKey" json:"id"`
	ProjectID string `gorm:"column:project_id;not null;index:idx_collections_project" json:"project_id"`
	Name      string `gorm:"column:name;not null" json:"name"`
	CreatedAt int64  `gorm:"column:created_at;not null;autoCreateTime:false" json:"created_at"`
}

func (Collection) TableName() string { return "collections" }

func (c Collection) PrimaryKey() string { return c.ID }
