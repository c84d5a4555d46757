package models

import "github.com/shopspring/decimal"

// StatsID is the key of the singleton usage record.
const StatsID = "main"

type UsageStats struct {
	ID            string          `gorm:"column:id;primaryKey" json:"id"`
	FreeImages    int64           `gorm:"column:free_images;not null" json:"free_images"`
	PaidImages    int64           `gorm:"column:paid_images;not null" json:"paid_images"`
	FreeVideos    int64           `gorm:"column:free_videos;not null" json:"free_videos"`
	PaidVideos    int64           `gorm:"column:paid_videos;not null" json:"paid_videos"`
	EstimatedCost decimal.Decimal `gorm:"column:estimated_cost;type:text;not null" json:"estimated_cost"`
	StorageUsage  int64           `gorm:"column:storage_usage;not null" json:"storage_usage"`
	StorageQuota  int64           `gorm:"column:storage_quota;not null" json:"storage_quota"`
	UpdatedAt     int64           `gorm:"column:updated_at;not null;autoUpdateTime:false" json:"updated_at"`
}

func (UsageStats) TableName() string { return "stats" }

func (s UsageStats) PrimaryKey() string { return s.ID }
