package projects

import "github.com/shopspring/decimal"

// CreateInput describes a new project.
type CreateInput struct {
	Name               string
	Description        string
	CustomInstructions string
	Budget             *decimal.Decimal
}

// UpdateInput carries a partial change; nil fields are left alone. Setting
// ClearBudget removes the budget.
type UpdateInput struct {
	Name               *string
	Description        *string
	CustomInstructions *string
	Budget             *decimal.Decimal
	ClearBudget        bool
}

// PurgeResult reports what a purge removed.
type PurgeResult struct {
	ProjectID          string `json:"project_id"`
	AssetsDeleted      int64  `json:"assets_deleted"`
	CollectionsDeleted int64  `json:"collections_deleted"`
}
