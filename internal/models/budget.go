package models

import (
	"time"

	"moneta/internal/budgeting"
)

// Budget represents a spending limit for a category (or one of its
// subcategories) over a recurring period anchored at StartDate.
type Budget struct {
	Base
	WorkspaceID    string           `gorm:"type:uuid;not null;index" json:"workspace_id"`
	CreatedBy      string           `gorm:"type:uuid;not null" json:"created_by"`
	CategoryID     string           `gorm:"type:uuid;not null" json:"category_id"`
	SubcategoryID  *string          `gorm:"type:uuid" json:"subcategory_id,omitempty"`
	Name           string           `gorm:"not null" json:"name"`
	Amount         int64            `gorm:"type:bigint;not null" json:"amount"`
	Currency       string           `gorm:"size:3;not null" json:"currency"`
	Period         budgeting.Period `gorm:"not null" json:"period"`
	StartDate      time.Time        `gorm:"not null" json:"start_date"`
	AlertThreshold *int             `json:"alert_threshold,omitempty"`
	IsArchived     bool             `gorm:"not null;default:false" json:"is_archived"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// SpendCategoryID is the category whose expenses count against the budget:
// the subcategory when one is set, the category otherwise.
func (b *Budget) SpendCategoryID() string {
	if b.SubcategoryID != nil && *b.SubcategoryID != "" {
		return *b.SubcategoryID
	}
	return b.CategoryID
}
