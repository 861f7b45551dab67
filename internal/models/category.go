package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a transaction category. A category with a ParentID is
// a subcategory; subcategories cannot have children of their own.
type Category struct {
	Base
	WorkspaceID string       `gorm:"type:uuid;not null;index" json:"workspace_id"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Color       string       `json:"color"`
	ParentID    *string      `gorm:"type:uuid" json:"parent_id,omitempty"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// IsSubcategory reports whether c has a parent.
func (c *Category) IsSubcategory() bool {
	return c.ParentID != nil && *c.ParentID != ""
}
