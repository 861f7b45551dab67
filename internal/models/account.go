package models

// AccountType represents the type of account
type AccountType string

const (
	AccountTypeCash       AccountType = "cash"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
)

// Account represents a financial account in a workspace.
// Balance is held in minor currency units.
type Account struct {
	Base
	WorkspaceID string      `gorm:"type:uuid;not null;index" json:"workspace_id"`
	CreatedBy   string      `gorm:"type:uuid;not null" json:"created_by"`
	Name        string      `gorm:"not null" json:"name"`
	Type        AccountType `gorm:"not null" json:"type"`
	Description string      `json:"description"`
	Balance     int64       `gorm:"type:bigint;not null;default:0" json:"balance"`
	Currency    string      `gorm:"size:3;not null;default:'MYR'" json:"currency"`
	IsActive    bool        `gorm:"default:true" json:"is_active"`
}
