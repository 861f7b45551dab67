package models

import "time"

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Transaction represents a ledger entry in a workspace.
type Transaction struct {
	Base
	WorkspaceID   string          `gorm:"type:uuid;not null;index" json:"workspace_id"`
	CreatedBy     string          `gorm:"type:uuid;not null" json:"created_by"`
	AccountID     string          `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID    *string         `gorm:"type:uuid;index" json:"category_id,omitempty"`
	SubcategoryID *string         `gorm:"type:uuid;index" json:"subcategory_id,omitempty"`
	Type          TransactionType `gorm:"not null" json:"type"`
	Amount        int64           `gorm:"type:bigint;not null" json:"amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	Description   string          `json:"description"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	IsArchived    bool            `gorm:"not null;default:false" json:"is_archived"`
	ArchivedAt    *time.Time      `json:"archived_at,omitempty"`

	// For transfers
	ToAccountID *string `gorm:"type:uuid" json:"to_account_id,omitempty"`

	// Set when generated by a recurring transaction
	RecurringTransactionID *string `gorm:"type:uuid;index" json:"recurring_transaction_id,omitempty"`

	// Relationships
	Account   *Account  `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	ToAccount *Account  `gorm:"foreignKey:ToAccountID" json:"to_account,omitempty"`
	Category  *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
