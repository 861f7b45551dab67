// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"moneta/internal/budgeting"
	"moneta/internal/models"
	"moneta/internal/money"
	"moneta/internal/recurrence"
	"moneta/internal/recurring"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom tags on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("iso4217", validateISO4217)
	_ = v.RegisterValidation("hex_color", validateHexColor)
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("category_type", validateCategoryType)
	_ = v.RegisterValidation("account_type", validateAccountType)
	_ = v.RegisterValidation("budget_period", validateBudgetPeriod)
	_ = v.RegisterValidation("frequency", validateFrequency)
	_ = v.RegisterValidation("recurring_type", validateRecurringType)
	_ = v.RegisterValidation("recurring_status", validateRecurringStatus)
	_ = v.RegisterValidation("workspace_role", validateWorkspaceRole)
}

func validateISO4217(fl validator.FieldLevel) bool {
	return money.IsCurrency(fl.Field().String())
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch models.TransactionType(fl.Field().String()) {
	case models.TransactionTypeIncome, models.TransactionTypeExpense, models.TransactionTypeTransfer:
		return true
	}
	return false
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch models.CategoryType(fl.Field().String()) {
	case models.CategoryTypeIncome, models.CategoryTypeExpense:
		return true
	}
	return false
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch models.AccountType(fl.Field().String()) {
	case models.AccountTypeCash, models.AccountTypeSavings, models.AccountTypeCreditCard:
		return true
	}
	return false
}

func validateBudgetPeriod(fl validator.FieldLevel) bool {
	return budgeting.Period(fl.Field().String()).IsValid()
}

func validateFrequency(fl validator.FieldLevel) bool {
	return recurrence.Frequency(fl.Field().String()).IsValid()
}

func validateRecurringType(fl validator.FieldLevel) bool {
	switch recurring.Type(fl.Field().String()) {
	case recurring.TypeIncome, recurring.TypeExpense:
		return true
	}
	return false
}

func validateRecurringStatus(fl validator.FieldLevel) bool {
	switch recurring.Status(fl.Field().String()) {
	case recurring.StatusActive, recurring.StatusPaused, recurring.StatusArchived:
		return true
	}
	return false
}

// validateWorkspaceRole accepts the roles that can be granted; owner is not one of them.
func validateWorkspaceRole(fl validator.FieldLevel) bool {
	switch models.WorkspaceRole(fl.Field().String()) {
	case models.WorkspaceRoleAdmin, models.WorkspaceRoleMember, models.WorkspaceRoleViewer:
		return true
	}
	return false
}
