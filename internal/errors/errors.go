// Package errors provides custom error types for the Moneta API.
// All service-layer and domain errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import (
	"fmt"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError carrying the same code, so that
// errors.Is matches sentinels even after WithMessage or Wrap.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// WithMessagef is WithMessage with a format string.
func WithMessagef(sentinel *AppError, format string, args ...any) *AppError {
	return WithMessage(sentinel, fmt.Sprintf(format, args...))
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}

	ErrInvalidAPIKey         = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrPipelineNotConfigured = &AppError{Code: "PIPELINE_NOT_CONFIGURED", Message: "Internal endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
)

// General errors.
var (
	ErrInvalidInput           = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound               = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrConcurrentModification = &AppError{Code: "CONCURRENT_MODIFICATION", Message: "Resource was modified concurrently", StatusCode: http.StatusConflict}
	ErrInternalServer         = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Workspace errors.
var (
	ErrWorkspaceNotFound = &AppError{Code: "WORKSPACE_NOT_FOUND", Message: "Workspace not found", StatusCode: http.StatusNotFound}
	ErrAlreadyMember     = &AppError{Code: "ALREADY_MEMBER", Message: "User is already a member of this workspace", StatusCode: http.StatusConflict}
	ErrInvalidRole       = &AppError{Code: "INVALID_ROLE", Message: "Invalid workspace role", StatusCode: http.StatusBadRequest}
)

// Money errors.
var (
	ErrInvalidAmount   = &AppError{Code: "INVALID_AMOUNT", Message: "Amount must be positive and within bounds", StatusCode: http.StatusBadRequest}
	ErrInvalidCurrency = &AppError{Code: "INVALID_CURRENCY", Message: "Currency must be an ISO 4217 code", StatusCode: http.StatusBadRequest}
)

// Account errors.
var (
	ErrAccountNotFound = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
)

// Category errors.
var (
	ErrCategoryNotFound   = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrSelfParentCategory = &AppError{Code: "SELF_PARENT_CATEGORY", Message: "A category cannot be its own parent", StatusCode: http.StatusBadRequest}
	ErrNestedSubcategory  = &AppError{Code: "NESTED_SUBCATEGORY", Message: "A subcategory cannot have subcategories", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
	ErrSameAccountTransfer    = &AppError{Code: "SAME_ACCOUNT_TRANSFER", Message: "Cannot transfer to the same account", StatusCode: http.StatusBadRequest}
)

// Budget errors.
var (
	ErrBudgetNotFound         = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrInvalidBudgetPeriod    = &AppError{Code: "INVALID_BUDGET_PERIOD", Message: "Budget period must be one of weekly, monthly, yearly", StatusCode: http.StatusBadRequest}
	ErrInvalidAlertThreshold  = &AppError{Code: "INVALID_ALERT_THRESHOLD", Message: "Alert threshold must be between 1 and 100", StatusCode: http.StatusBadRequest}
	ErrBudgetCategoryMismatch = &AppError{Code: "BUDGET_CATEGORY_MISMATCH", Message: "Subcategory does not belong to the budget category", StatusCode: http.StatusBadRequest}
)

// Schedule errors.
var (
	ErrInvalidFrequency = &AppError{Code: "INVALID_FREQUENCY", Message: "Frequency must be one of daily, weekly, monthly, yearly", StatusCode: http.StatusBadRequest}
	ErrInvalidInterval  = &AppError{Code: "INVALID_INTERVAL", Message: "Interval must be an integer between 1 and 365", StatusCode: http.StatusBadRequest}
	ErrInvalidSchedule  = &AppError{Code: "INVALID_SCHEDULE", Message: "Invalid schedule", StatusCode: http.StatusBadRequest}
	ErrInvalidDateRange = &AppError{Code: "INVALID_DATE_RANGE", Message: "End date must be after start date", StatusCode: http.StatusBadRequest}
)

// Recurring transaction errors.
var (
	ErrRecurringNotFound      = &AppError{Code: "RECURRING_TRANSACTION_NOT_FOUND", Message: "Recurring transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidRecurringType   = &AppError{Code: "INVALID_RECURRING_TYPE", Message: "Recurring transactions must be income or expense", StatusCode: http.StatusBadRequest}
	ErrRecurringAlreadyPaused = &AppError{Code: "RECURRING_ALREADY_PAUSED", Message: "Recurring transaction is already paused", StatusCode: http.StatusConflict}
	ErrRecurringAlreadyActive = &AppError{Code: "RECURRING_ALREADY_ACTIVE", Message: "Recurring transaction is already active", StatusCode: http.StatusConflict}
	ErrRecurringArchived      = &AppError{Code: "RECURRING_ARCHIVED", Message: "Recurring transaction is archived", StatusCode: http.StatusConflict}
	ErrRecurringNotActive     = &AppError{Code: "RECURRING_NOT_ACTIVE", Message: "Recurring transaction is not active", StatusCode: http.StatusConflict}
	ErrRecurringNotDue        = &AppError{Code: "RECURRING_NOT_DUE", Message: "Recurring transaction is not due yet", StatusCode: http.StatusConflict}
)
