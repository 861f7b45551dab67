package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// CreateTransactionRequest represents the request payload for creating a transaction.
// to_account_id is required for transfers, which cannot carry a category.
type CreateTransactionRequest struct {
	AccountID     string  `json:"account_id" binding:"required,uuid"`
	ToAccountID   *string `json:"to_account_id" binding:"omitempty,uuid"`
	CategoryID    *string `json:"category_id" binding:"omitempty,uuid"`
	SubcategoryID *string `json:"subcategory_id" binding:"omitempty,uuid"`
	Type          string  `json:"type" binding:"required,transaction_type"`
	Amount        int64   `json:"amount" binding:"required,gt=0"`
	Description   string  `json:"description" binding:"max=500"`
	Date          *string `json:"date"`
}

// TransactionListQuery holds the list filters for transactions.
type TransactionListQuery struct {
	pagination.PageRequest
	FromDate        string `form:"from_date"`
	ToDate          string `form:"to_date"`
	Type            string `form:"type" binding:"omitempty,transaction_type"`
	CategoryID      string `form:"category_id" binding:"omitempty,uuid"`
	AccountID       string `form:"account_id" binding:"omitempty,uuid"`
	IncludeArchived bool   `form:"include_archived"`
}

func (q TransactionListQuery) filter() (services.TransactionFilter, error) {
	var filter services.TransactionFilter
	var err error
	if filter.FromDate, err = parseOptionalDate("from_date", &q.FromDate); err != nil {
		return filter, err
	}
	if filter.ToDate, err = parseOptionalDate("to_date", &q.ToDate); err != nil {
		return filter, err
	}
	if filter.FromDate != nil && filter.ToDate != nil && filter.ToDate.Before(*filter.FromDate) {
		return filter, apperrors.WithMessage(apperrors.ErrInvalidDateRange, "to_date must not be before from_date")
	}
	if q.Type != "" {
		t := models.TransactionType(q.Type)
		filter.Type = &t
	}
	if q.CategoryID != "" {
		filter.CategoryID = &q.CategoryID
	}
	if q.AccountID != "" {
		filter.AccountID = &q.AccountID
	}
	filter.IncludeArchived = q.IncludeArchived
	return filter, nil
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record income, an expense or a transfer between two accounts of the workspace. Account balances are updated atomically.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /workspaces/{workspaceId}/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, workspaceID, err := scope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseOptionalDate("date", req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}

	in := services.CreateTransactionInput{
		AccountID:     req.AccountID,
		ToAccountID:   req.ToAccountID,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Type:          models.TransactionType(req.Type),
		Amount:        req.Amount,
		Description:   req.Description,
	}
	if date != nil {
		in.Date = *date
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request.Context(), workspaceID, userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspaceID, "CREATE_TRANSACTION", "transaction", transaction.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "amount": req.Amount, "account_id": req.AccountID})

	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetWorkspaceTransactions handles listing transactions with filters
// @Summary     List transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId      path  string true  "Workspace ID"
// @Param       from_date        query string false "Earliest date (RFC 3339 or YYYY-MM-DD)"
// @Param       to_date          query string false "Latest date (RFC 3339 or YYYY-MM-DD)"
// @Param       type             query string false "income, expense or transfer"
// @Param       category_id      query string false "Category ID"
// @Param       account_id       query string false "Account ID"
// @Param       include_archived query bool   false "Include archived transactions"
// @Param       page             query int    false "Page number (default 1)"
// @Param       page_size        query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /workspaces/{workspaceId}/transactions [get]
func (h *TransactionHandler) GetWorkspaceTransactions(c *gin.Context) {
	workspaceID, err := getWorkspaceID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query TransactionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter, err := query.filter()
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetWorkspaceTransactions(c.Request.Context(), workspaceID, query.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransactionByID handles the retrieval of a single transaction
// @Summary     Get transaction by ID
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /workspaces/{workspaceId}/transactions/{id} [get]
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	workspaceID, err := getWorkspaceID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(c.Request.Context(), workspaceID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// ArchiveTransaction reverses a transaction's balance effect and hides it
// from default listings.
// @Summary     Archive transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Archived transaction"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /workspaces/{workspaceId}/transactions/{id}/archive [post]
func (h *TransactionHandler) ArchiveTransaction(c *gin.Context) {
	userID, workspaceID, err := scope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.ArchiveTransaction(c.Request.Context(), workspaceID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspaceID, "ARCHIVE_TRANSACTION", "transaction", transactionID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}
