package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"moneta/internal/budgeting"
	apperrors "moneta/internal/errors"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// BudgetHandler handles budget-related requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, auditService: auditService}
}

// CreateBudgetRequest represents the request payload for creating a budget.
// The period is validated by the service so that unsupported periods report
// INVALID_BUDGET_PERIOD.
type CreateBudgetRequest struct {
	CategoryID     string  `json:"category_id" binding:"required,uuid"`
	SubcategoryID  *string `json:"subcategory_id" binding:"omitempty,uuid"`
	Name           string  `json:"name" binding:"required,min=1,max=100"`
	Amount         int64   `json:"amount" binding:"required"`
	Currency       string  `json:"currency"`
	Period         string  `json:"period" binding:"required"`
	StartDate      *string `json:"start_date"`
	AlertThreshold *int    `json:"alert_threshold"`
}

// UpdateBudgetRequest represents the request payload for updating a budget.
type UpdateBudgetRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=100"`
	Amount         *int64  `json:"amount"`
	AlertThreshold *int    `json:"alert_threshold"`
}

// BudgetListQuery holds the list filters for budgets.
type BudgetListQuery struct {
	pagination.PageRequest
	Period     string `form:"period" binding:"omitempty,budget_period"`
	IsArchived string `form:"is_archived" binding:"omitempty,boolean"`
}

func (q BudgetListQuery) filter() services.BudgetFilter {
	var filter services.BudgetFilter
	if q.Period != "" {
		p := budgeting.Period(q.Period)
		filter.Period = &p
	}
	if q.IsArchived != "" {
		archived, _ := strconv.ParseBool(q.IsArchived)
		filter.IsArchived = &archived
	}
	return filter
}

// CreateBudget handles the creation of a new budget.
// @Summary     Create a budget
// @Description Create a weekly, monthly or yearly spending limit for a top-level expense category, optionally narrowed to one of its subcategories.
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       request body CreateBudgetRequest true "Budget details"
// @Success     201 {object} models.Budget "Budget created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /workspaces/{workspaceId}/budgets [post]
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID, workspaceID, err := scope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	startDate, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	in := services.CreateBudgetInput{
		CategoryID:     req.CategoryID,
		SubcategoryID:  req.SubcategoryID,
		Name:           req.Name,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Period:         req.Period,
		AlertThreshold: req.AlertThreshold,
	}
	if startDate != nil {
		in.StartDate = *startDate
	}

	budget, err := h.budgetService.CreateBudget(c.Request.Context(), workspaceID, userID, in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspaceID, "CREATE_BUDGET", "budget", budget.ID, c.ClientIP(),
		map[string]interface{}{"name": budget.Name, "amount": budget.Amount, "period": budget.Period})

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// GetWorkspaceBudgets handles listing budgets.
// @Summary     List budgets
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path  string true  "Workspace ID"
// @Param       period      query string false "weekly, monthly or yearly"
// @Param       is_archived query bool   false "Filter by archived state"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Budget] "Paginated budgets"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /workspaces/{workspaceId}/budgets [get]
func (h *BudgetHandler) GetWorkspaceBudgets(c *gin.Context) {
	workspaceID, err := getWorkspaceID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query BudgetListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.budgetService.GetWorkspaceBudgets(c.Request.Context(), workspaceID, query.PageRequest, query.filter())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetBudgetByID handles retrieving a single budget.
// @Summary     Get budget by ID
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Budget ID"
// @Success     200 {object} models.Budget "Budget details"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /workspaces/{workspaceId}/budgets/{id} [get]
func (h *BudgetHandler) GetBudgetByID(c *gin.Context) {
	workspaceID, err := getWorkspaceID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.GetBudgetByID(c.Request.Context(), workspaceID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// UpdateBudget handles updating a budget.
// @Summary     Update budget
// @Tags        budgets
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Budget ID"
// @Param       request body UpdateBudgetRequest true "Updated budget details"
// @Success     200 {object} models.Budget "Updated budget"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /workspaces/{workspaceId}/budgets/{id} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID, workspaceID, err := scope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgetService.UpdateBudget(c.Request.Context(), workspaceID, budgetID, services.BudgetUpdateFields{
		Name:           req.Name,
		Amount:         req.Amount,
		AlertThreshold: req.AlertThreshold,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspaceID, "UPDATE_BUDGET", "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// ArchiveBudget handles archiving a budget. Archiving twice is a no-op.
// @Summary     Archive budget
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Budget ID"
// @Success     200 {object} models.Budget "Archived budget"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /workspaces/{workspaceId}/budgets/{id}/archive [post]
func (h *BudgetHandler) ArchiveBudget(c *gin.Context) {
	userID, workspaceID, err := scope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgetService.ArchiveBudget(c.Request.Context(), workspaceID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspaceID, "ARCHIVE_BUDGET", "budget", budgetID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// GetBudgetProgress handles retrieving budget progress for the current period.
// @Summary     Get budget progress
// @Description Spending against the budget within the period window containing now.
// @Tags        budgets
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Budget ID"
// @Success     200 {object} services.BudgetProgress "Budget progress"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /workspaces/{workspaceId}/budgets/{id}/progress [get]
func (h *BudgetHandler) GetBudgetProgress(c *gin.Context) {
	workspaceID, err := getWorkspaceID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.budgetService.GetBudgetProgress(c.Request.Context(), workspaceID, budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
