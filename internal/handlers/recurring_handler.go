package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/pagination"
	"moneta/internal/recurrence"
	"moneta/internal/recurring"
	"moneta/internal/services"
)

const defaultPreviewCount = 5

// RecurringHandler handles recurring transaction requests.
type RecurringHandler struct {
	recurringService services.RecurringServicer
	auditService     services.AuditServicer
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer, auditService services.AuditServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService, auditService: auditService}
}

// CreateRecurringRequest represents the request payload for creating a
// recurring transaction. Schedule fields are validated by the service so
// that errors carry the specific schedule error code.
type CreateRecurringRequest struct {
	AccountID     string  `json:"account_id" binding:"required,uuid"`
	CategoryID    string  `json:"category_id" binding:"required,uuid"`
	SubcategoryID string  `json:"subcategory_id" binding:"omitempty,uuid"`
	Type          string  `json:"type" binding:"required"`
	Amount        int64   `json:"amount" binding:"required"`
	Currency      string  `json:"currency"`
	Notes         string  `json:"notes" binding:"max=500"`
	Frequency     string  `json:"frequency" binding:"required"`
	Interval      *int    `json:"interval"`
	DayOfWeek     *int    `json:"day_of_week"`
	DayOfMonth    *int    `json:"day_of_month"`
	MonthOfYear   *int    `json:"month_of_year"`
	StartDate     string  `json:"start_date" binding:"required"`
	EndDate       *string `json:"end_date"`
}

// UpdateRecurringRequest represents the request payload for updating a
// recurring transaction. Omitted fields are left unchanged; clear_end_date
// removes the end date.
type UpdateRecurringRequest struct {
	AccountID     *string `json:"account_id" binding:"omitempty,uuid"`
	CategoryID    *string `json:"category_id" binding:"omitempty,uuid"`
	SubcategoryID *string `json:"subcategory_id" binding:"omitempty,uuid|eq="`
	Amount        *int64  `json:"amount"`
	Currency      *string `json:"currency"`
	Notes         *string `json:"notes" binding:"omitempty,max=500"`
	Frequency     *string `json:"frequency"`
	Interval      *int    `json:"interval"`
	DayOfWeek     *int    `json:"day_of_week"`
	DayOfMonth    *int    `json:"day_of_month"`
	MonthOfYear   *int    `json:"month_of_year"`
	EndDate       *string `json:"end_date"`
	ClearEndDate  bool    `json:"clear_end_date"`
}

func (r UpdateRecurringRequest) schedulePatch() *services.SchedulePatch {
	if r.Frequency == nil && r.Interval == nil && r.DayOfWeek == nil && r.DayOfMonth == nil && r.MonthOfYear == nil {
		return nil
	}
	return &services.SchedulePatch{
		Frequency:   r.Frequency,
		Interval:    r.Interval,
		DayOfWeek:   r.DayOfWeek,
		DayOfMonth:  r.DayOfMonth,
		MonthOfYear: r.MonthOfYear,
	}
}

// RecurringListQuery holds the list filters for recurring transactions.
type RecurringListQuery struct {
	pagination.PageRequest
	Status string `form:"status" binding:"omitempty,recurring_status"`
}

// PreviewQuery holds the parameters of the preview endpoint.
type PreviewQuery struct {
	N int `form:"n"`
}

// PreviewResponse lists upcoming run dates.
type PreviewResponse struct {
	Dates []time.Time `json:"dates"`
}

// CreateRecurring handles the creation of a recurring transaction.
// @Summary     Create a recurring transaction
// @Description Create an income or expense that repeats on a daily, weekly, monthly or yearly schedule. The first run is the first schedule date on or after start_date.
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       request body CreateRecurringRequest true "Recurring transaction details"
// @Success     201 {object} recurring.Primitives "Recurring transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input or schedule"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Router      /workspaces/{workspaceId}/recurring-transactions [post]
func (h *RecurringHandler) CreateRecurring(c *gin.Context) {
	userID, workspaceID, err := scope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	startDate, err := parseDate("start_date", req.StartDate)
	if err != nil {
		respondWithError(c, err)
		return
	}
	endDate, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	interval := 1
	if req.Interval != nil {
		interval = *req.Interval
	}

	rt, err := h.recurringService.CreateRecurring(c.Request.Context(), workspaceID, userID, services.CreateRecurringInput{
		AccountID:     req.AccountID,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Type:          req.Type,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Notes:         req.Notes,
		Schedule: recurrence.ScheduleParams{
			Frequency:   req.Frequency,
			Interval:    interval,
			DayOfWeek:   req.DayOfWeek,
			DayOfMonth:  req.DayOfMonth,
			MonthOfYear: req.MonthOfYear,
		},
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspaceID, "CREATE_RECURRING", "recurring_transaction", rt.ID(), c.ClientIP(),
		map[string]interface{}{"frequency": req.Frequency, "amount": req.Amount, "next_run_date": rt.NextRunDate()})

	c.JSON(http.StatusCreated, gin.H{"recurring_transaction": rt.ToPrimitives()})
}

// GetWorkspaceRecurring lists recurring transactions ordered by next run date.
// @Summary     List recurring transactions
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path  string true  "Workspace ID"
// @Param       status      query string false "active, paused or archived"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[recurring.Primitives] "Paginated recurring transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /workspaces/{workspaceId}/recurring-transactions [get]
func (h *RecurringHandler) GetWorkspaceRecurring(c *gin.Context) {
	workspaceID, err := getWorkspaceID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query RecurringListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var status *recurring.Status
	if query.Status != "" {
		st := recurring.Status(query.Status)
		status = &st
	}

	result, err := h.recurringService.GetWorkspaceRecurring(c.Request.Context(), workspaceID, status, query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecurringByID returns a single recurring transaction.
// @Summary     Get recurring transaction by ID
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Recurring transaction ID"
// @Success     200 {object} recurring.Primitives "Recurring transaction"
// @Failure     404 {object} ErrorResponse "Recurring transaction not found"
// @Router      /workspaces/{workspaceId}/recurring-transactions/{id} [get]
func (h *RecurringHandler) GetRecurringByID(c *gin.Context) {
	workspaceID, err := getWorkspaceID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rt, err := h.recurringService.GetRecurringByID(c.Request.Context(), workspaceID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recurring_transaction": rt.ToPrimitives()})
}

// UpdateRecurring applies a partial update. Schedule changes recompute the
// next run date.
// @Summary     Update recurring transaction
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Recurring transaction ID"
// @Param       request body UpdateRecurringRequest true "Fields to change"
// @Success     200 {object} recurring.Primitives "Updated recurring transaction"
// @Failure     400 {object} ErrorResponse "Invalid input or schedule"
// @Failure     404 {object} ErrorResponse "Recurring transaction not found"
// @Failure     409 {object} ErrorResponse "Archived or modified concurrently"
// @Router      /workspaces/{workspaceId}/recurring-transactions/{id} [put]
func (h *RecurringHandler) UpdateRecurring(c *gin.Context) {
	userID, workspaceID, err := scope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	endDate, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rt, err := h.recurringService.UpdateRecurring(c.Request.Context(), workspaceID, id, services.UpdateRecurringInput{
		AccountID:     req.AccountID,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Notes:         req.Notes,
		Schedule:      req.schedulePatch(),
		EndDate:       endDate,
		ClearEndDate:  req.ClearEndDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspaceID, "UPDATE_RECURRING", "recurring_transaction", id, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"recurring_transaction": rt.ToPrimitives()})
}

// PauseRecurring stops a recurring transaction from running.
// @Summary     Pause recurring transaction
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Recurring transaction ID"
// @Success     200 {object} recurring.Primitives "Paused recurring transaction"
// @Failure     409 {object} ErrorResponse "Already paused or archived"
// @Router      /workspaces/{workspaceId}/recurring-transactions/{id}/pause [post]
func (h *RecurringHandler) PauseRecurring(c *gin.Context) {
	h.transition(c, "PAUSE_RECURRING", h.recurringService.PauseRecurring)
}

// ResumeRecurring reactivates a paused recurring transaction.
// @Summary     Resume recurring transaction
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Recurring transaction ID"
// @Success     200 {object} recurring.Primitives "Resumed recurring transaction"
// @Failure     409 {object} ErrorResponse "Already active or archived"
// @Router      /workspaces/{workspaceId}/recurring-transactions/{id}/resume [post]
func (h *RecurringHandler) ResumeRecurring(c *gin.Context) {
	h.transition(c, "RESUME_RECURRING", h.recurringService.ResumeRecurring)
}

// ArchiveRecurring permanently retires a recurring transaction.
// @Summary     Archive recurring transaction
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       id          path string true "Recurring transaction ID"
// @Success     200 {object} recurring.Primitives "Archived recurring transaction"
// @Failure     404 {object} ErrorResponse "Recurring transaction not found"
// @Router      /workspaces/{workspaceId}/recurring-transactions/{id}/archive [post]
func (h *RecurringHandler) ArchiveRecurring(c *gin.Context) {
	h.transition(c, "ARCHIVE_RECURRING", h.recurringService.ArchiveRecurring)
}

type transitionFunc func(ctx context.Context, workspaceID, id string) (recurring.RecurringTransaction, error)

func (h *RecurringHandler) transition(c *gin.Context, action string, fn transitionFunc) {
	userID, workspaceID, err := scope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rt, err := fn(c.Request.Context(), workspaceID, id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspaceID, action, "recurring_transaction", id, c.ClientIP(),
		map[string]interface{}{"status": rt.Status()})

	c.JSON(http.StatusOK, gin.H{"recurring_transaction": rt.ToPrimitives()})
}

// PreviewRecurring lists the next n run dates without changing anything.
// @Summary     Preview upcoming runs
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path  string true  "Workspace ID"
// @Param       id          path  string true  "Recurring transaction ID"
// @Param       n           query int    false "Number of dates (default 5, max 100)"
// @Success     200 {object} PreviewResponse "Upcoming run dates"
// @Failure     400 {object} ErrorResponse "Invalid count"
// @Failure     404 {object} ErrorResponse "Recurring transaction not found"
// @Router      /workspaces/{workspaceId}/recurring-transactions/{id}/preview [get]
func (h *RecurringHandler) PreviewRecurring(c *gin.Context) {
	workspaceID, err := getWorkspaceID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	query := PreviewQuery{N: defaultPreviewCount}
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	dates, err := h.recurringService.PreviewRecurring(c.Request.Context(), workspaceID, id, query.N)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PreviewResponse{Dates: dates})
}
