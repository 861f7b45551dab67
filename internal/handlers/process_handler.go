package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/services"
)

// ProcessHandler exposes the recurring processor to trusted pipelines.
type ProcessHandler struct {
	processor services.RecurringProcessor
	now       func() time.Time
}

// NewProcessHandler creates a new ProcessHandler.
func NewProcessHandler(processor services.RecurringProcessor) *ProcessHandler {
	return &ProcessHandler{processor: processor, now: time.Now}
}

// ProcessRequest optionally pins the processing instant.
type ProcessRequest struct {
	AsOf *string `json:"as_of"`
}

// ProcessDue runs one pass of the recurring processor.
// @Summary     Process due recurring transactions
// @Description Advances every active recurring transaction whose next run date is on or before as_of (default now) by one occurrence and emits a transaction-due event for it.
// @Tags        internal
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Param       request body ProcessRequest false "Processing instant"
// @Success     200 {object} services.ProcessReport "Processing report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Missing or invalid API key"
// @Router      /internal/recurring/process [post]
func (h *ProcessHandler) ProcessDue(c *gin.Context) {
	var req ProcessRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	asOf := h.now().UTC()
	if req.AsOf != nil && *req.AsOf != "" {
		parsed, err := parseDate("as_of", *req.AsOf)
		if err != nil {
			respondWithError(c, err)
			return
		}
		asOf = parsed
	}

	report, err := h.processor.ProcessDue(c.Request.Context(), asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	logger.Named("recurring").Infow("processed due recurring transactions",
		"as_of", report.AsOf,
		"workspaces", report.Workspaces,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)

	c.JSON(http.StatusOK, gin.H{"report": report})
}
