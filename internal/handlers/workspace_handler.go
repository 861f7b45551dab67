package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// WorkspaceHandler handles workspace and membership requests.
type WorkspaceHandler struct {
	workspaceService services.WorkspaceServicer
	auditService     services.AuditServicer
}

// NewWorkspaceHandler creates a new WorkspaceHandler.
func NewWorkspaceHandler(workspaceService services.WorkspaceServicer, auditService services.AuditServicer) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService, auditService: auditService}
}

// CreateWorkspaceRequest represents the request payload for creating a workspace.
type CreateWorkspaceRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// AddMemberRequest represents the request payload for adding a workspace member.
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,workspace_role"`
}

// CreateWorkspace handles the creation of a workspace owned by the caller.
// @Summary     Create a workspace
// @Tags        workspaces
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateWorkspaceRequest true "Workspace details"
// @Success     201 {object} models.Workspace "Workspace created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /workspaces [post]
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	workspace, err := h.workspaceService.CreateWorkspace(c.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspace.ID, "CREATE_WORKSPACE", "workspace", workspace.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name})

	c.JSON(http.StatusCreated, gin.H{"workspace": workspace})
}

// GetUserWorkspaces lists the workspaces the caller belongs to.
// @Summary     List workspaces
// @Tags        workspaces
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Workspace] "Paginated workspaces"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /workspaces [get]
func (h *WorkspaceHandler) GetUserWorkspaces(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.workspaceService.GetUserWorkspaces(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMembers lists the members of a workspace.
// @Summary     List workspace members
// @Tags        workspaces
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Success     200 {array}  models.WorkspaceMember "Members"
// @Failure     404 {object} ErrorResponse "Workspace not found"
// @Router      /workspaces/{workspaceId}/members [get]
func (h *WorkspaceHandler) GetMembers(c *gin.Context) {
	workspaceID, err := getWorkspaceID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	members, err := h.workspaceService.GetMembers(c.Request.Context(), workspaceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMember grants an existing user a role in the workspace.
// @Summary     Add a workspace member
// @Description Requires the admin role. The owner role cannot be granted.
// @Tags        workspaces
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       workspaceId path string true "Workspace ID"
// @Param       request body AddMemberRequest true "Member details"
// @Success     201 {object} models.WorkspaceMember "Member added"
// @Failure     400 {object} ErrorResponse "Invalid input or role"
// @Failure     403 {object} ErrorResponse "Insufficient role"
// @Failure     404 {object} ErrorResponse "User or workspace not found"
// @Failure     409 {object} ErrorResponse "Already a member"
// @Router      /workspaces/{workspaceId}/members [post]
func (h *WorkspaceHandler) AddMember(c *gin.Context) {
	userID, workspaceID, err := scope(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	member, err := h.workspaceService.AddMember(c.Request.Context(), workspaceID, req.Email, models.WorkspaceRole(req.Role))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, workspaceID, "ADD_MEMBER", "workspace_member", member.ID, c.ClientIP(),
		map[string]interface{}{"user_id": member.UserID, "role": req.Role})

	c.JSON(http.StatusCreated, gin.H{"member": member})
}
