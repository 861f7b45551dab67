package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/uuid"
)

// RoleResolver looks up a user's role in a workspace. Non-members yield
// ErrWorkspaceNotFound.
type RoleResolver interface {
	GetMemberRole(ctx context.Context, workspaceID, userID string) (models.WorkspaceRole, error)
}

// WorkspaceAccess resolves the :workspaceId path parameter for the
// authenticated user and requires at least minRole. It must run after
// AuthMiddleware.
func WorkspaceAccess(resolver RoleResolver, minRole models.WorkspaceRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(UserIDKey)
		if userID == "" {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		workspaceID := c.Param("workspaceId")
		if !uuid.IsValid(workspaceID) {
			abortWithError(c, apperrors.ErrWorkspaceNotFound)
			return
		}

		role, err := resolver.GetMemberRole(c.Request.Context(), workspaceID, userID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !role.AtLeast(minRole) {
			abortWithError(c, apperrors.WithMessagef(apperrors.ErrForbidden,
				"this action requires the %s role or higher", minRole))
			return
		}

		c.Set(WorkspaceIDKey, workspaceID)
		c.Set(WorkspaceRoleKey, role)
		c.Next()
	}
}
