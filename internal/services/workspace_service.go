package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// workspaceService handles workspaces and membership.
type workspaceService struct {
	db *gorm.DB
}

// NewWorkspaceService creates a new WorkspaceServicer.
func NewWorkspaceService(db *gorm.DB) WorkspaceServicer {
	return &workspaceService{db: db}
}

// CreateWorkspace creates a workspace and makes ownerID its owner.
func (s *workspaceService) CreateWorkspace(ctx context.Context, ownerID, name, description string) (*models.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "workspace name is required")
	}

	workspace := &models.Workspace{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(workspace).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member := &models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      ownerID,
			Role:        models.WorkspaceRoleOwner,
		}
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return workspace, nil
}

// GetUserWorkspaces lists the workspaces userID is a member of.
func (s *workspaceService) GetUserWorkspaces(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Workspace], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Workspace{}).
		Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.id AND workspace_members.deleted_at IS NULL").
		Where("workspace_members.user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var workspaces []models.Workspace
	if err := base.Select("workspaces.*").Order("workspaces.created_at ASC, workspaces.id ASC").Scopes(pagination.Paginate(page)).Find(&workspaces).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(workspaces, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetMemberRole returns userID's role in workspaceID. Non-members get
// ErrWorkspaceNotFound so that workspace IDs are not disclosed.
func (s *workspaceService) GetMemberRole(ctx context.Context, workspaceID, userID string) (models.WorkspaceRole, error) {
	var member models.WorkspaceMember
	err := s.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.ErrWorkspaceNotFound
		}
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return member.Role, nil
}

// AddMember grants the user registered under email a role in workspaceID.
// Ownership cannot be granted this way.
func (s *workspaceService) AddMember(ctx context.Context, workspaceID, email string, role models.WorkspaceRole) (*models.WorkspaceMember, error) {
	if !role.IsValid() || role == models.WorkspaceRoleOwner {
		return nil, apperrors.WithMessagef(apperrors.ErrInvalidRole, "role must be one of admin, member, viewer, got %q", role)
	}

	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var count int64
	if err := db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, user.ID).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrAlreadyMember
	}

	member := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      user.ID,
		Role:        role,
		User:        &user,
	}
	if err := db.Omit("User").Create(member).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return member, nil
}

// GetMembers lists the members of workspaceID with their users.
func (s *workspaceService) GetMembers(ctx context.Context, workspaceID string) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return members, nil
}
