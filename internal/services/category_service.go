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

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a category. With parentID set the category becomes
// a subcategory and inherits the parent's type.
func (s *categoryService) CreateCategory(
	ctx context.Context,
	workspaceID string,
	name string,
	categoryType models.CategoryType,
	description string,
	icon string,
	color string,
	parentID *string,
) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	db := s.db.WithContext(ctx)

	if parentID != nil && *parentID != "" {
		parent, err := s.findParent(db, workspaceID, *parentID)
		if err != nil {
			return nil, err
		}
		if categoryType != "" && categoryType != parent.Type {
			return nil, apperrors.WithMessagef(apperrors.ErrInvalidInput,
				"subcategory type %q does not match parent type %q", categoryType, parent.Type)
		}
		categoryType = parent.Type
	} else {
		parentID = nil
	}

	if categoryType != models.CategoryTypeIncome && categoryType != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be income or expense")
	}

	if err := s.checkNameAvailable(db, workspaceID, name, parentID, ""); err != nil {
		return nil, err
	}

	category := &models.Category{
		WorkspaceID: workspaceID,
		Name:        name,
		Type:        categoryType,
		Description: description,
		Icon:        icon,
		Color:       color,
		ParentID:    parentID,
	}

	if err := db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// findParent loads a prospective parent and checks that it is top-level.
func (s *categoryService) findParent(db *gorm.DB, workspaceID, parentID string) (*models.Category, error) {
	var parent models.Category
	if err := db.Where("id = ? AND workspace_id = ?", parentID, workspaceID).First(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if parent.IsSubcategory() {
		return nil, apperrors.ErrNestedSubcategory
	}
	return &parent, nil
}

// Names are unique among siblings.
func (s *categoryService) checkNameAvailable(db *gorm.DB, workspaceID, name string, parentID *string, excludeID string) error {
	q := db.Model(&models.Category{}).Where("workspace_id = ? AND name = ?", workspaceID, name)
	if parentID != nil {
		q = q.Where("parent_id = ?", *parentID)
	} else {
		q = q.Where("parent_id IS NULL")
	}
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category with this name already exists")
	}
	return nil
}

// GetWorkspaceCategories retrieves a paginated list of categories in a
// workspace, optionally restricted to one type.
func (s *categoryService) GetWorkspaceCategories(
	ctx context.Context,
	workspaceID string,
	categoryType *models.CategoryType,
	page pagination.PageRequest,
) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Category{}).Where("workspace_id = ?", workspaceID)
	if categoryType != nil {
		base = base.Where("type = ?", *categoryType)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Order("name ASC").Scopes(pagination.Paginate(page)).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCategoryByID retrieves a category in a workspace with its children.
func (s *categoryService) GetCategoryByID(ctx context.Context, workspaceID, categoryID string) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).
		Preload("Children").
		Where("id = ? AND workspace_id = ?", categoryID, workspaceID).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates an existing category. Empty strings leave a field
// unchanged; a non-nil empty parentID promotes a subcategory to top-level.
func (s *categoryService) UpdateCategory(
	ctx context.Context,
	workspaceID string,
	categoryID string,
	name string,
	description string,
	icon string,
	color string,
	parentID *string,
) (*models.Category, error) {
	category, err := s.GetCategoryByID(ctx, workspaceID, categoryID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	updates := make(map[string]interface{})
	newParent := category.ParentID

	if parentID != nil {
		if *parentID == "" {
			newParent = nil
			updates["parent_id"] = nil
		} else {
			if *parentID == categoryID {
				return nil, apperrors.ErrSelfParentCategory
			}
			if len(category.Children) > 0 {
				return nil, apperrors.WithMessage(apperrors.ErrNestedSubcategory, "a category with subcategories cannot become a subcategory")
			}
			parent, err := s.findParent(db, workspaceID, *parentID)
			if err != nil {
				return nil, err
			}
			if parent.Type != category.Type {
				return nil, apperrors.WithMessagef(apperrors.ErrInvalidInput,
					"subcategory type %q does not match parent type %q", category.Type, parent.Type)
			}
			newParent = &parent.ID
			updates["parent_id"] = parent.ID
		}
	}

	newName := category.Name
	if name = strings.TrimSpace(name); name != "" {
		newName = name
		updates["name"] = name
	}
	if _, ok := updates["name"]; ok || parentID != nil {
		if err := s.checkNameAvailable(db, workspaceID, newName, newParent, category.ID); err != nil {
			return nil, err
		}
	}

	if description != "" {
		updates["description"] = description
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}

	if len(updates) > 0 {
		if err := db.Model(&models.Category{}).Where("id = ?", category.ID).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetCategoryByID(ctx, workspaceID, categoryID)
}
