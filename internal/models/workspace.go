package models

// WorkspaceRole is a member's permission level within a workspace.
type WorkspaceRole string

const (
	WorkspaceRoleOwner  WorkspaceRole = "owner"
	WorkspaceRoleAdmin  WorkspaceRole = "admin"
	WorkspaceRoleMember WorkspaceRole = "member"
	WorkspaceRoleViewer WorkspaceRole = "viewer"
)

var roleRank = map[WorkspaceRole]int{
	WorkspaceRoleViewer: 1,
	WorkspaceRoleMember: 2,
	WorkspaceRoleAdmin:  3,
	WorkspaceRoleOwner:  4,
}

// IsValid reports whether r is a known role.
func (r WorkspaceRole) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the permissions of min.
func (r WorkspaceRole) AtLeast(min WorkspaceRole) bool {
	return roleRank[r] >= roleRank[min] && roleRank[r] > 0
}

// Workspace is the tenant boundary: every account, category, transaction,
// budget and recurring transaction belongs to exactly one workspace.
type Workspace struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	OwnerID     string `gorm:"type:uuid;not null;index" json:"owner_id"`

	Members []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
}

// WorkspaceMember grants a user a role in a workspace.
type WorkspaceMember struct {
	Base
	WorkspaceID string        `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_member" json:"workspace_id"`
	UserID      string        `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_member" json:"user_id"`
	Role        WorkspaceRole `gorm:"not null" json:"role"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
