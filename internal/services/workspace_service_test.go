package services

import (
	"context"
	"testing"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/testutil"
)

func TestCreateWorkspace(t *testing.T) {
	ctx := context.Background()

	t.Run("creator_becomes_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWorkspaceService(db)
		user := testutil.CreateTestUser(t, db)

		ws, err := svc.CreateWorkspace(ctx, user.ID, "Household", "shared costs")
		testutil.AssertNoError(t, err)

		if ws.OwnerID != user.ID {
			t.Errorf("expected owner %s, got %s", user.ID, ws.OwnerID)
		}
		role, err := svc.GetMemberRole(ctx, ws.ID, user.ID)
		testutil.AssertNoError(t, err)
		if role != models.WorkspaceRoleOwner {
			t.Errorf("expected owner role, got %s", role)
		}
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWorkspaceService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateWorkspace(ctx, user.ID, "  ", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserWorkspaces(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := NewWorkspaceService(db)

	alice := testutil.CreateTestUser(t, db)
	bob := testutil.CreateTestUser(t, db)
	testutil.CreateTestWorkspace(t, db, alice.ID)
	shared := testutil.CreateTestWorkspace(t, db, bob.ID)
	testutil.AddTestMember(t, db, shared.ID, alice.ID, models.WorkspaceRoleViewer)

	result, err := svc.GetUserWorkspaces(ctx, alice.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 2 {
		t.Errorf("expected 2 workspaces for alice, got %d", result.TotalItems)
	}

	result, err = svc.GetUserWorkspaces(ctx, bob.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 1 || result.Data[0].ID != shared.ID {
		t.Errorf("expected only the shared workspace for bob, got %+v", result.Data)
	}
}

func TestGetMemberRole(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := NewWorkspaceService(db)

	owner := testutil.CreateTestUser(t, db)
	stranger := testutil.CreateTestUser(t, db)
	ws := testutil.CreateTestWorkspace(t, db, owner.ID)

	_, err := svc.GetMemberRole(ctx, ws.ID, stranger.ID)
	testutil.AssertAppError(t, err, "WORKSPACE_NOT_FOUND")
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()

	t.Run("adds_by_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWorkspaceService(db)
		owner := testutil.CreateTestUser(t, db)
		guest := testutil.CreateTestUserWithEmail(t, db, "guest@example.com")
		ws := testutil.CreateTestWorkspace(t, db, owner.ID)

		member, err := svc.AddMember(ctx, ws.ID, "Guest@example.com", models.WorkspaceRoleMember)
		testutil.AssertNoError(t, err)
		if member.UserID != guest.ID || member.Role != models.WorkspaceRoleMember {
			t.Errorf("unexpected member %+v", member)
		}

		members, err := svc.GetMembers(ctx, ws.ID)
		testutil.AssertNoError(t, err)
		if len(members) != 2 {
			t.Fatalf("expected 2 members, got %d", len(members))
		}
		found := false
		for _, m := range members {
			if m.UserID == guest.ID {
				found = m.User != nil && m.User.Email == "guest@example.com"
			}
		}
		if !found {
			t.Error("expected member user to be preloaded")
		}
	})

	t.Run("already_member", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWorkspaceService(db)
		owner := testutil.CreateTestUserWithEmail(t, db, "owner@example.com")
		ws := testutil.CreateTestWorkspace(t, db, owner.ID)

		_, err := svc.AddMember(ctx, ws.ID, "owner@example.com", models.WorkspaceRoleAdmin)
		testutil.AssertAppError(t, err, "ALREADY_MEMBER")
	})

	t.Run("owner_role_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWorkspaceService(db)
		owner := testutil.CreateTestUser(t, db)
		testutil.CreateTestUserWithEmail(t, db, "guest@example.com")
		ws := testutil.CreateTestWorkspace(t, db, owner.ID)

		_, err := svc.AddMember(ctx, ws.ID, "guest@example.com", models.WorkspaceRoleOwner)
		testutil.AssertAppError(t, err, "INVALID_ROLE")

		_, err = svc.AddMember(ctx, ws.ID, "guest@example.com", models.WorkspaceRole("superuser"))
		testutil.AssertAppError(t, err, "INVALID_ROLE")
	})

	t.Run("unknown_user", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewWorkspaceService(db)
		owner := testutil.CreateTestUser(t, db)
		ws := testutil.CreateTestWorkspace(t, db, owner.ID)

		_, err := svc.AddMember(ctx, ws.ID, "nobody@example.com", models.WorkspaceRoleViewer)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})
}

func TestWorkspaceRoleAtLeast(t *testing.T) {
	tests := []struct {
		role models.WorkspaceRole
		min  models.WorkspaceRole
		want bool
	}{
		{models.WorkspaceRoleOwner, models.WorkspaceRoleAdmin, true},
		{models.WorkspaceRoleAdmin, models.WorkspaceRoleAdmin, true},
		{models.WorkspaceRoleMember, models.WorkspaceRoleAdmin, false},
		{models.WorkspaceRoleViewer, models.WorkspaceRoleMember, false},
		{models.WorkspaceRoleViewer, models.WorkspaceRoleViewer, true},
		{models.WorkspaceRole(""), models.WorkspaceRoleViewer, false},
	}

	for _, tt := range tests {
		if got := tt.role.AtLeast(tt.min); got != tt.want {
			t.Errorf("%q.AtLeast(%q) = %v, want %v", tt.role, tt.min, got, tt.want)
		}
	}
}
