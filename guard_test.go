package rbac

import (
	"context"
	"errors"
	"testing"
)

func TestGuardCan(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	guard := NewGuard(eng)

	mustAssign(t, eng, AssignRoleInput{UserID: "u1", SpaceID: "space-1", RoleID: SystemRoleMember})

	if !guard.Can(ctx, "u1", "space-1", PermIssueCreate) {
		t.Fatalf("member should create issues")
	}
	if guard.Can(ctx, "u1", "space-1", PermParticipantRemove) {
		t.Fatalf("member must not remove participants")
	}
	if guard.Can(ctx, "u2", "space-1", PermSpaceRead) {
		t.Fatalf("unassigned user must be denied")
	}
}

func TestGuardCanWith(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	guard := NewGuard(eng)

	agg := buildUserRoleAssignment("u1", []*RoleAssignment{
		{UserID: "u1", Scope: OrganizationScope("org-1"), RoleID: SystemRoleAdmin},
	})
	if !guard.CanWith(context.Background(), agg, "space-9", PermSettingsUpdate) {
		t.Fatalf("org admin should update settings in any space of the org context")
	}
}

func TestGuardRequire(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	guard := NewGuard(eng)

	mustAssign(t, eng, AssignRoleInput{UserID: "u1", SpaceID: "space-1", RoleID: SystemRoleViewer})

	if err := guard.Require(ctx, "u1", "space-1", PermSpaceRead); err != nil {
		t.Fatalf("require granted permission: %v", err)
	}
	err := guard.Require(ctx, "u1", "space-1", PermContractCreate)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGuardAssignablePermissions(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	guard := NewGuard(eng)

	got := guard.AssignablePermissions()
	if len(got) != len(Permissions()) {
		t.Fatalf("expected the full catalog, got %d permissions", len(got))
	}
}
