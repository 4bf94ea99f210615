package stores

import (
	"context"
	"testing"
	"time"

	rbac "github.com/7Spade/Twilight-Hub-sub001"
)

func TestMemoryRoleStoreCloneIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRoleStore()

	role := &rbac.RoleDefinition{ID: "r1", Name: "Reviewer", Permissions: []rbac.Permission{rbac.PermIssueRead}}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("create role: %v", err)
	}
	role.Name = "Mutated"
	role.Permissions[0] = rbac.PermSpaceDelete

	got, err := store.GetRole(ctx, "r1")
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if got.Name != "Reviewer" || got.Permissions[0] != rbac.PermIssueRead {
		t.Fatalf("caller mutation leaked into the store: %+v", got)
	}

	got.Name = "AlsoMutated"
	again, _ := store.GetRole(ctx, "r1")
	if again.Name != "Reviewer" {
		t.Fatalf("returned role shares memory with the store: %+v", again)
	}
}

func TestMemoryRoleStoreGetMissing(t *testing.T) {
	store := NewMemoryRoleStore()
	got, err := store.GetRole(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("missing role should be (nil, nil), got %+v, %v", got, err)
	}
}

func TestMemoryAssignmentStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAssignmentStore()

	first := &rbac.RoleAssignment{UserID: "u1", Scope: rbac.SpaceScope("s1"), RoleID: "viewer", AssignedAt: time.Now()}
	second := &rbac.RoleAssignment{UserID: "u1", Scope: rbac.SpaceScope("s1"), RoleID: "admin", AssignedAt: time.Now()}
	if err := store.UpsertAssignment(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertAssignment(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	list, err := store.ListUserAssignments(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].RoleID != "admin" {
		t.Fatalf("expected one assignment with the second role, got %+v", list)
	}

	// A different scope id for the same user is a separate record.
	other := &rbac.RoleAssignment{UserID: "u1", Scope: rbac.SpaceScope("s2"), RoleID: "viewer"}
	if err := store.UpsertAssignment(ctx, other); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	list, _ = store.ListUserAssignments(ctx, "u1")
	if len(list) != 2 {
		t.Fatalf("expected two assignments across two spaces, got %d", len(list))
	}
}

func TestMemoryAssignmentStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAssignmentStore()

	a := &rbac.RoleAssignment{UserID: "u1", Scope: rbac.OrganizationScope("o1"), RoleID: "admin"}
	if err := store.UpsertAssignment(ctx, a); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.RemoveAssignments(ctx, "u1", rbac.OrganizationScope("o1")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	list, _ := store.ListUserAssignments(ctx, "u1")
	if len(list) != 0 {
		t.Fatalf("expected no assignments after remove, got %+v", list)
	}
}

func TestMemoryAssignmentStoreScopedToUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAssignmentStore()

	_ = store.UpsertAssignment(ctx, &rbac.RoleAssignment{UserID: "u1", Scope: rbac.SpaceScope("s1"), RoleID: "viewer"})
	_ = store.UpsertAssignment(ctx, &rbac.RoleAssignment{UserID: "u2", Scope: rbac.SpaceScope("s1"), RoleID: "admin"})

	list, err := store.ListUserAssignments(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].UserID != "u1" {
		t.Fatalf("list leaked another user's records: %+v", list)
	}
}

func TestMemoryAuditStoreFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuditStore()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, userID := range []string{"u1", "u1", "u2"} {
		entry := &rbac.AuditEntry{
			ID:         string(rune('a' + i)),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			UserID:     userID,
			Permission: rbac.PermSpaceRead,
			Granted:    i != 1,
			Reason:     rbac.ReasonGranted,
		}
		if err := store.LogDecision(ctx, entry); err != nil {
			t.Fatalf("log decision: %v", err)
		}
	}

	logs, err := store.GetAccessLog(ctx, rbac.AuditFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("get access log: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 entries for u1, got %d", len(logs))
	}

	logs, _ = store.GetAccessLog(ctx, rbac.AuditFilter{UserID: "u1", Limit: 1})
	if len(logs) != 1 {
		t.Fatalf("limit not honored, got %d", len(logs))
	}

	logs, _ = store.GetAccessLog(ctx, rbac.AuditFilter{StartTime: base.Add(90 * time.Second)})
	if len(logs) != 1 || logs[0].UserID != "u2" {
		t.Fatalf("time filter mismatch: %+v", logs)
	}
}
