package stores

import (
	"context"
	"fmt"

	"github.com/oarkflow/squealx"

	rbac "github.com/7Spade/Twilight-Hub-sub001"
)

// SQLAssignmentStore persists assignments in two record sets, one per scope
// kind: user_space_roles and user_org_roles. Both carry a primary key on
// (user_id, scope id), so writes are true upserts and at most one record
// exists per (user, scope) pair.
type SQLAssignmentStore struct {
	db *squealx.DB
}

func NewSQLAssignmentStore(db *squealx.DB) *SQLAssignmentStore {
	return &SQLAssignmentStore{db: db}
}

func (s *SQLAssignmentStore) UpsertAssignment(ctx context.Context, a *rbac.RoleAssignment) error {
	args := map[string]any{
		"user_id": a.UserID, "scope_id": a.Scope.ID, "role_id": a.RoleID,
		"assigned_by": a.AssignedBy, "assigned_at": a.AssignedAt,
		"expires_at": sqlNullTimeOrNil(a.ExpiresAt),
	}
	var q string
	switch a.Scope.Kind {
	case rbac.ScopeSpace:
		q = `INSERT INTO user_space_roles(user_id, space_id, role_id, assigned_by, assigned_at, expires_at)
		     VALUES(:user_id, :scope_id, :role_id, :assigned_by, :assigned_at, :expires_at)
		     ON CONFLICT(user_id, space_id) DO UPDATE SET
		       role_id=excluded.role_id, assigned_by=excluded.assigned_by,
		       assigned_at=excluded.assigned_at, expires_at=excluded.expires_at`
	case rbac.ScopeOrganization:
		q = `INSERT INTO user_org_roles(user_id, organization_id, role_id, assigned_by, assigned_at, expires_at)
		     VALUES(:user_id, :scope_id, :role_id, :assigned_by, :assigned_at, :expires_at)
		     ON CONFLICT(user_id, organization_id) DO UPDATE SET
		       role_id=excluded.role_id, assigned_by=excluded.assigned_by,
		       assigned_at=excluded.assigned_at, expires_at=excluded.expires_at`
	default:
		return fmt.Errorf("unknown scope kind %q", a.Scope.Kind)
	}
	_, err := s.db.NamedExecContext(ctx, q, args)
	return err
}

func (s *SQLAssignmentStore) RemoveAssignments(ctx context.Context, userID string, scope rbac.Scope) error {
	var q string
	switch scope.Kind {
	case rbac.ScopeSpace:
		q = `DELETE FROM user_space_roles WHERE user_id = :user_id AND space_id = :scope_id`
	case rbac.ScopeOrganization:
		q = `DELETE FROM user_org_roles WHERE user_id = :user_id AND organization_id = :scope_id`
	default:
		return fmt.Errorf("unknown scope kind %q", scope.Kind)
	}
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{"user_id": userID, "scope_id": scope.ID})
	return err
}

func (s *SQLAssignmentStore) ListUserAssignments(ctx context.Context, userID string) ([]*rbac.RoleAssignment, error) {
	out := make([]*rbac.RoleAssignment, 0)

	spaceQ := `SELECT space_id, role_id, assigned_by, assigned_at, expires_at
	           FROM user_space_roles WHERE user_id = :user_id`
	if err := s.scanAssignments(ctx, spaceQ, userID, rbac.ScopeSpace, &out); err != nil {
		return nil, err
	}
	orgQ := `SELECT organization_id, role_id, assigned_by, assigned_at, expires_at
	         FROM user_org_roles WHERE user_id = :user_id ORDER BY assigned_at`
	if err := s.scanAssignments(ctx, orgQ, userID, rbac.ScopeOrganization, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLAssignmentStore) scanAssignments(ctx context.Context, q, userID string, kind rbac.ScopeKind, out *[]*rbac.RoleAssignment) error {
	rows, err := s.db.NamedQueryContext(ctx, q, map[string]any{"user_id": userID})
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var scopeID, roleID, assignedBy string
		var assignedRaw, expiresRaw any
		if err := rows.Scan(&scopeID, &roleID, &assignedBy, &assignedRaw, &expiresRaw); err != nil {
			return err
		}
		a := &rbac.RoleAssignment{
			UserID:     userID,
			Scope:      rbac.Scope{Kind: kind, ID: scopeID},
			RoleID:     roleID,
			AssignedBy: assignedBy,
			AssignedAt: scanTime(assignedRaw),
		}
		if expiresRaw != nil {
			a.ExpiresAt = scanTime(expiresRaw)
		}
		*out = append(*out, a)
	}
	return nil
}
