package rbac

import (
	"context"
	"time"
)

// ScopeKind discriminates the two contexts a role assignment applies to.
type ScopeKind string

const (
	ScopeOrganization ScopeKind = "organization"
	ScopeSpace        ScopeKind = "space"
)

// Scope identifies the organization or space an assignment is bound to.
type Scope struct {
	Kind ScopeKind `json:"kind" yaml:"kind"`
	ID   string    `json:"id" yaml:"id"`
}

func SpaceScope(spaceID string) Scope { return Scope{Kind: ScopeSpace, ID: spaceID} }

func OrganizationScope(orgID string) Scope { return Scope{Kind: ScopeOrganization, ID: orgID} }

// RoleAssignment binds a user to a role within one scope, with audit
// metadata. A user holds at most one assignment per (scope kind, scope id)
// pair; stores enforce this with upsert semantics.
type RoleAssignment struct {
	UserID     string    `json:"user_id" yaml:"user_id"`
	Scope      Scope     `json:"scope" yaml:"scope"`
	RoleID     string    `json:"role_id" yaml:"role_id"`
	AssignedBy string    `json:"assigned_by" yaml:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at" yaml:"assigned_at"`
	ExpiresAt  time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"` // zero = no expiry
}

// Expired reports whether the assignment has lapsed at the given instant.
func (a *RoleAssignment) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && now.After(a.ExpiresAt)
}

func (a *RoleAssignment) Clone() *RoleAssignment {
	if a == nil {
		return nil
	}
	dup := *a
	return &dup
}

// UserRoleAssignment is the read-mostly aggregate the resolver works on. It
// is rebuilt from the AssignmentStore for one check and discarded; it is not
// a long-lived mutable object.
type UserRoleAssignment struct {
	UserID            string
	OrganizationRoles []*RoleAssignment
	SpaceRoles        map[string]*RoleAssignment // keyed by space id
}

// Empty reports whether the user holds no assignment at all.
func (u *UserRoleAssignment) Empty() bool {
	return u == nil || (len(u.OrganizationRoles) == 0 && len(u.SpaceRoles) == 0)
}

// buildUserRoleAssignment folds a flat assignment list into the aggregate.
func buildUserRoleAssignment(userID string, list []*RoleAssignment) *UserRoleAssignment {
	agg := &UserRoleAssignment{
		UserID:            userID,
		OrganizationRoles: make([]*RoleAssignment, 0, len(list)),
		SpaceRoles:        make(map[string]*RoleAssignment),
	}
	for _, a := range list {
		if a == nil || a.UserID != userID {
			continue
		}
		switch a.Scope.Kind {
		case ScopeOrganization:
			agg.OrganizationRoles = append(agg.OrganizationRoles, a)
		case ScopeSpace:
			agg.SpaceRoles[a.Scope.ID] = a
		}
	}
	return agg
}

// AssignmentStore persists role assignments keyed by (user, scope kind,
// scope id). Upsert writes replace any previous record for the same key.
type AssignmentStore interface {
	UpsertAssignment(ctx context.Context, a *RoleAssignment) error
	RemoveAssignments(ctx context.Context, userID string, scope Scope) error
	ListUserAssignments(ctx context.Context, userID string) ([]*RoleAssignment, error)
}
