package rbac

import (
	"context"
	"time"
)

// RoleDefinition is a named, reusable set of permissions. System roles are
// compiled into the binary and immutable; custom roles live behind the
// RoleStore port.
type RoleDefinition struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Permissions []Permission `json:"permissions" yaml:"permissions"`
	IsSystem    bool         `json:"is_system" yaml:"is_system"`
	CreatedAt   time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy so callers cannot mutate registry state through
// a returned definition.
func (r *RoleDefinition) Clone() *RoleDefinition {
	if r == nil {
		return nil
	}
	dup := *r
	dup.Permissions = make([]Permission, len(r.Permissions))
	copy(dup.Permissions, r.Permissions)
	return &dup
}

// Grants reports whether the role's permission set contains p.
func (r *RoleDefinition) Grants(p Permission) bool {
	for _, have := range r.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// System role IDs. These are identical across every instance of a deployment
// and must never be persisted.
const (
	SystemRoleOwner  = "system-owner"
	SystemRoleAdmin  = "system-admin"
	SystemRoleMember = "system-member"
	SystemRoleViewer = "system-viewer"
)

// systemRoles is the compiled-in role table, in declaration order.
// GetAllRoleDefinitions lists system roles in exactly this order.
var systemRoles = []*RoleDefinition{
	{
		ID:          SystemRoleOwner,
		Name:        "Owner",
		Description: "Full control over the space, including deletion and role management",
		Permissions: Permissions(),
		IsSystem:    true,
	},
	{
		ID:          SystemRoleAdmin,
		Name:        "Admin",
		Description: "Manages the space, participants, contracts, files and settings",
		Permissions: []Permission{
			PermSpaceRead, PermSpaceUpdate, PermSpaceManage,
			PermParticipantInvite, PermParticipantRemove,
			PermContractRead, PermContractCreate, PermContractUpdate, PermContractDelete,
			PermFileRead, PermFileUpload, PermFileDownload, PermFileDelete,
			PermIssueRead, PermIssueCreate, PermIssueUpdate, PermIssueDelete,
			PermSettingsUpdate,
		},
		IsSystem: true,
	},
	{
		ID:          SystemRoleMember,
		Name:        "Member",
		Description: "Works inside the space: contracts, files and issues",
		Permissions: []Permission{
			PermSpaceRead,
			PermContractRead, PermContractCreate, PermContractUpdate,
			PermFileRead, PermFileUpload, PermFileDownload,
			PermIssueRead, PermIssueCreate, PermIssueUpdate,
		},
		IsSystem: true,
	},
	{
		ID:          SystemRoleViewer,
		Name:        "Viewer",
		Description: "Read-only access to the space",
		Permissions: []Permission{
			PermSpaceRead, PermContractRead, PermFileRead, PermFileDownload, PermIssueRead,
		},
		IsSystem: true,
	},
}

var systemRolesByID = func() map[string]*RoleDefinition {
	m := make(map[string]*RoleDefinition, len(systemRoles))
	for _, r := range systemRoles {
		m[r.ID] = r
	}
	return m
}()

// SystemRole returns the compiled-in definition for id, or nil.
func SystemRole(id string) *RoleDefinition {
	return systemRolesByID[id].Clone()
}

// RoleStore persists custom roles. System roles never reach the store.
// GetRole returns (nil, nil) when the id is unknown; a non-nil error means
// the port itself failed.
type RoleStore interface {
	CreateRole(ctx context.Context, r *RoleDefinition) error
	UpdateRole(ctx context.Context, r *RoleDefinition) error
	DeleteRole(ctx context.Context, id string) error
	GetRole(ctx context.Context, id string) (*RoleDefinition, error)
	ListRoles(ctx context.Context) ([]*RoleDefinition, error)
}
