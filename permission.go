package rbac

import "fmt"

// Permission is an atomic capability identifier drawn from a closed catalog.
// Permissions are never user-defined; only the catalog below enumerates
// valid values.
type Permission string

const (
	PermSpaceRead   Permission = "space:read"
	PermSpaceUpdate Permission = "space:update"
	PermSpaceManage Permission = "space:manage"
	PermSpaceDelete Permission = "space:delete"

	PermParticipantInvite Permission = "participant:invite"
	PermParticipantRemove Permission = "participant:remove"

	PermContractRead   Permission = "contract:read"
	PermContractCreate Permission = "contract:create"
	PermContractUpdate Permission = "contract:update"
	PermContractDelete Permission = "contract:delete"

	PermFileRead     Permission = "file:read"
	PermFileUpload   Permission = "file:upload"
	PermFileDownload Permission = "file:download"
	PermFileDelete   Permission = "file:delete"

	PermIssueRead   Permission = "issue:read"
	PermIssueCreate Permission = "issue:create"
	PermIssueUpdate Permission = "issue:update"
	PermIssueDelete Permission = "issue:delete"

	PermSettingsUpdate Permission = "settings:update"
	PermRoleManage     Permission = "role:manage"
)

// catalog is the closed enumeration of every permission the system
// understands, in declaration order. Adding an entry is backward compatible;
// removing one invalidates any role that references it.
var catalog = []Permission{
	PermSpaceRead,
	PermSpaceUpdate,
	PermSpaceManage,
	PermSpaceDelete,
	PermParticipantInvite,
	PermParticipantRemove,
	PermContractRead,
	PermContractCreate,
	PermContractUpdate,
	PermContractDelete,
	PermFileRead,
	PermFileUpload,
	PermFileDownload,
	PermFileDelete,
	PermIssueRead,
	PermIssueCreate,
	PermIssueUpdate,
	PermIssueDelete,
	PermSettingsUpdate,
	PermRoleManage,
}

var catalogSet = func() map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(catalog))
	for _, p := range catalog {
		m[p] = struct{}{}
	}
	return m
}()

// Permissions returns the full catalog in a stable order. The returned slice
// is a copy; callers may mutate it freely.
func Permissions() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	return out
}

// Valid reports whether p belongs to the catalog.
func (p Permission) Valid() bool {
	_, ok := catalogSet[p]
	return ok
}

// ParsePermission validates a raw string against the catalog. Unknown values
// yield a *ValidationError so invalid permissions are caught at the boundary
// instead of silently never matching.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.Valid() {
		return "", &ValidationError{Field: "permission", Reason: fmt.Sprintf("unknown permission %q", s)}
	}
	return p, nil
}

// normalizePermissions collapses duplicates while preserving first-seen order
// and rejects anything outside the catalog.
func normalizePermissions(perms []Permission) ([]Permission, error) {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if !p.Valid() {
			return nil, &ValidationError{Field: "permissions", Reason: fmt.Sprintf("unknown permission %q", string(p))}
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
