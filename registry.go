package rbac

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/7Spade/Twilight-Hub-sub001/logger"
)

// Registry resolves role ids to definitions and owns CRUD for custom roles.
// The compiled-in system table is consulted before any I/O: system roles
// always win and never incur a store round trip.
type Registry struct {
	store  RoleStore
	cache  RoleCache
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewRegistry(store RoleStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:  store,
		logger: logger.NewPhusluLogger(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type RegistryOption func(*Registry)

// WithRoleCache installs a cache in front of the custom-role store. Entries
// are invalidated synchronously on every mutating call.
func WithRoleCache(c RoleCache) RegistryOption {
	return func(r *Registry) { r.cache = c }
}

func WithRegistryLogger(l logger.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// GetRoleDefinition returns the definition for id, system table first.
// Returns ErrNotFound when neither a system nor a custom role matches.
func (r *Registry) GetRoleDefinition(ctx context.Context, id string) (*RoleDefinition, error) {
	if sys, ok := systemRolesByID[id]; ok {
		return sys.Clone(), nil
	}
	if r.cache != nil {
		if cached, ok := r.cache.Get(id); ok {
			return cached.Clone(), nil
		}
	}
	role, err := r.store.GetRole(ctx, id)
	if err != nil {
		return nil, storageErr("get role", err)
	}
	if role == nil {
		return nil, fmt.Errorf("role %s: %w", id, ErrNotFound)
	}
	if r.cache != nil {
		r.cache.Set(id, role.Clone())
	}
	return role.Clone(), nil
}

// GetAllRoleDefinitions lists every role: system roles in declaration order,
// then custom roles by creation time descending.
func (r *Registry) GetAllRoleDefinitions(ctx context.Context) ([]*RoleDefinition, error) {
	out := make([]*RoleDefinition, 0, len(systemRoles))
	for _, sys := range systemRoles {
		out = append(out, sys.Clone())
	}
	custom, err := r.store.ListRoles(ctx)
	if err != nil {
		return nil, storageErr("list roles", err)
	}
	sort.SliceStable(custom, func(i, j int) bool {
		return custom[i].CreatedAt.After(custom[j].CreatedAt)
	})
	for _, c := range custom {
		if c.IsSystem {
			continue
		}
		out = append(out, c.Clone())
	}
	return out, nil
}

// CreateRoleInput carries the caller-supplied fields of a new custom role.
type CreateRoleInput struct {
	Name        string
	Description string
	Permissions []Permission
}

// CreateRole validates the permission set against the catalog, assigns a new
// id and persists the role with IsSystem=false. Names that collide with a
// system role are rejected so lookups by name stay unambiguous.
func (r *Registry) CreateRole(ctx context.Context, in CreateRoleInput) (*RoleDefinition, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	for _, sys := range systemRoles {
		if strings.EqualFold(sys.Name, in.Name) {
			return nil, &ValidationError{Field: "name", Reason: fmt.Sprintf("collides with system role %q", sys.Name)}
		}
	}
	perms, err := normalizePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}
	now := r.now()
	role := &RoleDefinition{
		ID:          r.newID(),
		Name:        in.Name,
		Description: in.Description,
		Permissions: perms,
		IsSystem:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.CreateRole(ctx, role); err != nil {
		return nil, storageErr("create role", err)
	}
	if r.cache != nil {
		r.cache.Del(role.ID)
	}
	r.logger.Info("role created", "role_id", role.ID, "name", role.Name, "permissions", len(role.Permissions))
	return role.Clone(), nil
}

// RolePatch holds the fields UpdateRole may change. Nil pointers leave the
// field untouched; a nil Permissions slice leaves the set untouched.
type RolePatch struct {
	Name        *string
	Description *string
	Permissions []Permission
}

// UpdateRole merges patch fields into an existing custom role. Mutating a
// system role fails with ErrForbidden.
func (r *Registry) UpdateRole(ctx context.Context, id string, patch RolePatch) (*RoleDefinition, error) {
	if _, ok := systemRolesByID[id]; ok {
		return nil, fmt.Errorf("update system role %s: %w", id, ErrForbidden)
	}
	role, err := r.store.GetRole(ctx, id)
	if err != nil {
		return nil, storageErr("get role", err)
	}
	if role == nil {
		return nil, fmt.Errorf("role %s: %w", id, ErrNotFound)
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
		}
		role.Name = *patch.Name
	}
	if patch.Description != nil {
		role.Description = *patch.Description
	}
	if patch.Permissions != nil {
		perms, err := normalizePermissions(patch.Permissions)
		if err != nil {
			return nil, err
		}
		role.Permissions = perms
	}
	role.UpdatedAt = r.now()
	if err := r.store.UpdateRole(ctx, role); err != nil {
		return nil, storageErr("update role", err)
	}
	// Invalidate after a successful write so no reader can be served the
	// pre-update permission set from cache.
	if r.cache != nil {
		r.cache.Del(id)
	}
	r.logger.Info("role updated", "role_id", id)
	return role.Clone(), nil
}

// DeleteRole removes a custom role. Assignments still referencing the id are
// left dangling and resolve to deny; the registry does not cascade.
func (r *Registry) DeleteRole(ctx context.Context, id string) error {
	if _, ok := systemRolesByID[id]; ok {
		return fmt.Errorf("delete system role %s: %w", id, ErrForbidden)
	}
	role, err := r.store.GetRole(ctx, id)
	if err != nil {
		return storageErr("get role", err)
	}
	if role == nil {
		return fmt.Errorf("role %s: %w", id, ErrNotFound)
	}
	if err := r.store.DeleteRole(ctx, id); err != nil {
		return storageErr("delete role", err)
	}
	if r.cache != nil {
		r.cache.Del(id)
	}
	r.logger.Info("role deleted", "role_id", id)
	return nil
}
