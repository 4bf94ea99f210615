package rbac

import (
	"context"
	"fmt"
)

// Guard is the thin adapter UI guards, permission-gated buttons and
// server-side action checks consume. It holds no authorization logic of its
// own; every answer comes from the engine, and ambiguous state reads as
// denied.
type Guard struct {
	engine *Engine
}

func NewGuard(engine *Engine) *Guard {
	return &Guard{engine: engine}
}

// Can reports whether the user holds the permission in the space. It never
// errors; callers render their fallback on false.
func (g *Guard) Can(ctx context.Context, userID, spaceID string, perm Permission) bool {
	return g.engine.CheckPermission(ctx, userID, spaceID, perm, nil).HasPermission
}

// CanWith answers from an already-loaded assignment aggregate, for callers
// that batch many checks against one load.
func (g *Guard) CanWith(ctx context.Context, assignment *UserRoleAssignment, spaceID string, perm Permission) bool {
	return g.engine.HasPermission(ctx, assignment, spaceID, perm)
}

// Require returns ErrForbidden unless the permission is granted, for use as
// a precondition in server-side actions.
func (g *Guard) Require(ctx context.Context, userID, spaceID string, perm Permission) error {
	if !g.Can(ctx, userID, spaceID, perm) {
		return fmt.Errorf("user %s lacks %s in space %s: %w", userID, perm, spaceID, ErrForbidden)
	}
	return nil
}

// AssignablePermissions lists what an administrator may attach to a custom
// role, i.e. the whole catalog.
func (g *Guard) AssignablePermissions() []Permission {
	return g.engine.GetAllPermissions()
}
