package rbac

import (
	"context"
)

// CheckRequest is the string-typed boundary shape used by admin tooling and
// handlers that receive untyped input.
type CheckRequest struct {
	UserID     string `json:"user_id"`
	SpaceID    string `json:"space_id"`
	Permission string `json:"permission"`
}

// CheckRequest validates the raw permission against the catalog and runs a
// full resolution. Unknown permissions deny instead of erroring, matching
// the fail-closed contract of the check path.
func (e *Engine) CheckRequest(ctx context.Context, req *CheckRequest) *Decision {
	if req == nil {
		return &Decision{Reason: ReasonDenied}
	}
	perm, err := ParsePermission(req.Permission)
	if err != nil {
		e.logger.Debug("check request with unknown permission",
			"user_id", req.UserID, "permission", req.Permission)
		return &Decision{Reason: ReasonDenied}
	}
	return e.CheckPermission(ctx, req.UserID, req.SpaceID, perm, nil)
}
