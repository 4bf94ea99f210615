package rbac

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/7Spade/Twilight-Hub-sub001/logger"
)

// Reason explains a resolution outcome.
type Reason string

const (
	ReasonGranted     Reason = "granted"
	ReasonDenied      Reason = "denied"
	ReasonNotAssigned Reason = "not_assigned"
)

// Source attributes a grant to the scope that produced it.
type Source string

const (
	SourceSpace        Source = "space"
	SourceOrganization Source = "organization"
)

// Decision is the result of one permission resolution. Denials carry a
// Reason; grants additionally name the scope and role that granted.
type Decision struct {
	HasPermission bool   `json:"has_permission"`
	Reason        Reason `json:"reason"`
	Source        Source `json:"source,omitempty"`
	RoleID        string `json:"role_id,omitempty"`
}

// TraceIDFunc generates a correlation id attached to decision logs and audit
// entries. It must be cheap and safe for concurrent calls.
type TraceIDFunc func() string

// Engine is the authorization resolution engine: role registry, assignment
// store and permission resolver behind one surface. Checks are stateless and
// may run concurrently; mutations are administrative read-modify-write calls
// with last-write-wins semantics (no optimistic locking).
type Engine struct {
	registry    *Registry
	assignments AssignmentStore
	auditStore  AuditStore
	logger      logger.Logger
	now         func() time.Time
	traceIDFunc TraceIDFunc

	checkTimeout time.Duration

	auditBuffer int
	auditCh     chan AuditEntry
	auditDone   chan struct{}
	closeOnce   sync.Once

	roleCache RoleCache
}

// EngineOption mutates the engine during construction.
type EngineOption func(*Engine) error

// WithLogger installs a structured logger. The default logs through
// oarkflow/log.
func WithLogger(l logger.Logger) EngineOption {
	return func(e *Engine) error {
		if l == nil {
			return fmt.Errorf("logger must not be nil")
		}
		e.logger = l
		return nil
	}
}

// WithRoleCacheOption puts a cache in front of the custom-role store. The
// registry invalidates it synchronously on every role mutation.
func WithRoleCacheOption(c RoleCache) EngineOption {
	return func(e *Engine) error {
		e.roleCache = c
		return nil
	}
}

// WithAuditStore enables the asynchronous decision audit trail.
func WithAuditStore(s AuditStore) EngineOption {
	return func(e *Engine) error {
		e.auditStore = s
		return nil
	}
}

// WithAuditBuffer sizes the async audit channel. Entries are dropped rather
// than blocking the check path once the buffer is full.
func WithAuditBuffer(n int) EngineOption {
	return func(e *Engine) error {
		if n <= 0 {
			return fmt.Errorf("audit buffer must be positive")
		}
		e.auditBuffer = n
		return nil
	}
}

// WithClock overrides the time source used for assignment expiry and
// timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) error {
		e.now = now
		return nil
	}
}

// WithTraceIDFunc installs a correlation-id generator.
func WithTraceIDFunc(f TraceIDFunc) EngineOption {
	return func(e *Engine) error {
		e.traceIDFunc = f
		return nil
	}
}

// WithResolutionTimeout bounds the registry/store round trips of a single
// check. On expiry the check fails closed instead of waiting.
func WithResolutionTimeout(d time.Duration) EngineOption {
	return func(e *Engine) error {
		e.checkTimeout = d
		return nil
	}
}

func NewEngine(roleStore RoleStore, assignmentStore AssignmentStore, opts ...EngineOption) (*Engine, error) {
	if roleStore == nil {
		return nil, fmt.Errorf("role store is required")
	}
	if assignmentStore == nil {
		return nil, fmt.Errorf("assignment store is required")
	}
	e := &Engine{
		assignments: assignmentStore,
		logger:      logger.NewPhusluLogger(),
		now:         time.Now,
		auditBuffer: 1024,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	regOpts := []RegistryOption{WithRegistryLogger(e.logger), WithRegistryClock(e.now)}
	if e.roleCache != nil {
		regOpts = append(regOpts, WithRoleCache(e.roleCache))
	}
	e.registry = NewRegistry(roleStore, regOpts...)

	if e.auditStore != nil {
		e.auditCh = make(chan AuditEntry, e.auditBuffer)
		e.auditDone = make(chan struct{})
		go e.auditLoop()
	}
	return e, nil
}

// Registry exposes the role registry for callers that only manage roles.
func (e *Engine) Registry() *Registry { return e.registry }

// Close flushes and stops the audit worker. Safe to call more than once.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		if e.auditCh != nil {
			close(e.auditCh)
			<-e.auditDone
		}
	})
}

// ---------------------------------------------------------------------------
// Role registry surface
// ---------------------------------------------------------------------------

func (e *Engine) GetRoleDefinition(ctx context.Context, id string) (*RoleDefinition, error) {
	return e.registry.GetRoleDefinition(ctx, id)
}

func (e *Engine) GetAllRoleDefinitions(ctx context.Context) ([]*RoleDefinition, error) {
	return e.registry.GetAllRoleDefinitions(ctx)
}

func (e *Engine) CreateRole(ctx context.Context, in CreateRoleInput) (*RoleDefinition, error) {
	return e.registry.CreateRole(ctx, in)
}

func (e *Engine) UpdateRole(ctx context.Context, id string, patch RolePatch) (*RoleDefinition, error) {
	return e.registry.UpdateRole(ctx, id, patch)
}

func (e *Engine) DeleteRole(ctx context.Context, id string) error {
	return e.registry.DeleteRole(ctx, id)
}

// GetAllPermissions lists the permission catalog, independent of roles and
// users.
func (e *Engine) GetAllPermissions() []Permission { return Permissions() }

// ---------------------------------------------------------------------------
// Assignment surface
// ---------------------------------------------------------------------------

// AssignRoleInput names exactly one scope: SpaceID or OrganizationID.
type AssignRoleInput struct {
	UserID         string
	SpaceID        string
	OrganizationID string
	RoleID         string
	AssignedBy     string
	ExpiresAt      time.Time
}

func (in AssignRoleInput) scope() (Scope, error) {
	switch {
	case in.SpaceID != "" && in.OrganizationID != "":
		return Scope{}, &ValidationError{Field: "scope", Reason: "space_id and organization_id are mutually exclusive"}
	case in.SpaceID != "":
		return SpaceScope(in.SpaceID), nil
	case in.OrganizationID != "":
		return OrganizationScope(in.OrganizationID), nil
	default:
		return Scope{}, &ValidationError{Field: "scope", Reason: "one of space_id or organization_id is required"}
	}
}

// AssignRole records a role assignment, replacing any previous assignment
// for the same (user, scope) pair. The role id is not required to resolve;
// a dangling reference denies at resolution time rather than failing here.
func (e *Engine) AssignRole(ctx context.Context, in AssignRoleInput) error {
	if in.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if in.RoleID == "" {
		return &ValidationError{Field: "role_id", Reason: "must not be empty"}
	}
	scope, err := in.scope()
	if err != nil {
		return err
	}
	a := &RoleAssignment{
		UserID:     in.UserID,
		Scope:      scope,
		RoleID:     in.RoleID,
		AssignedBy: in.AssignedBy,
		AssignedAt: e.now(),
		ExpiresAt:  in.ExpiresAt,
	}
	if err := e.assignments.UpsertAssignment(ctx, a); err != nil {
		return storageErr("upsert assignment", err)
	}
	e.logger.Info("role assigned",
		"user_id", in.UserID, "scope_kind", string(scope.Kind), "scope_id", scope.ID,
		"role_id", in.RoleID, "assigned_by", in.AssignedBy)
	return nil
}

// RemoveRoleAssignment deletes every assignment record for the (user, scope)
// pair. Exactly one of spaceID or organizationID must be set.
func (e *Engine) RemoveRoleAssignment(ctx context.Context, userID, spaceID, organizationID string) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	scope, err := AssignRoleInput{SpaceID: spaceID, OrganizationID: organizationID}.scope()
	if err != nil {
		return err
	}
	if err := e.assignments.RemoveAssignments(ctx, userID, scope); err != nil {
		return storageErr("remove assignments", err)
	}
	e.logger.Info("role assignment removed",
		"user_id", userID, "scope_kind", string(scope.Kind), "scope_id", scope.ID)
	return nil
}

// LoadUserRoleAssignment rebuilds the per-user aggregate from the store.
func (e *Engine) LoadUserRoleAssignment(ctx context.Context, userID string) (*UserRoleAssignment, error) {
	list, err := e.assignments.ListUserAssignments(ctx, userID)
	if err != nil {
		return nil, storageErr("list assignments", err)
	}
	return buildUserRoleAssignment(userID, list), nil
}

// GetUserSpaceRole resolves the user's role for one space. Absent, expired
// or dangling assignments yield (nil, nil); only port failures error.
func (e *Engine) GetUserSpaceRole(ctx context.Context, userID, spaceID string) (*RoleDefinition, error) {
	agg, err := e.LoadUserRoleAssignment(ctx, userID)
	if err != nil {
		return nil, err
	}
	a, ok := agg.SpaceRoles[spaceID]
	if !ok || a.Expired(e.now()) {
		return nil, nil
	}
	def, err := e.registry.GetRoleDefinition(ctx, a.RoleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return def, nil
}

// GetUserOrganizationRoles resolves every organization role the user holds
// in the given organization, silently dropping dangling role ids.
func (e *Engine) GetUserOrganizationRoles(ctx context.Context, userID, organizationID string) ([]*RoleDefinition, error) {
	agg, err := e.LoadUserRoleAssignment(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	out := make([]*RoleDefinition, 0, len(agg.OrganizationRoles))
	for _, a := range agg.OrganizationRoles {
		if a.Scope.ID != organizationID || a.Expired(now) {
			continue
		}
		def, err := e.registry.GetRoleDefinition(ctx, a.RoleID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Permission resolver
// ---------------------------------------------------------------------------

// CheckPermission resolves a (user, space, permission) triple to a decision.
// A nil assignment is loaded from the store; callers that already hold the
// aggregate pass it in to skip that round trip.
//
// This method never returns an error and never panics outward: any internal
// failure, including a lookup deadline expiring, collapses to a deny. A
// broken auth backend must not become an open-access backend.
func (e *Engine) CheckPermission(ctx context.Context, userID, spaceID string, perm Permission, assignment *UserRoleAssignment) (dec *Decision) {
	var traceID string
	if e.traceIDFunc != nil {
		traceID = e.traceIDFunc()
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("permission check panic", "user_id", userID, "space_id", spaceID, "panic", fmt.Sprint(r))
			dec = &Decision{Reason: ReasonDenied}
		}
		e.record(userID, spaceID, perm, dec, traceID)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	if e.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.checkTimeout)
		defer cancel()
	}

	if assignment == nil {
		loaded, err := e.LoadUserRoleAssignment(ctx, userID)
		if err != nil {
			e.logger.Error("assignment load failed", "user_id", userID, "trace_id", traceID, "error", err.Error())
			return &Decision{Reason: ReasonDenied}
		}
		assignment = loaded
	}
	return e.resolve(ctx, assignment, spaceID, perm)
}

// HasPermission is the no-I/O variant of CheckPermission: same precedence
// and OR semantics over an already-loaded aggregate, failing closed to
// false on missing data. Role lookups still hit the system table and cache.
func (e *Engine) HasPermission(ctx context.Context, assignment *UserRoleAssignment, spaceID string, perm Permission) (granted bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("permission check panic", "space_id", spaceID, "panic", fmt.Sprint(r))
			granted = false
		}
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	return e.resolve(ctx, assignment, spaceID, perm).HasPermission
}

// resolve implements the precedence walk: the space-scoped role for the
// exact space first, then every organization role in assignment order. The
// decision is a logical OR across all applicable roles; order only affects
// which role is reported as the grant source. Evaluation stops at the first
// match because permissions are additive — no role can revoke what another
// grants.
func (e *Engine) resolve(ctx context.Context, agg *UserRoleAssignment, spaceID string, perm Permission) *Decision {
	if agg.Empty() {
		return &Decision{Reason: ReasonNotAssigned}
	}
	now := e.now()

	if sa, ok := agg.SpaceRoles[spaceID]; ok && !sa.Expired(now) {
		if def := e.lookupRole(ctx, sa.RoleID); def != nil && def.Grants(perm) {
			return &Decision{HasPermission: true, Reason: ReasonGranted, Source: SourceSpace, RoleID: sa.RoleID}
		}
	}
	for _, oa := range agg.OrganizationRoles {
		if oa.Expired(now) {
			continue
		}
		if def := e.lookupRole(ctx, oa.RoleID); def != nil && def.Grants(perm) {
			return &Decision{HasPermission: true, Reason: ReasonGranted, Source: SourceOrganization, RoleID: oa.RoleID}
		}
	}
	return &Decision{Reason: ReasonDenied}
}

// lookupRole treats every failure the same way the resolver treats a
// dangling role id: no match. Unexpected errors are logged, not propagated.
func (e *Engine) lookupRole(ctx context.Context, roleID string) *RoleDefinition {
	def, err := e.registry.GetRoleDefinition(ctx, roleID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.logger.Error("role lookup failed", "role_id", roleID, "error", err.Error())
		}
		return nil
	}
	return def
}

// record emits the decision log line and queues the audit entry without
// blocking the caller.
func (e *Engine) record(userID, spaceID string, perm Permission, dec *Decision, traceID string) {
	if dec == nil {
		return
	}
	e.logger.Debug("permission decision",
		"user_id", userID, "space_id", spaceID, "permission", string(perm),
		"granted", dec.HasPermission, "reason", string(dec.Reason),
		"source", string(dec.Source), "role_id", dec.RoleID, "trace_id", traceID)

	if e.auditCh == nil {
		return
	}
	entry := AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  e.now(),
		TraceID:    traceID,
		UserID:     userID,
		SpaceID:    spaceID,
		Permission: perm,
		Granted:    dec.HasPermission,
		Reason:     dec.Reason,
		Source:     dec.Source,
		RoleID:     dec.RoleID,
	}
	select {
	case e.auditCh <- entry:
	default:
		// drop rather than block the check path
	}
}

func (e *Engine) auditLoop() {
	defer close(e.auditDone)
	bg := context.Background()
	for entry := range e.auditCh {
		if err := e.auditStore.LogDecision(bg, &entry); err != nil {
			e.logger.Error("audit write failed", "entry_id", entry.ID, "error", err.Error())
		}
	}
}

// GetAccessLog queries the audit trail. Returns ErrNotFound-free results;
// an engine without an audit store returns an empty slice.
func (e *Engine) GetAccessLog(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error) {
	if e.auditStore == nil {
		return []*AuditEntry{}, nil
	}
	return e.auditStore.GetAccessLog(ctx, filter)
}
