package stores

import (
	"context"
	"sync"

	rbac "github.com/7Spade/Twilight-Hub-sub001"
)

// MemoryRoleStore keeps custom roles in a map. Used by tests and by
// deployments that seed everything from config at startup.
type MemoryRoleStore struct {
	mu    sync.RWMutex
	roles map[string]*rbac.RoleDefinition
}

func NewMemoryRoleStore() *MemoryRoleStore {
	return &MemoryRoleStore{roles: make(map[string]*rbac.RoleDefinition)}
}

func (s *MemoryRoleStore) CreateRole(ctx context.Context, r *rbac.RoleDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID] = r.Clone()
	return nil
}

func (s *MemoryRoleStore) UpdateRole(ctx context.Context, r *rbac.RoleDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[r.ID] = r.Clone()
	return nil
}

func (s *MemoryRoleStore) DeleteRole(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, id)
	return nil
}

func (s *MemoryRoleStore) GetRole(ctx context.Context, id string) (*rbac.RoleDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

func (s *MemoryRoleStore) ListRoles(ctx context.Context) ([]*rbac.RoleDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*rbac.RoleDefinition, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r.Clone())
	}
	return out, nil
}

type assignmentKey struct {
	userID  string
	kind    rbac.ScopeKind
	scopeID string
}

// MemoryAssignmentStore keeps assignments keyed by (user, scope kind, scope
// id), which is what gives the store its upsert semantics.
type MemoryAssignmentStore struct {
	mu      sync.RWMutex
	records map[assignmentKey]*rbac.RoleAssignment
}

func NewMemoryAssignmentStore() *MemoryAssignmentStore {
	return &MemoryAssignmentStore{records: make(map[assignmentKey]*rbac.RoleAssignment)}
}

func (s *MemoryAssignmentStore) UpsertAssignment(ctx context.Context, a *rbac.RoleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := assignmentKey{userID: a.UserID, kind: a.Scope.Kind, scopeID: a.Scope.ID}
	s.records[key] = a.Clone()
	return nil
}

func (s *MemoryAssignmentStore) RemoveAssignments(ctx context.Context, userID string, scope rbac.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, assignmentKey{userID: userID, kind: scope.Kind, scopeID: scope.ID})
	return nil
}

func (s *MemoryAssignmentStore) ListUserAssignments(ctx context.Context, userID string) ([]*rbac.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*rbac.RoleAssignment, 0)
	for key, a := range s.records {
		if key.userID == userID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// MemoryAuditStore appends audit entries to a slice.
type MemoryAuditStore struct {
	mu      sync.RWMutex
	entries []*rbac.AuditEntry
}

func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{entries: make([]*rbac.AuditEntry, 0)}
}

func (s *MemoryAuditStore) LogDecision(ctx context.Context, entry *rbac.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *entry
	s.entries = append(s.entries, &dup)
	return nil
}

func (s *MemoryAuditStore) GetAccessLog(ctx context.Context, filter rbac.AuditFilter) ([]*rbac.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*rbac.AuditEntry, 0)
	for _, e := range s.entries {
		if !filter.Matches(e) {
			continue
		}
		dup := *e
		out = append(out, &dup)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}
