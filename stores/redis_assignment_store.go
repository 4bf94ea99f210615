package stores

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	rbac "github.com/7Spade/Twilight-Hub-sub001"
)

// RedisAssignmentStore keeps assignments in two hashes per user
// (sparoles:{userID} and orgroles:{userID}), one field per scope id. Hash
// fields give the same upsert-by-(user, scope) semantics as the SQL primary
// keys. Assignments are the hot, re-read record set, which is why they get
// the redis treatment while roles stay in SQL behind the registry cache.
type RedisAssignmentStore struct {
	client *redis.Client
}

func NewRedisAssignmentStore(client *redis.Client) *RedisAssignmentStore {
	return &RedisAssignmentStore{client: client}
}

func (r *RedisAssignmentStore) key(kind rbac.ScopeKind, userID string) string {
	if kind == rbac.ScopeSpace {
		return fmt.Sprintf("sparoles:%s", userID)
	}
	return fmt.Sprintf("orgroles:%s", userID)
}

func (r *RedisAssignmentStore) UpsertAssignment(ctx context.Context, a *rbac.RoleAssignment) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.key(a.Scope.Kind, a.UserID), a.Scope.ID, payload).Err()
}

func (r *RedisAssignmentStore) RemoveAssignments(ctx context.Context, userID string, scope rbac.Scope) error {
	return r.client.HDel(ctx, r.key(scope.Kind, userID), scope.ID).Err()
}

func (r *RedisAssignmentStore) ListUserAssignments(ctx context.Context, userID string) ([]*rbac.RoleAssignment, error) {
	out := make([]*rbac.RoleAssignment, 0)
	for _, kind := range []rbac.ScopeKind{rbac.ScopeSpace, rbac.ScopeOrganization} {
		fields, err := r.client.HGetAll(ctx, r.key(kind, userID)).Result()
		if err != nil {
			return nil, err
		}
		for _, raw := range fields {
			a := &rbac.RoleAssignment{}
			if err := json.Unmarshal([]byte(raw), a); err != nil {
				return nil, err
			}
			out = append(out, a)
		}
	}
	return out, nil
}
