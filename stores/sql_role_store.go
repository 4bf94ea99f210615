package stores

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oarkflow/squealx"

	rbac "github.com/7Spade/Twilight-Hub-sub001"
)

// SQLRoleStore persists custom roles in SQL (squealx). The permission set is
// stored as a JSON array; system roles never reach this table.
type SQLRoleStore struct {
	db *squealx.DB
}

func NewSQLRoleStore(db *squealx.DB) *SQLRoleStore {
	return &SQLRoleStore{db: db}
}

func (s *SQLRoleStore) CreateRole(ctx context.Context, r *rbac.RoleDefinition) error {
	perms, err := json.Marshal(r.Permissions)
	if err != nil {
		return err
	}
	q := `INSERT INTO roles(id, name, description, permissions_json, created_at, updated_at)
	      VALUES(:id, :name, :description, :permissions_json, :created_at, :updated_at)`
	_, err = s.db.NamedExecContext(ctx, q, map[string]any{
		"id": r.ID, "name": r.Name, "description": r.Description,
		"permissions_json": string(perms), "created_at": r.CreatedAt, "updated_at": r.UpdatedAt,
	})
	return err
}

func (s *SQLRoleStore) UpdateRole(ctx context.Context, r *rbac.RoleDefinition) error {
	perms, err := json.Marshal(r.Permissions)
	if err != nil {
		return err
	}
	q := `UPDATE roles SET name=:name, description=:description,
	      permissions_json=:permissions_json, updated_at=:updated_at WHERE id=:id`
	_, err = s.db.NamedExecContext(ctx, q, map[string]any{
		"id": r.ID, "name": r.Name, "description": r.Description,
		"permissions_json": string(perms), "updated_at": r.UpdatedAt,
	})
	return err
}

func (s *SQLRoleStore) DeleteRole(ctx context.Context, id string) error {
	q := `DELETE FROM roles WHERE id = :id`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{"id": id})
	return err
}

func (s *SQLRoleStore) GetRole(ctx context.Context, id string) (*rbac.RoleDefinition, error) {
	q := `SELECT id, name, description, permissions_json, created_at, updated_at
	      FROM roles WHERE id = :id`
	rows, err := s.db.NamedQueryContext(ctx, q, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, nil
	}
	return scanRole(rows)
}

func (s *SQLRoleStore) ListRoles(ctx context.Context) ([]*rbac.RoleDefinition, error) {
	q := `SELECT id, name, description, permissions_json, created_at, updated_at
	      FROM roles ORDER BY created_at DESC`
	rows, err := s.db.NamedQueryContext(ctx, q, map[string]any{})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*rbac.RoleDefinition, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, nil
}

type roleRows interface {
	Scan(dest ...any) error
}

func scanRole(rows roleRows) (*rbac.RoleDefinition, error) {
	var id, name, description, permsJSON string
	var createdRaw, updatedRaw any
	if err := rows.Scan(&id, &name, &description, &permsJSON, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	role := &rbac.RoleDefinition{ID: id, Name: name, Description: description}
	var perms []rbac.Permission
	if err := json.Unmarshal([]byte(permsJSON), &perms); err != nil {
		return nil, err
	}
	role.Permissions = perms
	role.CreatedAt = scanTime(createdRaw)
	role.UpdatedAt = scanTime(updatedRaw)
	return role, nil
}

// scanTime tolerates the driver handing back time.Time, string or []byte.
func scanTime(raw any) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		if t, err := parseFlexibleTime(v); err == nil {
			return t
		}
	case []byte:
		if t, err := parseFlexibleTime(string(v)); err == nil {
			return t
		}
	}
	return time.Time{}
}
