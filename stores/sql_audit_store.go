package stores

import (
	"context"

	"github.com/oarkflow/squealx"

	rbac "github.com/7Spade/Twilight-Hub-sub001"
)

// SQLAuditStore persists resolution audit entries.
type SQLAuditStore struct {
	db *squealx.DB
}

func NewSQLAuditStore(db *squealx.DB) *SQLAuditStore {
	return &SQLAuditStore{db: db}
}

func (s *SQLAuditStore) LogDecision(ctx context.Context, entry *rbac.AuditEntry) error {
	q := `INSERT INTO audit_log(id, ts, trace_id, user_id, space_id, permission, granted, reason, source, role_id)
	      VALUES(:id, :ts, :trace_id, :user_id, :space_id, :permission, :granted, :reason, :source, :role_id)`
	_, err := s.db.NamedExecContext(ctx, q, map[string]any{
		"id": entry.ID, "ts": entry.Timestamp, "trace_id": entry.TraceID,
		"user_id": entry.UserID, "space_id": entry.SpaceID,
		"permission": string(entry.Permission), "granted": boolToInt(entry.Granted),
		"reason": string(entry.Reason), "source": string(entry.Source), "role_id": entry.RoleID,
	})
	return err
}

func (s *SQLAuditStore) GetAccessLog(ctx context.Context, filter rbac.AuditFilter) ([]*rbac.AuditEntry, error) {
	q := `SELECT id, ts, trace_id, user_id, space_id, permission, granted, reason, source, role_id
	      FROM audit_log WHERE 1=1`
	args := map[string]any{}
	if filter.UserID != "" {
		q += ` AND user_id = :user_id`
		args["user_id"] = filter.UserID
	}
	if filter.SpaceID != "" {
		q += ` AND space_id = :space_id`
		args["space_id"] = filter.SpaceID
	}
	if filter.Permission != "" {
		q += ` AND permission = :permission`
		args["permission"] = string(filter.Permission)
	}
	if !filter.StartTime.IsZero() {
		q += ` AND ts >= :start_time`
		args["start_time"] = filter.StartTime
	}
	if !filter.EndTime.IsZero() {
		q += ` AND ts <= :end_time`
		args["end_time"] = filter.EndTime
	}
	q += ` ORDER BY ts`
	if filter.Limit > 0 {
		q += ` LIMIT :limit`
		args["limit"] = filter.Limit
	}

	rows, err := s.db.NamedQueryContext(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*rbac.AuditEntry, 0)
	for rows.Next() {
		var id, traceID, userID, spaceID, permission, reason, source, roleID string
		var granted int
		var tsRaw any
		if err := rows.Scan(&id, &tsRaw, &traceID, &userID, &spaceID, &permission, &granted, &reason, &source, &roleID); err != nil {
			return nil, err
		}
		out = append(out, &rbac.AuditEntry{
			ID: id, Timestamp: scanTime(tsRaw), TraceID: traceID,
			UserID: userID, SpaceID: spaceID,
			Permission: rbac.Permission(permission), Granted: granted == 1,
			Reason: rbac.Reason(reason), Source: rbac.Source(source), RoleID: roleID,
		})
	}
	return out, nil
}
