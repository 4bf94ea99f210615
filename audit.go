package rbac

import (
	"context"
	"time"
)

// AuditEntry records one permission resolution for later inspection. Entries
// are written asynchronously; the check path never blocks on the audit port.
type AuditEntry struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	TraceID    string     `json:"trace_id,omitempty"`
	UserID     string     `json:"user_id"`
	SpaceID    string     `json:"space_id"`
	Permission Permission `json:"permission"`
	Granted    bool       `json:"granted"`
	Reason     Reason     `json:"reason"`
	Source     Source     `json:"source,omitempty"`
	RoleID     string     `json:"role_id,omitempty"`
}

// AuditStore persists resolution audit entries.
type AuditStore interface {
	LogDecision(ctx context.Context, entry *AuditEntry) error
	GetAccessLog(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)
}

// AuditFilter narrows GetAccessLog results. Zero fields match everything.
type AuditFilter struct {
	UserID     string
	SpaceID    string
	Permission Permission
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
}

// Matches reports whether an entry passes the filter (time bounds inclusive
// of anything strictly inside the window).
func (f AuditFilter) Matches(e *AuditEntry) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.SpaceID != "" && e.SpaceID != f.SpaceID {
		return false
	}
	if f.Permission != "" && e.Permission != f.Permission {
		return false
	}
	if !f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && e.Timestamp.After(f.EndTime) {
		return false
	}
	return true
}
