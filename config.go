package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the declarative seed format for roles and assignments, used by
// cmd/rbac-config and by deployments that bootstrap from a file.
type Config struct {
	Version     uint16           `json:"version" yaml:"version"`
	Roles       []RoleSeed       `json:"roles" yaml:"roles"`
	Assignments []AssignmentSeed `json:"assignments" yaml:"assignments"`
	Engine      EngineConfig     `json:"engine" yaml:"engine"`
}

// RoleSeed declares a custom role. Seeds never create system roles; a seed
// whose name collides with one fails validation at apply time.
type RoleSeed struct {
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

// AssignmentSeed declares one role assignment. Exactly one of SpaceID or
// OrganizationID must be set.
type AssignmentSeed struct {
	UserID         string    `json:"user_id" yaml:"user_id"`
	SpaceID        string    `json:"space_id,omitempty" yaml:"space_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty" yaml:"organization_id,omitempty"`
	RoleID         string    `json:"role_id" yaml:"role_id"`
	AssignedBy     string    `json:"assigned_by,omitempty" yaml:"assigned_by,omitempty"`
	ExpiresAt      time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// EngineConfig carries tuning knobs applied at engine construction.
type EngineConfig struct {
	RoleCacheNumCounters int64 `json:"role_cache_num_counters" yaml:"role_cache_num_counters"`
	RoleCacheMaxCost     int64 `json:"role_cache_max_cost" yaml:"role_cache_max_cost"`
	RoleCacheBufferItems int64 `json:"role_cache_buffer_items" yaml:"role_cache_buffer_items"`
	RoleCacheTTLMs       int64 `json:"role_cache_ttl_ms" yaml:"role_cache_ttl_ms"`
	AuditBufferSize      int   `json:"audit_buffer_size" yaml:"audit_buffer_size"`
	ResolutionTimeoutMs  int64 `json:"resolution_timeout_ms" yaml:"resolution_timeout_ms"`
}

// CacheConfig converts the knobs into a ristretto cache configuration.
func (c EngineConfig) CacheConfig() RistrettoCacheConfig {
	return RistrettoCacheConfig{
		NumCounters: c.RoleCacheNumCounters,
		MaxCost:     c.RoleCacheMaxCost,
		BufferItems: c.RoleCacheBufferItems,
		TTL:         time.Duration(c.RoleCacheTTLMs) * time.Millisecond,
	}
}

// Options translates the knobs into engine options.
func (c EngineConfig) Options() []EngineOption {
	opts := make([]EngineOption, 0, 2)
	if c.AuditBufferSize > 0 {
		opts = append(opts, WithAuditBuffer(c.AuditBufferSize))
	}
	if c.ResolutionTimeoutMs > 0 {
		opts = append(opts, WithResolutionTimeout(time.Duration(c.ResolutionTimeoutMs)*time.Millisecond))
	}
	return opts
}

// ConfigLoader parses seed files.
type ConfigLoader struct{}

func NewConfigLoader() *ConfigLoader { return &ConfigLoader{} }

func (l *ConfigLoader) LoadYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) LoadJSON(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) ToYAML() ([]byte, error) { return yaml.Marshal(c) }

func (c *Config) ToJSON() ([]byte, error) { return json.MarshalIndent(c, "", "  ") }

// Validate checks every seed against the catalog and shape rules without
// touching any store.
func (c *Config) Validate() error {
	for i, r := range c.Roles {
		if r.Name == "" {
			return fmt.Errorf("role seed %d: %w", i, &ValidationError{Field: "name", Reason: "must not be empty"})
		}
		for _, p := range r.Permissions {
			if _, err := ParsePermission(p); err != nil {
				return fmt.Errorf("role seed %q: %w", r.Name, err)
			}
		}
	}
	for i, a := range c.Assignments {
		if a.UserID == "" || a.RoleID == "" {
			return fmt.Errorf("assignment seed %d: %w", i, &ValidationError{Field: "assignment", Reason: "user_id and role_id are required"})
		}
		if _, err := (AssignRoleInput{SpaceID: a.SpaceID, OrganizationID: a.OrganizationID}).scope(); err != nil {
			return fmt.Errorf("assignment seed %d: %w", i, err)
		}
	}
	return nil
}

// ApplyConfig seeds roles then assignments. A seed whose ID matches an
// existing custom role is patched in place; otherwise the role is created
// and the generated id replaces the seed id in any assignment seed that
// referenced it.
func (e *Engine) ApplyConfig(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	idMap := make(map[string]string, len(cfg.Roles))
	for _, seed := range cfg.Roles {
		perms := make([]Permission, 0, len(seed.Permissions))
		for _, p := range seed.Permissions {
			perms = append(perms, Permission(p))
		}

		if seed.ID != "" {
			if _, err := e.registry.GetRoleDefinition(ctx, seed.ID); err == nil {
				patched, err := e.registry.UpdateRole(ctx, seed.ID, RolePatch{
					Name:        &seed.Name,
					Description: &seed.Description,
					Permissions: perms,
				})
				if err != nil {
					return fmt.Errorf("update role %s: %w", seed.ID, err)
				}
				idMap[seed.ID] = patched.ID
				continue
			}
		}
		created, err := e.registry.CreateRole(ctx, CreateRoleInput{
			Name:        seed.Name,
			Description: seed.Description,
			Permissions: perms,
		})
		if err != nil {
			return fmt.Errorf("create role %q: %w", seed.Name, err)
		}
		if seed.ID != "" {
			idMap[seed.ID] = created.ID
		}
	}

	for _, seed := range cfg.Assignments {
		roleID := seed.RoleID
		if mapped, ok := idMap[roleID]; ok {
			roleID = mapped
		}
		err := e.AssignRole(ctx, AssignRoleInput{
			UserID:         seed.UserID,
			SpaceID:        seed.SpaceID,
			OrganizationID: seed.OrganizationID,
			RoleID:         roleID,
			AssignedBy:     seed.AssignedBy,
			ExpiresAt:      seed.ExpiresAt,
		})
		if err != nil {
			return fmt.Errorf("assign role %s to %s: %w", roleID, seed.UserID, err)
		}
	}
	return nil
}
