package rbac

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// RoleCache sits in front of the custom-role store only. The registry
// invalidates entries synchronously on every mutation (write-through
// invalidation); the TTL is a backstop against writes from other instances,
// never the primary invalidation path. System roles bypass the cache since
// they are immutable.
type RoleCache interface {
	Get(roleID string) (*RoleDefinition, bool)
	Set(roleID string, role *RoleDefinition)
	Del(roleID string)
	Clear()
}

// RistrettoRoleCache implements RoleCache on dgraph-io/ristretto.
type RistrettoRoleCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// RistrettoCacheConfig sizes the role cache. Zero fields fall back to
// defaults suitable for a few thousand roles.
type RistrettoCacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	TTL         time.Duration
}

func NewRistrettoRoleCache(cfg RistrettoCacheConfig) (*RistrettoRoleCache, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 10_000
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 1_000
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = 64
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoRoleCache{cache: c, ttl: cfg.TTL}, nil
}

func (c *RistrettoRoleCache) Get(roleID string) (*RoleDefinition, bool) {
	v, ok := c.cache.Get(roleID)
	if !ok {
		return nil, false
	}
	role, ok := v.(*RoleDefinition)
	if !ok {
		return nil, false
	}
	return role, true
}

func (c *RistrettoRoleCache) Set(roleID string, role *RoleDefinition) {
	c.cache.SetWithTTL(roleID, role, 1, c.ttl)
}

func (c *RistrettoRoleCache) Del(roleID string) {
	c.cache.Del(roleID)
}

func (c *RistrettoRoleCache) Clear() {
	c.cache.Clear()
}

// Wait blocks until buffered writes are visible. Tests use it; production
// code tolerates the brief set latency.
func (c *RistrettoRoleCache) Wait() {
	c.cache.Wait()
}

func (c *RistrettoRoleCache) Close() {
	c.cache.Close()
}
