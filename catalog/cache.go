package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/liftcheck"
	"github.com/patrickmn/go-cache"
)

// Compile-time interface check
var _ liftcheck.TemplateCatalog = (*Cache)(nil)

// Cache keeps templates from a slower catalog (usually PostgreSQL) in memory.
// Pinned versions are immutable and never expire; "latest" lookups and the
// template list expire after the configured TTL so new versions are picked up.
// Errors are never cached.
type Cache struct {
	next  liftcheck.TemplateCatalog
	cache *cache.Cache
}

// NewCache wraps next with a cache whose latest-version entries live for ttl.
func NewCache(next liftcheck.TemplateCatalog, ttl time.Duration) *Cache {
	return &Cache{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *Cache) FindTemplate(ctx context.Context, id string) (*liftcheck.Template, error) {
	key := "latest:" + id
	if cached, found := c.cache.Get(key); found {
		return cached.(*liftcheck.Template), nil
	}

	t, err := c.next.FindTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, t, cache.DefaultExpiration)
	c.cache.Set(versionKey(t.ID, t.Version), t, cache.NoExpiration)
	return t, nil
}

func (c *Cache) FindTemplateVersion(ctx context.Context, id string, version int) (*liftcheck.Template, error) {
	key := versionKey(id, version)
	if cached, found := c.cache.Get(key); found {
		return cached.(*liftcheck.Template), nil
	}

	t, err := c.next.FindTemplateVersion(ctx, id, version)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, t, cache.NoExpiration)
	return t, nil
}

func (c *Cache) FindTemplates(ctx context.Context) ([]*liftcheck.Template, error) {
	if cached, found := c.cache.Get("all"); found {
		return cached.([]*liftcheck.Template), nil
	}

	templates, err := c.next.FindTemplates(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set("all", templates, cache.DefaultExpiration)
	return templates, nil
}

// Flush drops every cached entry.
func (c *Cache) Flush() {
	c.cache.Flush()
}

func versionKey(id string, version int) string {
	return fmt.Sprintf("version:%s:%d", id, version)
}
