package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"epharma/ent"
)

// CachedCatalog decorates a CatalogStore with a Redis read cache for
// single-product lookups. Cache failures fall through to the inner
// store; the cache is never load-bearing.
type CachedCatalog struct {
	CatalogStore

	rdb *redis.Client
	ttl time.Duration
}

func NewCachedCatalog(inner CatalogStore, rdb *redis.Client) *CachedCatalog {
	return &CachedCatalog{
		CatalogStore: inner,
		rdb:          rdb,
		ttl:          5 * time.Minute,
	}
}

func productKey(id int64) string     { return fmt.Sprintf("product:%d", id) }
func productSlugKey(s string) string { return "product:slug:" + s }

func (c *CachedCatalog) Product(ctx context.Context, id int64) (*ent.Product, error) {
	if p, ok := c.cached(ctx, productKey(id)); ok {
		return p, nil
	}

	p, err := c.CatalogStore.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache(ctx, productKey(id), p)

	return p, nil
}

func (c *CachedCatalog) ProductBySlug(ctx context.Context, slug string) (*ent.Product, error) {
	if p, ok := c.cached(ctx, productSlugKey(slug)); ok {
		return p, nil
	}

	p, err := c.CatalogStore.ProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.cache(ctx, productSlugKey(slug), p)

	return p, nil
}

func (c *CachedCatalog) UpdateProduct(ctx context.Context, p *ent.Product) error {
	// A slug change would otherwise leave the old slug key serving the
	// stale product until the TTL expires.
	oldSlug := c.currentSlug(ctx, p.ID)

	err := c.CatalogStore.UpdateProduct(ctx, p)
	if err != nil {
		return err
	}

	c.invalidate(ctx, p.ID, p.Slug)
	if oldSlug != "" && oldSlug != p.Slug {
		c.invalidate(ctx, p.ID, oldSlug)
	}

	return nil
}

func (c *CachedCatalog) DeactivateProduct(ctx context.Context, id int64) error {
	slug := c.currentSlug(ctx, id)

	err := c.CatalogStore.DeactivateProduct(ctx, id)
	if err != nil {
		return err
	}
	c.invalidate(ctx, id, slug)

	return nil
}

// InvalidateProducts drops the cached entries for the given products.
// Mutations that happen outside the catalog store, like the stock
// decrement at checkout, call it through the ProductInvalidator port.
func (c *CachedCatalog) InvalidateProducts(ctx context.Context, ids ...int64) {
	for _, id := range ids {
		c.invalidate(ctx, id, c.currentSlug(ctx, id))
	}
}

func (c *CachedCatalog) currentSlug(ctx context.Context, id int64) string {
	p, err := c.CatalogStore.Product(ctx, id)
	if err != nil {
		return ""
	}
	return p.Slug
}

func (c *CachedCatalog) cached(ctx context.Context, key string) (*ent.Product, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logrus.WithError(err).Warn("product cache read failed")
		}
		return nil, false
	}

	var p ent.Product
	if err := json.Unmarshal(data, &p); err != nil {
		logrus.WithError(err).Warn("product cache entry corrupt")
		return nil, false
	}

	return &p, true
}

func (c *CachedCatalog) cache(ctx context.Context, key string, p *ent.Product) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logrus.WithError(err).Warn("product cache write failed")
	}
}

func (c *CachedCatalog) invalidate(ctx context.Context, id int64, slug string) {
	keys := []string{productKey(id)}
	if slug != "" {
		keys = append(keys, productSlugKey(slug))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logrus.WithError(err).Warn("product cache invalidation failed")
	}
}
