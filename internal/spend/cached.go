package spend

import (
	"context"
	"fmt"
	"time"

	"finhealth/internal/cache"
)

// Cached memoises a Source's figures in an LRU with TTL. Categories lists
// are cached under their own keys.
type Cached struct {
	next    Source
	amounts *cache.LRUCache[float64]
	lists   *cache.LRUCache[[]string]
}

var _ Source = (*Cached)(nil)

func NewCached(next Source, maxSize int, ttl time.Duration) *Cached {
	return &Cached{
		next:    next,
		amounts: cache.NewLRUCache[float64](maxSize, ttl),
		lists:   cache.NewLRUCache[[]string](64, ttl),
	}
}

// Register hands the caches to m for periodic expiry.
func (c *Cached) Register(m *cache.Manager) {
	m.Register(c.amounts)
	m.Register(c.lists)
}

// Invalidate drops every cached figure, forcing the next reads through.
func (c *Cached) Invalidate() {
	c.amounts.Clear()
	c.lists.Clear()
}

func (c *Cached) SpentForCategory(ctx context.Context, category string, period Period) (float64, error) {
	key := fmt.Sprintf("spent:%s:%s", period, normalize(category))
	if v, ok := c.amounts.Get(key); ok {
		return v, nil
	}
	v, err := c.next.SpentForCategory(ctx, category, period)
	if err != nil {
		return 0, err
	}
	c.amounts.Set(key, v)
	return v, nil
}

func (c *Cached) SpentLastPeriod(ctx context.Context, category string, period Period) (float64, error) {
	key := fmt.Sprintf("last:%s:%s", period, normalize(category))
	if v, ok := c.amounts.Get(key); ok {
		return v, nil
	}
	v, err := c.next.SpentLastPeriod(ctx, category, period)
	if err != nil {
		return 0, err
	}
	c.amounts.Set(key, v)
	return v, nil
}

func (c *Cached) Categories(ctx context.Context, period Period) ([]string, error) {
	key := "categories:" + period.String()
	if v, ok := c.lists.Get(key); ok {
		return append([]string(nil), v...), nil
	}
	v, err := c.next.Categories(ctx, period)
	if err != nil {
		return nil, err
	}
	c.lists.Set(key, append([]string(nil), v...))
	return v, nil
}
