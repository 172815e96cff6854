package application

import (
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/metrics"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// CachedImage is an image body ready to be served.
type CachedImage struct {
	Data        []byte
	ContentType string
}

// PhotoCache keeps recently served image bodies in memory, keyed by photo id and
// rendering width. Width zero is the original payload.
type PhotoCache struct {
	store   *cache.Cache
	metrics *metrics.Metrics
}

// NewPhotoCache creates a cache whose entries expire after ttl.
func NewPhotoCache(ttl time.Duration, m *metrics.Metrics) *PhotoCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PhotoCache{
		store:   cache.New(ttl, 2*ttl),
		metrics: m,
	}
}

func cacheKey(id uuid.UUID, width int) string {
	return fmt.Sprintf("%s/%d", id, width)
}

func (c *PhotoCache) Get(id uuid.UUID, width int) (*CachedImage, bool) {
	v, ok := c.store.Get(cacheKey(id, width))
	c.metrics.ImageCache(ok)
	if !ok {
		return nil, false
	}
	return v.(*CachedImage), true
}

func (c *PhotoCache) Set(id uuid.UUID, width int, img *CachedImage) {
	c.store.SetDefault(cacheKey(id, width), img)
}

// Invalidate drops every rendering of the given photos.
func (c *PhotoCache) Invalidate(ids ...uuid.UUID) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		gone[id.String()] = struct{}{}
	}
	for key := range c.store.Items() {
		if len(key) < 36 {
			continue
		}
		if _, ok := gone[key[:36]]; ok {
			c.store.Delete(key)
		}
	}
}

// Len returns the number of cached renderings, expired ones included until cleanup.
func (c *PhotoCache) Len() int {
	return c.store.ItemCount()
}
