package imaging

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of thumbnails kept in memory.
const DefaultCacheSize = 256

// ThumbnailCache keeps recently served thumbnails, evicting the least
// recently used entry when the cap is reached. It is safe for concurrent
// use.
type ThumbnailCache struct {
	entries *lru.Cache[string, *Photo]
}

// NewThumbnailCache creates a cache holding at most size thumbnails.
func NewThumbnailCache(size int) (*ThumbnailCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, *Photo](size)
	if err != nil {
		return nil, fmt.Errorf("creating thumbnail cache: %w", err)
	}
	return &ThumbnailCache{entries: entries}, nil
}

// Get returns the cached thumbnail for key, generating and caching it from
// the full-size photo on a miss.
func (c *ThumbnailCache) Get(key string, photo []byte) (*Photo, error) {
	if thumb, ok := c.entries.Get(key); ok {
		return thumb, nil
	}

	thumb, err := Thumbnail(photo)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, thumb)
	return thumb, nil
}

// Invalidate drops the cached thumbnail for key, e.g. after a photo
// changes.
func (c *ThumbnailCache) Invalidate(key string) {
	c.entries.Remove(key)
}

// Len returns the number of cached thumbnails.
func (c *ThumbnailCache) Len() int {
	return c.entries.Len()
}
