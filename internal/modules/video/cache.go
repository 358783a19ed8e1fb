package video

import (
	"time"

	"pulsegen/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// streamCache remembers the immutable part of a video record (owner and
// file path) so range requests from a player do not hit the database for
// every chunk.
type streamCache struct {
	lru *expirable.LRU[string, streamEntry]
}

type streamEntry struct {
	OwnerID  int64
	FilePath string
}

func newStreamCache(size int, ttl time.Duration) *streamCache {
	if size <= 0 {
		return nil
	}
	return &streamCache{lru: expirable.NewLRU[string, streamEntry](size, nil, ttl)}
}

func (c *streamCache) get(id string) (streamEntry, bool) {
	if c == nil {
		return streamEntry{}, false
	}
	return c.lru.Get(id)
}

func (c *streamCache) put(v *domain.Video) {
	if c == nil {
		return
	}
	c.lru.Add(v.ID, streamEntry{OwnerID: v.OwnerID, FilePath: v.FilePath})
}

func (c *streamCache) remove(id string) {
	if c == nil {
		return
	}
	c.lru.Remove(id)
}
