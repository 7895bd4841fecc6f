package caches

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const DefaultRequestCacheSize = 4096

// RequestCache remembers recently seen client request ids so that a retried
// intent is only queued once.
type RequestCache struct {
	seen *lru.Cache
}

func NewRequestCache(size int) (*RequestCache, error) {
	seen, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to initialize request cache")
	}
	return &RequestCache{seen: seen}, nil
}

// Seen records the request and reports whether it was already recorded.
// Requests without an id are never considered duplicates.
func (c *RequestCache) Seen(sessionID string, reqID string) bool {
	if reqID == "" {
		return false
	}
	key := fmt.Sprintf("%s|%s", sessionID, reqID)
	found, _ := c.seen.ContainsOrAdd(key, true)
	return found
}

// Forget drops every request of a session.
func (c *RequestCache) Forget(sessionID string) {
	prefix := sessionID + "|"
	for _, k := range c.seen.Keys() {
		if key, ok := k.(string); ok && len(key) > len(prefix) && key[:len(prefix)] == prefix {
			c.seen.Remove(k)
		}
	}
}

func (c *RequestCache) Len() int {
	return c.seen.Len()
}
