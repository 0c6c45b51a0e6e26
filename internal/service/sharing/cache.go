package sharing

import (
	"time"

	"foldershare/internal/domain/models"
	"foldershare/internal/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// tokenCache keeps recently resolved public links keyed by token.
// Entries are evicted explicitly when a link is revoked or replaced; the
// TTL bounds staleness for changes made by other instances.
type tokenCache struct {
	cache *expirable.LRU[string, models.PublicFolderShare]
}

func newTokenCache(size int, ttl time.Duration) *tokenCache {
	if size <= 0 {
		return &tokenCache{}
	}
	return &tokenCache{cache: expirable.NewLRU[string, models.PublicFolderShare](size, nil, ttl)}
}

func (c *tokenCache) get(token string) (models.PublicFolderShare, bool) {
	if c.cache == nil {
		return models.PublicFolderShare{}, false
	}
	share, ok := c.cache.Get(token)
	if ok {
		metrics.PublicLinkCache.WithLabelValues("hit").Inc()
	} else {
		metrics.PublicLinkCache.WithLabelValues("miss").Inc()
	}
	return share, ok
}

func (c *tokenCache) add(share models.PublicFolderShare) {
	if c.cache != nil {
		c.cache.Add(share.Token, share)
	}
}

func (c *tokenCache) remove(token string) {
	if c.cache != nil && token != "" {
		c.cache.Remove(token)
	}
}
