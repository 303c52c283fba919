// Package cache provides a Redis read-through cache for owner history
// queries. Audit timelines are hot on compliance dashboards but change
// only on append, so a short TTL plus invalidate-on-append keeps reads
// off the ledger without ever serving a stale chain to the verifier
// (verification always reads the store directly).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fsuels/auditledger/internal/audit"
)

type HistoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewHistoryCache(client *redis.Client, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &HistoryCache{client: client, ttl: ttl}
}

func key(ownerID string, limit int) string {
	return fmt.Sprintf("auditledger:history:%s:%d", ownerID, limit)
}

// Get returns the cached history page, if present.
func (c *HistoryCache) Get(ctx context.Context, ownerID string, limit int) ([]audit.Event, bool) {
	raw, err := c.client.Get(ctx, key(ownerID, limit)).Bytes()
	if err != nil {
		return nil, false
	}
	var events []audit.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, false
	}
	return events, true
}

// Set stores a history page. Failures are swallowed: the cache is an
// optimization, never a source of truth.
func (c *HistoryCache) Set(ctx context.Context, ownerID string, limit int, events []audit.Event) {
	raw, err := json.Marshal(events)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key(ownerID, limit), raw, c.ttl).Err()
}

// Invalidate drops all cached pages for an owner after an append.
func (c *HistoryCache) Invalidate(ctx context.Context, ownerID string) {
	pattern := fmt.Sprintf("auditledger:history:%s:*", ownerID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		_ = c.client.Del(ctx, iter.Val()).Err()
	}
}
