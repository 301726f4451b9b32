package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campuskart/campuskart/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	listingKeyPrefix  = "listing:"
	negCacheKeySuffix = ":neg"

	// DefaultListingTTL is the TTL for cached listing detail.
	DefaultListingTTL = 5 * time.Minute

	// NegativeCacheTTL is the TTL for not-found markers.
	NegativeCacheTTL = 30 * time.Second
)

// Common cache errors.
var (
	ErrCacheMiss      = errors.New("cache miss")
	ErrCachedNotFound = errors.New("listing cached as not found")
)

// ListingCache is a read-through cache for public listing detail.
type ListingCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewListingCache creates a listing cache. A zero ttl uses DefaultListingTTL.
func NewListingCache(c *Cache, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	return &ListingCache{cache: c, ttl: ttl}
}

// Get returns a cached listing, ErrCachedNotFound for a negative entry, or ErrCacheMiss.
func (lc *ListingCache) Get(ctx context.Context, id string) (*model.Listing, error) {
	key := listingKeyPrefix + id

	pipe := lc.cache.client.Pipeline()
	detail := pipe.Get(ctx, key)
	neg := pipe.Exists(ctx, key+negCacheKeySuffix)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis pipeline failed: %w", err)
	}

	if neg.Val() > 0 {
		return nil, ErrCachedNotFound
	}

	data, err := detail.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var listing model.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, ErrCacheMiss
	}
	return &listing, nil
}

// Set stores a listing and clears any negative entry.
func (lc *ListingCache) Set(ctx context.Context, listing *model.Listing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("marshal listing: %w", err)
	}

	key := listingKeyPrefix + listing.ID
	pipe := lc.cache.client.TxPipeline()
	pipe.Set(ctx, key, data, lc.ttl)
	pipe.Del(ctx, key+negCacheKeySuffix)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set listing failed: %w", err)
	}
	return nil
}

// SetNotFound records a short-lived negative entry for an unknown ID.
func (lc *ListingCache) SetNotFound(ctx context.Context, id string) error {
	return lc.cache.client.Set(ctx, listingKeyPrefix+id+negCacheKeySuffix, "1", NegativeCacheTTL).Err()
}

// Invalidate drops cached state for a listing after it changes.
func (lc *ListingCache) Invalidate(ctx context.Context, id string) error {
	key := listingKeyPrefix + id
	return lc.cache.client.Del(ctx, key, key+negCacheKeySuffix).Err()
}
