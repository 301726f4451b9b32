// Package cleanup removes listing images that were uploaded but never
// attached to an admitted listing.
package cleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuskart/campuskart/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	// StreamKey is the Redis stream of images awaiting deletion.
	StreamKey = "stream:orphan_images"

	// DeadLetterStreamKey holds images the worker gave up on.
	DeadLetterStreamKey = "stream:orphan_images:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// DeleteTimeout bounds the synchronous delete attempt.
	DeleteTimeout = 5 * time.Second
)

// Orphan is an uploaded object with no listing referencing it.
type Orphan struct {
	Key       string `json:"k"`
	ListingID string `json:"lid,omitempty"`
	Reason    string `json:"r,omitempty"`
	QueuedAt  int64  `json:"t"` // Unix milliseconds
}

// Deleter removes stored objects.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Cleaner deletes orphaned images immediately and queues the ones it cannot.
type Cleaner struct {
	deleter Deleter
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewCleaner creates a Cleaner.
func NewCleaner(deleter Deleter, client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Cleaner {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Cleaner{
		deleter: deleter,
		redis:   client,
		logger:  logger.With("component", "cleanup"),
		metrics: recorder,
	}
}

// Discard deletes the object behind o. When that fails the object is queued
// for the Worker. Discard never fails the caller; it runs on a detached
// context so a cancelled request still cleans up.
func (c *Cleaner) Discard(ctx context.Context, o Orphan) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DeleteTimeout)
	defer cancel()

	err := c.deleter.Delete(ctx, o.Key)
	if err == nil {
		c.metrics.IncOrphanImage("deleted")
		return
	}

	c.logger.Warn("orphan delete failed, queueing",
		slog.String("key", o.Key),
		slog.String("listing_id", o.ListingID),
		slog.String("error", err.Error()),
	)

	if o.QueuedAt == 0 {
		o.QueuedAt = time.Now().UnixMilli()
	}
	if _, err := c.Publish(ctx, o); err != nil {
		c.logger.Error("orphan image dropped",
			slog.String("key", o.Key),
			slog.String("error", err.Error()),
		)
		c.metrics.IncOrphanImage("dropped")
		return
	}
	c.metrics.IncOrphanImage("queued")
}

// Publish adds an orphan to the stream.
func (c *Cleaner) Publish(ctx context.Context, o Orphan) (string, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("marshal orphan: %w", err)
	}

	id, err := c.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}
