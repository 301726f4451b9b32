package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/campuskart/campuskart/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "orphan_cleaners"

	DefaultBatchSize       = 50
	DefaultBlockTimeout    = 5 * time.Second
	DefaultClaimInterval   = 30 * time.Second
	DefaultClaimIdle       = time.Minute
	DefaultMaxDeliveries   = 5
	DefaultMetricsInterval = 15 * time.Second
)

// Worker retries queued orphan deletions. Failed deletions stay pending and
// are reclaimed after claimIdle; a message delivered more than maxDeliveries
// times moves to the dead-letter stream.
type Worker struct {
	redis           *redis.Client
	deleter         Deleter
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	claimInterval   time.Duration
	claimIdle       time.Duration
	maxDeliveries   int64
	metricsInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewWorker creates a cleanup worker.
func NewWorker(client *redis.Client, deleter Deleter, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		deleter:         deleter,
		logger:          logger.With("component", "cleanup.worker", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		maxDeliveries:   DefaultMaxDeliveries,
		metricsInterval: DefaultMetricsInterval,
		claimStartID:    "0-0",
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetClaimIdle overrides how long a failed deletion waits before its retry.
func (w *Worker) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		w.claimIdle = idle
	}
}

// SetClaimInterval overrides how often pending messages are scanned.
func (w *Worker) SetClaimInterval(interval time.Duration) {
	if interval > 0 {
		w.claimInterval = interval
	}
}

// SetMaxDeliveries overrides the delivery limit before dead-lettering.
func (w *Worker) SetMaxDeliveries(n int) {
	if n > 0 {
		w.maxDeliveries = int64(n)
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("cleanup worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopping")
			return nil
		default:
		}

		if err := w.processOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			w.logger.Error("process error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// Shutdown stops the worker and waits for the current batch.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
		w.logger.Info("cleanup worker shutdown complete")
		return nil
	case <-ctx.Done():
		w.logger.Warn("cleanup worker shutdown timed out")
		return ctx.Err()
	}
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// processOnce handles one batch: reclaimed retries first, then new messages.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	messages, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending messages", "error", err)
	}
	if len(messages) > 0 {
		messages = w.dropExhausted(ctx, messages)
	} else {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	for _, msg := range messages {
		w.handle(ctx, msg)
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, msg redis.XMessage) {
	payload, _ := msg.Values["payload"].(string)

	var o Orphan
	if err := json.Unmarshal([]byte(payload), &o); err != nil || o.Key == "" {
		w.deadLetter(ctx, msg, "invalid_payload")
		return
	}

	if err := w.deleter.Delete(ctx, o.Key); err != nil {
		// Left pending; reclaimed after claimIdle.
		w.logger.Warn("orphan delete failed",
			"message_id", msg.ID,
			"key", o.Key,
			"error", err,
		)
		return
	}

	if err := w.ack(ctx, msg.ID); err != nil {
		w.logger.Error("ack failed", "message_id", msg.ID, "error", err)
		return
	}
	w.metrics.IncOrphanImage("deleted")
	w.logger.Info("orphan image deleted",
		"key", o.Key,
		"listing_id", o.ListingID,
		"age_ms", time.Now().UnixMilli()-o.QueuedAt,
	)
}

// dropExhausted dead-letters reclaimed messages past maxDeliveries and
// returns the rest.
func (w *Worker) dropExhausted(ctx context.Context, messages []redis.XMessage) []redis.XMessage {
	keep := messages[:0]
	for _, msg := range messages {
		pending, err := w.redis.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: StreamKey,
			Group:  ConsumerGroup,
			Start:  msg.ID,
			End:    msg.ID,
			Count:  1,
		}).Result()
		if err == nil && len(pending) == 1 && pending[0].RetryCount > w.maxDeliveries {
			w.deadLetter(ctx, msg, "max_deliveries")
			continue
		}
		keep = append(keep, msg)
	}
	return keep
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}
	w.lastClaim = time.Now()

	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	return streams[0].Messages, nil
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, reason string) {
	w.logger.Warn("dead-lettering orphan", "message_id", msg.ID, "reason", reason)

	_, err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"reason":           reason,
			"payload":          msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		w.logger.Error("failed to write to dead-letter stream", "message_id", msg.ID, "error", err)
		return
	}

	if err := w.ack(ctx, msg.ID); err != nil {
		w.logger.Error("ack failed", "message_id", msg.ID, "error", err)
	}
	w.metrics.IncOrphanImage("dead_lettered")
}

func (w *Worker) ack(ctx context.Context, id string) error {
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, id).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil {
		return
	}
	for _, g := range groups {
		if g.Name == ConsumerGroup {
			w.metrics.SetOrphanQueueDepth(g.Pending + g.Lag)
			return
		}
	}
}
