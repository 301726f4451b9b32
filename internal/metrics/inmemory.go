package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Submissions       map[string]uint64
	ModerationVerdict map[string]uint64 // keyed "stage/result"
	ModerationCalls   uint64
	ImageUploads      map[string]uint64
	ListingCacheHits  uint64
	ListingCacheMiss  uint64
	Grants            uint64
	OrphanImages      map[string]uint64
	OrphanQueueDepth  int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                sync.Mutex
	submissions       map[string]uint64
	moderationVerdict map[string]uint64
	imageUploads      map[string]uint64
	orphanImages      map[string]uint64

	moderationCalls  uint64
	listingCacheHits uint64
	listingCacheMiss uint64
	grants           uint64
	orphanQueueDepth int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		submissions:       make(map[string]uint64),
		moderationVerdict: make(map[string]uint64),
		imageUploads:      make(map[string]uint64),
		orphanImages:      make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Submissions:       maps.Clone(m.submissions),
		ModerationVerdict: maps.Clone(m.moderationVerdict),
		ModerationCalls:   atomic.LoadUint64(&m.moderationCalls),
		ImageUploads:      maps.Clone(m.imageUploads),
		ListingCacheHits:  atomic.LoadUint64(&m.listingCacheHits),
		ListingCacheMiss:  atomic.LoadUint64(&m.listingCacheMiss),
		Grants:            atomic.LoadUint64(&m.grants),
		OrphanImages:      maps.Clone(m.orphanImages),
		OrphanQueueDepth:  atomic.LoadInt64(&m.orphanQueueDepth),
	}
}

func (m *InMemoryRecorder) inc(counter map[string]uint64, key string) {
	m.mu.Lock()
	counter[key]++
	m.mu.Unlock()
}

// IncListingSubmission counts a pipeline outcome.
func (m *InMemoryRecorder) IncListingSubmission(outcome string) {
	m.inc(m.submissions, outcome)
}

// IncModerationVerdict counts a classifier verdict.
func (m *InMemoryRecorder) IncModerationVerdict(stage, result string) {
	m.inc(m.moderationVerdict, stage+"/"+result)
}

// ObserveModerationDuration counts classifier calls.
func (m *InMemoryRecorder) ObserveModerationDuration(string, time.Duration) {
	atomic.AddUint64(&m.moderationCalls, 1)
}

// IncImageUpload counts upload results.
func (m *InMemoryRecorder) IncImageUpload(status string) {
	m.inc(m.imageUploads, status)
}

// IncListingCacheHit increments the listing cache hit counter.
func (m *InMemoryRecorder) IncListingCacheHit() {
	atomic.AddUint64(&m.listingCacheHits, 1)
}

// IncListingCacheMiss increments the listing cache miss counter.
func (m *InMemoryRecorder) IncListingCacheMiss() {
	atomic.AddUint64(&m.listingCacheMiss, 1)
}

// IncGrant increments the unlock grant counter.
func (m *InMemoryRecorder) IncGrant() {
	atomic.AddUint64(&m.grants, 1)
}

// IncOrphanImage counts cleanup results.
func (m *InMemoryRecorder) IncOrphanImage(status string) {
	m.inc(m.orphanImages, status)
}

// SetOrphanQueueDepth records the pending cleanup backlog.
func (m *InMemoryRecorder) SetOrphanQueueDepth(depth int64) {
	atomic.StoreInt64(&m.orphanQueueDepth, depth)
}
