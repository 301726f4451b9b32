package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncListingSubmission(string)                     {}
func (n *NoopRecorder) IncModerationVerdict(string, string)             {}
func (n *NoopRecorder) ObserveModerationDuration(string, time.Duration) {}
func (n *NoopRecorder) IncImageUpload(string)                           {}
func (n *NoopRecorder) IncListingCacheHit()                             {}
func (n *NoopRecorder) IncListingCacheMiss()                            {}
func (n *NoopRecorder) IncGrant()                                       {}
func (n *NoopRecorder) IncOrphanImage(string)                           {}
func (n *NoopRecorder) SetOrphanQueueDepth(int64)                       {}
