// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Submission outcomes recorded by the listing pipeline.
const (
	OutcomeAdmitted        = "admitted"
	OutcomeInvalid         = "invalid"
	OutcomeUserNotFound    = "user_not_found"
	OutcomeQuotaDenied     = "quota_denied"
	OutcomeUploadFailed    = "upload_failed"
	OutcomeRejected        = "rejected"
	OutcomeModerationError = "moderation_error"
	OutcomeError           = "error"
)

// Recorder captures metric events for the application.
// The Prometheus collector and the in-memory test recorder both implement it.
type Recorder interface {
	// Listing pipeline
	IncListingSubmission(outcome string)
	IncModerationVerdict(stage, result string) // result: "safe", "flagged", "error"
	ObserveModerationDuration(stage string, duration time.Duration)
	IncImageUpload(status string) // status: "success", "failed"

	// Listing reads
	IncListingCacheHit()
	IncListingCacheMiss()

	// Entitlements
	IncGrant()

	// Orphaned image cleanup
	IncOrphanImage(status string) // status: "deleted", "queued", "dead_lettered", "dropped"
	SetOrphanQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
