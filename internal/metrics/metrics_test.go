package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInMemoryRecorder(t *testing.T) {
	m := NewInMemory()

	m.IncListingSubmission(OutcomeAdmitted)
	m.IncListingSubmission(OutcomeAdmitted)
	m.IncListingSubmission(OutcomeQuotaDenied)
	m.IncModerationVerdict("general", "flagged")
	m.ObserveModerationDuration("general", time.Millisecond)
	m.IncListingCacheHit()
	m.IncListingCacheMiss()
	m.IncGrant()
	m.IncOrphanImage("queued")
	m.SetOrphanQueueDepth(3)

	snap := m.Snapshot()
	if snap.Submissions[OutcomeAdmitted] != 2 || snap.Submissions[OutcomeQuotaDenied] != 1 {
		t.Errorf("submissions = %v", snap.Submissions)
	}
	if snap.ModerationVerdict["general/flagged"] != 1 || snap.ModerationCalls != 1 {
		t.Errorf("moderation = %v calls=%d", snap.ModerationVerdict, snap.ModerationCalls)
	}
	if snap.ListingCacheHits != 1 || snap.ListingCacheMiss != 1 || snap.Grants != 1 {
		t.Errorf("counters = %+v", snap)
	}
	if snap.OrphanImages["queued"] != 1 || snap.OrphanQueueDepth != 3 {
		t.Errorf("orphans = %v depth=%d", snap.OrphanImages, snap.OrphanQueueDepth)
	}

	// Snapshots are copies.
	snap.Submissions[OutcomeAdmitted] = 99
	if m.Snapshot().Submissions[OutcomeAdmitted] != 2 {
		t.Error("snapshot shares state with recorder")
	}
}

func TestCollectorExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.IncListingSubmission(OutcomeRejected)
	c.IncModerationVerdict("contraband", "flagged")
	c.ObserveModerationDuration("contraband", 20*time.Millisecond)
	c.IncGrant()
	c.SetOrphanQueueDepth(2)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`campuskart_listing_submissions_total{outcome="rejected"} 1`,
		`campuskart_moderation_verdicts_total{result="flagged",stage="contraband"} 1`,
		`campuskart_listing_grants_total 1`,
		`campuskart_orphan_queue_depth 2`,
		`campuskart_moderation_duration_seconds_count{stage="contraband"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in scrape output", want)
		}
	}
}

func TestRecorderImplementations(t *testing.T) {
	var _ Recorder = NewNoop()
	var _ Recorder = NewInMemory()
	var _ Recorder = (*Collector)(nil)
	var _ Snapshotter = NewInMemory()
}
