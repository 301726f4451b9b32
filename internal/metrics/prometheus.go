package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	submissions        *prometheus.CounterVec
	moderationVerdicts *prometheus.CounterVec
	moderationLatency  *prometheus.HistogramVec
	imageUploads       *prometheus.CounterVec
	listingCache       *prometheus.CounterVec
	grants             prometheus.Counter
	orphanImages       *prometheus.CounterVec
	orphanQueueDepth   prometheus.Gauge
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuskart_listing_submissions_total",
			Help: "Listing submissions by pipeline outcome.",
		}, []string{"outcome"}),
		moderationVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuskart_moderation_verdicts_total",
			Help: "Image classifier verdicts by stage.",
		}, []string{"stage", "result"}),
		moderationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campuskart_moderation_duration_seconds",
			Help:    "Image classifier call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		imageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuskart_image_uploads_total",
			Help: "Listing image uploads by result.",
		}, []string{"status"}),
		listingCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuskart_listing_cache_lookups_total",
			Help: "Listing detail cache lookups.",
		}, []string{"result"}),
		grants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campuskart_listing_grants_total",
			Help: "Simulated unlock grants.",
		}),
		orphanImages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campuskart_orphan_images_total",
			Help: "Orphaned image cleanup results.",
		}, []string{"status"}),
		orphanQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campuskart_orphan_queue_depth",
			Help: "Orphaned images waiting for deletion.",
		}),
	}

	reg.MustRegister(
		c.submissions,
		c.moderationVerdicts,
		c.moderationLatency,
		c.imageUploads,
		c.listingCache,
		c.grants,
		c.orphanImages,
		c.orphanQueueDepth,
	)

	return c
}

func (c *Collector) IncListingSubmission(outcome string) {
	c.submissions.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncModerationVerdict(stage, result string) {
	c.moderationVerdicts.WithLabelValues(stage, result).Inc()
}

func (c *Collector) ObserveModerationDuration(stage string, duration time.Duration) {
	c.moderationLatency.WithLabelValues(stage).Observe(duration.Seconds())
}

func (c *Collector) IncImageUpload(status string) {
	c.imageUploads.WithLabelValues(status).Inc()
}

func (c *Collector) IncListingCacheHit() {
	c.listingCache.WithLabelValues("hit").Inc()
}

func (c *Collector) IncListingCacheMiss() {
	c.listingCache.WithLabelValues("miss").Inc()
}

func (c *Collector) IncGrant() {
	c.grants.Inc()
}

func (c *Collector) IncOrphanImage(status string) {
	c.orphanImages.WithLabelValues(status).Inc()
}

func (c *Collector) SetOrphanQueueDepth(depth int64) {
	c.orphanQueueDepth.Set(float64(depth))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
