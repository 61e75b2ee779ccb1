package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Engine metrics
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_ticks_total",
			Help: "Total number of reconciliation ticks run",
		},
	)

	TickFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_tick_failures_total",
			Help: "Total number of ticks aborted by fetch or write errors",
		},
	)

	TicksDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_ticks_dropped_total",
			Help: "Total number of cadence firings dropped by the single-flight guard",
		},
	)

	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "herald_tick_duration_seconds",
			Help:    "Reconciliation tick duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Event metrics
	EventsTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "herald_events_tracked",
			Help: "Number of upcoming events currently tracked",
		},
	)

	EventsDiscovered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_events_discovered_total",
			Help: "Total number of events classified as new",
		},
	)

	EventsUpdated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_events_updated_total",
			Help: "Total number of events classified as updated",
		},
	)

	EventsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_events_expired_total",
			Help: "Total number of events removed by the expiration sweep",
		},
	)

	IntegrityViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_integrity_violations_total",
			Help: "Total number of upstream payloads skipped for integrity reasons",
		},
	)

	// Outbound metrics
	OutboundQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "herald_outbound_queue_depth",
			Help: "Changes buffered for the presentation collaborator",
		},
	)

	// Announcer metrics
	AnnouncementsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_announcements_sent_total",
			Help: "Total number of announcement messages sent",
		},
	)

	AnnouncementsEdited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_announcements_edited_total",
			Help: "Total number of announcement messages edited in place",
		},
	)

	AnnouncementFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "herald_announcement_failures_total",
			Help: "Total number of failed Discord send or edit calls",
		},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal)
	prometheus.MustRegister(TickFailures)
	prometheus.MustRegister(TicksDropped)
	prometheus.MustRegister(TickDuration)
	prometheus.MustRegister(EventsTracked)
	prometheus.MustRegister(EventsDiscovered)
	prometheus.MustRegister(EventsUpdated)
	prometheus.MustRegister(EventsExpired)
	prometheus.MustRegister(IntegrityViolations)
	prometheus.MustRegister(OutboundQueueDepth)
	prometheus.MustRegister(AnnouncementsSent)
	prometheus.MustRegister(AnnouncementsEdited)
	prometheus.MustRegister(AnnouncementFailures)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
