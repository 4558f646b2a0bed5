// Package metrics exposes Prometheus counters and gauges for the capture
// and upload pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus instruments for the daemon.
type Metrics struct {
	registry             *prometheus.Registry
	sessionsStarted      prometheus.Counter
	recordingsCompleted  prometheus.Counter
	remakesDiscarded     prometheus.Counter
	clipsExtracted       prometheus.Counter
	clipsFailed          prometheus.Counter
	uploadsTotal         prometheus.Counter
	uploadFailures       prometheus.Counter
	sessionState         prometheus.Gauge
}

// New creates and registers the daemon's metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	sessionsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexravision_sessions_started_total",
		Help: "Total number of detected game sessions",
	})
	recordingsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexravision_recordings_completed_total",
		Help: "Total number of recordings finalized to disk",
	})
	remakesDiscarded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexravision_remakes_discarded_total",
		Help: "Total number of sessions discarded as remakes",
	})
	clipsExtracted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexravision_clips_extracted_total",
		Help: "Total number of clips successfully transcoded",
	})
	clipsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexravision_clips_failed_total",
		Help: "Total number of clip extractions dropped",
	})
	uploadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexravision_uploads_total",
		Help: "Total number of completed upload sequences",
	})
	uploadFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nexravision_upload_failures_total",
		Help: "Total number of upload sequences that failed fatally",
	})
	sessionState := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nexravision_session_state",
		Help: "Current session state (0 idle, 1 detected, 2 awaiting consent, 3 capturing, 4 finalizing)",
	})

	registry.MustRegister(
		sessionsStarted,
		recordingsCompleted,
		remakesDiscarded,
		clipsExtracted,
		clipsFailed,
		uploadsTotal,
		uploadFailures,
		sessionState,
	)

	return &Metrics{
		registry:            registry,
		sessionsStarted:     sessionsStarted,
		recordingsCompleted: recordingsCompleted,
		remakesDiscarded:    remakesDiscarded,
		clipsExtracted:      clipsExtracted,
		clipsFailed:         clipsFailed,
		uploadsTotal:        uploadsTotal,
		uploadFailures:      uploadFailures,
		sessionState:        sessionState,
	}
}

// IncSessionsStarted increments the detected-sessions counter.
func (m *Metrics) IncSessionsStarted() { m.sessionsStarted.Inc() }

// IncRecordingsCompleted increments the finalized-recordings counter.
func (m *Metrics) IncRecordingsCompleted() { m.recordingsCompleted.Inc() }

// IncRemakesDiscarded increments the remakes counter.
func (m *Metrics) IncRemakesDiscarded() { m.remakesDiscarded.Inc() }

// AddClipsExtracted adds n to the extracted-clips counter.
func (m *Metrics) AddClipsExtracted(n int) { m.clipsExtracted.Add(float64(n)) }

// AddClipsFailed adds n to the dropped-clips counter.
func (m *Metrics) AddClipsFailed(n int) { m.clipsFailed.Add(float64(n)) }

// IncUploads increments the completed-uploads counter.
func (m *Metrics) IncUploads() { m.uploadsTotal.Inc() }

// IncUploadFailures increments the failed-uploads counter.
func (m *Metrics) IncUploadFailures() { m.uploadFailures.Inc() }

// SetSessionState sets the session state gauge.
func (m *Metrics) SetSessionState(state int) { m.sessionState.Set(float64(state)) }

// Handler returns an http.Handler that serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
