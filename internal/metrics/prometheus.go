// Package metrics exposes streaming counters for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for a stream session.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Capture metrics
	FramesCaptured prometheus.Counter
	InputLevel     prometheus.Gauge

	// Transport metrics
	DatagramsSent prometheus.Counter
	BytesSent     prometheus.Counter
	SendErrors    prometheus.Counter

	// Session metrics
	Streaming       prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionFailures *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	EventsDropped   prometheus.Counter
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FramesCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "micstream_frames_captured_total",
			Help: "Total number of frames read from the capture device",
		}),
		InputLevel: f.NewGauge(prometheus.GaugeOpts{
			Name: "micstream_input_level_dbfs",
			Help: "RMS level of the most recent captured frame in dBFS",
		}),
		DatagramsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "micstream_datagrams_sent_total",
			Help: "Total number of audio datagrams handed to the network",
		}),
		BytesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "micstream_bytes_sent_total",
			Help: "Total audio payload bytes handed to the network",
		}),
		SendErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "micstream_send_errors_total",
			Help: "Datagram sends that returned an error, fatal or not",
		}),
		Streaming: f.NewGauge(prometheus.GaugeOpts{
			Name: "micstream_streaming",
			Help: "1 while a session is streaming, 0 when idle",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "micstream_sessions_started_total",
			Help: "Total number of sessions started",
		}),
		SessionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "micstream_session_failures_total",
			Help: "Sessions ended by an unrecoverable error, by cause",
		}, []string{"cause"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "micstream_session_duration_seconds",
			Help:    "Duration of streaming sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34 minutes
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "micstream_events_dropped_total",
			Help: "Session events discarded because the observer fell behind",
		}),
	}
}

func (m *Metrics) FrameCaptured(levelDBFS float64) {
	if m == nil {
		return
	}
	m.FramesCaptured.Inc()
	m.InputLevel.Set(levelDBFS)
}

func (m *Metrics) DatagramSent(n int) {
	if m == nil {
		return
	}
	m.DatagramsSent.Inc()
	m.BytesSent.Add(float64(n))
}

func (m *Metrics) SendError() {
	if m == nil {
		return
	}
	m.SendErrors.Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.Streaming.Set(1)
}

// SessionEnded records a session's end. cause is empty for a normal stop.
func (m *Metrics) SessionEnded(seconds float64, cause string) {
	if m == nil {
		return
	}
	m.Streaming.Set(0)
	m.SessionDuration.Observe(seconds)
	if cause != "" {
		m.SessionFailures.WithLabelValues(cause).Inc()
	}
}

func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}
