package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SessionStarted()
	m.FrameCaptured(-20)
	m.DatagramSent(960)
	m.FrameCaptured(-30)
	m.DatagramSent(960)
	m.SendError()
	m.EventDropped()
	m.SessionEnded(3, "transport")

	if got := testutil.ToFloat64(m.FramesCaptured); got != 2 {
		t.Errorf("frames captured = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.InputLevel); got != -30 {
		t.Errorf("input level = %v, want -30", got)
	}
	if got := testutil.ToFloat64(m.BytesSent); got != 1920 {
		t.Errorf("bytes sent = %v, want 1920", got)
	}
	if got := testutil.ToFloat64(m.Streaming); got != 0 {
		t.Errorf("streaming = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.SessionFailures.WithLabelValues("transport")); got != 1 {
		t.Errorf("transport failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EventsDropped); got != 1 {
		t.Errorf("events dropped = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.SessionStarted()
	m.FrameCaptured(0)
	m.DatagramSent(1)
	m.SendError()
	m.EventDropped()
	m.SessionEnded(1, "")
}
