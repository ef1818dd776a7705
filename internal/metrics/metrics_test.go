package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return NewMetricsFor(prometheus.NewRegistry())
}

func TestChannelRegisteredAndClosed(t *testing.T) {
	m := newTestMetrics()
	m.ChannelRegistered()
	m.ChannelRegistered()
	m.ChannelClosed()

	if got := testutil.ToFloat64(m.channelsRegistered); got != 1 {
		t.Fatalf("expected 1 registered channel, got %v", got)
	}
	if got := testutil.ToFloat64(m.channelsClosed); got != 1 {
		t.Fatalf("expected 1 closed channel, got %v", got)
	}
}

func TestMessageLoggedAccumulatesBytes(t *testing.T) {
	m := newTestMetrics()
	m.MessageLogged(10)
	m.MessageLogged(5)

	if got := testutil.ToFloat64(m.messagesLogged); got != 2 {
		t.Fatalf("expected 2 messages logged, got %v", got)
	}
	if got := testutil.ToFloat64(m.messageBytesLogged); got != 15 {
		t.Fatalf("expected 15 bytes logged, got %v", got)
	}
}

func TestConnectionLifecycle(t *testing.T) {
	m := newTestMetrics()
	m.ConnectionAccepted()
	m.ConnectionAccepted()
	m.ConnectionClosed(250 * time.Millisecond)

	if got := testutil.ToFloat64(m.connectionsTotal); got != 2 {
		t.Fatalf("expected 2 total connections, got %v", got)
	}
	if got := testutil.ToFloat64(m.connectionsActive); got != 1 {
		t.Fatalf("expected 1 active connection after one close, got %v", got)
	}
}

func TestServiceCallTracksErrors(t *testing.T) {
	m := newTestMetrics()
	m.ServiceCall(time.Millisecond, nil)
	m.ServiceCall(time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.serviceCallsTotal); got != 2 {
		t.Fatalf("expected 2 total service calls, got %v", got)
	}
	if got := testutil.ToFloat64(m.serviceCallErrors); got != 1 {
		t.Fatalf("expected 1 service call error, got %v", got)
	}
}

func TestSinkRecordErrorLabelsByKind(t *testing.T) {
	m := newTestMetrics()
	m.SinkRecordError("recording")
	m.SinkRecordError("recording")
	m.SinkRecordError("ws")

	if got := testutil.ToFloat64(m.sinkRecordErrors.WithLabelValues("recording")); got != 2 {
		t.Fatalf("expected 2 recording sink errors, got %v", got)
	}
	if got := testutil.ToFloat64(m.sinkRecordErrors.WithLabelValues("ws")); got != 1 {
		t.Fatalf("expected 1 ws sink error, got %v", got)
	}
}

func TestUptimeIsPositiveAfterConstruction(t *testing.T) {
	m := newTestMetrics()
	time.Sleep(time.Millisecond)
	if m.Uptime() <= 0 {
		t.Fatal("expected a positive uptime shortly after construction")
	}
}
