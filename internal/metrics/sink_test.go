package metrics_test

import (
	"errors"
	"testing"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/foxglovetest"
	"github.com/foxglove/foxglove-go/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func TestInstrumentedSinkReportsSuccessfulRecord(t *testing.T) {
	m := metrics.NewMetricsFor(prometheus.NewRegistry())
	inner := foxglovetest.NewMockSink()
	wrapped := metrics.Wrap(inner, "test", m)

	descriptor := &fg.ChannelDescriptor{ID: 1, Topic: "/t"}
	if err := wrapped.Record(descriptor, []byte("hi"), fg.Metadata{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(inner.Messages()) != 1 {
		t.Fatal("expected the wrapped sink to still receive the message")
	}
}

func TestInstrumentedSinkReportsRecordError(t *testing.T) {
	m := metrics.NewMetricsFor(prometheus.NewRegistry())
	wantErr := errors.New("boom")
	wrapped := metrics.Wrap(foxglovetest.NewErrorSink(wantErr), "test", m)

	descriptor := &fg.ChannelDescriptor{ID: 1, Topic: "/t"}
	err := wrapped.Record(descriptor, nil, fg.Metadata{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the wrapped error to propagate, got %v", err)
	}
}

func TestInstrumentedSinkReportsChannelLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetricsFor(reg)
	wrapped := metrics.Wrap(foxglovetest.NewMockSink(), "test", m)

	descriptor := &fg.ChannelDescriptor{ID: 1, Topic: "/t"}
	wrapped.OnChannelAdded(descriptor)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var gaugeValue float64
	for _, f := range families {
		if f.GetName() == "foxglove_channels_registered" {
			gaugeValue = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	if gaugeValue != 1 {
		t.Fatalf("expected channels_registered gauge to read 1, got %v", gaugeValue)
	}

	wrapped.OnChannelRemoved(descriptor)
	families, _ = reg.Gather()
	for _, f := range families {
		if f.GetName() == "foxglove_channels_registered" {
			gaugeValue = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	if gaugeValue != 0 {
		t.Fatalf("expected channels_registered gauge to read 0 after removal, got %v", gaugeValue)
	}
}
