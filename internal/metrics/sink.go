package metrics

import fg "github.com/foxglove/foxglove-go"

// InstrumentedSink wraps an fg.Sink, reporting every Record/OnChannelAdded/
// OnChannelRemoved call to Metrics before delegating to the wrapped sink.
// Kept separate from package foxglove's core fan-out: the context itself
// stays free of any particular observability backend, and an embedder who
// wants Prometheus counters wraps the sinks they attach instead.
type InstrumentedSink struct {
	fg.Sink
	Kind    string // label used on the sink_record_errors_total vector
	Metrics *Metrics
}

// Wrap returns sink instrumented with m, labeled kind.
func Wrap(sink fg.Sink, kind string, m *Metrics) *InstrumentedSink {
	return &InstrumentedSink{Sink: sink, Kind: kind, Metrics: m}
}

func (s *InstrumentedSink) Record(descriptor *fg.ChannelDescriptor, payload []byte, metadata fg.Metadata) error {
	err := s.Sink.Record(descriptor, payload, metadata)
	if err != nil {
		s.Metrics.SinkRecordError(s.Kind)
	} else {
		s.Metrics.MessageLogged(len(payload))
	}
	return err
}

func (s *InstrumentedSink) OnChannelAdded(descriptor *fg.ChannelDescriptor) {
	s.Metrics.ChannelRegistered()
	s.Sink.OnChannelAdded(descriptor)
}

func (s *InstrumentedSink) OnChannelRemoved(descriptor *fg.ChannelDescriptor) {
	s.Metrics.ChannelClosed()
	s.Sink.OnChannelRemoved(descriptor)
}
