// Package recording implements an MCAP-backed Sink: every logged message
// is written as an MCAP message record, with schemas and channels
// declared lazily on first use. This is the file-recording half of the
// SDK; the live half lives in package ws.
//
// The MCAP format itself is treated as an external collaborator: this
// package is a thin adapter from fg.Sink onto github.com/foxglove/mcap's
// writer, not a reimplementation of the container format.
package recording

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/foxglove/mcap/go/mcap"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/internal/metrics"
)

// Sink writes every logged message to an MCAP file. Safe for concurrent
// use; Context.Log may be called from multiple goroutines.
type Sink struct {
	fg.NopLifecycle

	mu     sync.Mutex
	writer *mcap.Writer
	closed bool

	channelIDs map[fg.ChannelID]uint16
	schemaIDs  map[string]uint16 // keyed by schema name and encoding
	nextSchema atomic.Uint32
	sequence   atomic.Uint32

	onRecordError func(error)
	metrics       *metrics.Metrics
}

// Option configures a Sink at construction.
type Option func(*Sink)

// WithRecordErrorHook installs a callback invoked whenever a write to the
// underlying MCAP writer fails, in addition to the error Record returns
// to the calling Context (which logs and swallows it).
func WithRecordErrorHook(fn func(error)) Option {
	return func(s *Sink) { s.onRecordError = fn }
}

// WithMetrics attaches Prometheus instrumentation: bytes written per
// message and writer-error counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sink) { s.metrics = m }
}

// NewSink creates an MCAP writer over w and writes the MCAP header. The
// caller is responsible for closing the underlying file once Close has
// returned.
func NewSink(w io.Writer, profile string, opts ...Option) (*Sink, error) {
	writer, err := mcap.NewWriter(w, &mcap.WriterOptions{
		Compression: mcap.CompressionZSTD,
		ChunkSize:   4 * 1024 * 1024,
		IncludeCRC:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("recording: create mcap writer: %w", err)
	}
	if err := writer.WriteHeader(&mcap.Header{Profile: profile, Library: "foxglove-go"}); err != nil {
		return nil, fmt.Errorf("recording: write mcap header: %w", err)
	}

	s := &Sink{
		writer:     writer,
		channelIDs: make(map[fg.ChannelID]uint16),
		schemaIDs:  make(map[string]uint16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OnChannelAdded declares the channel (and its schema, if any and not
// already declared) in the MCAP file. Declaring a channel is idempotent
// per ChannelID; a channel re-registered under the same topic after a
// close has a new ChannelID and is declared as a new MCAP channel.
func (s *Sink) OnChannelAdded(descriptor *fg.ChannelDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.channelIDs[descriptor.ID]; ok {
		return
	}

	var schemaID uint16
	if descriptor.Schema != nil {
		key := descriptor.Schema.Name + "\x00" + descriptor.Schema.Encoding
		id, ok := s.schemaIDs[key]
		if !ok {
			id = uint16(s.nextSchema.Add(1))
			err := s.writer.WriteSchema(&mcap.Schema{
				ID:       id,
				Name:     descriptor.Schema.Name,
				Encoding: descriptor.Schema.Encoding,
				Data:     descriptor.Schema.Data,
			})
			if err != nil {
				s.reportError(fmt.Errorf("recording: write schema %q: %w", descriptor.Schema.Name, err))
				return
			}
			s.schemaIDs[key] = id
		}
		schemaID = id
	}

	channelID := uint16(len(s.channelIDs) + 1)
	err := s.writer.WriteChannel(&mcap.Channel{
		ID:              channelID,
		SchemaID:        schemaID,
		Topic:           descriptor.Topic,
		MessageEncoding: descriptor.MessageEncoding,
		Metadata:        descriptor.Metadata,
	})
	if err != nil {
		s.reportError(fmt.Errorf("recording: write channel %q: %w", descriptor.Topic, err))
		return
	}
	s.channelIDs[descriptor.ID] = channelID
}

// OnChannelRemoved is a no-op: MCAP has no notion of retiring a channel
// mid-file, so the MCAP channel id stays mapped to the closed ChannelID
// for the lifetime of the recording.
func (s *Sink) OnChannelRemoved(*fg.ChannelDescriptor) {}

// Record writes payload as an MCAP message on descriptor's channel.
func (s *Sink) Record(descriptor *fg.ChannelDescriptor, payload []byte, metadata fg.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fg.ErrHandler
	}
	channelID, ok := s.channelIDs[descriptor.ID]
	if !ok {
		return fmt.Errorf("recording: channel %q was never declared", descriptor.Topic)
	}
	err := s.writer.WriteMessage(&mcap.Message{
		ChannelID:   channelID,
		Sequence:    s.sequence.Add(1),
		LogTime:     metadata.LogTime,
		PublishTime: metadata.LogTime,
		Data:        payload,
	})
	if err != nil {
		s.reportError(err)
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordingBytesWritten(len(payload))
	}
	return nil
}

func (s *Sink) reportError(err error) {
	if s.metrics != nil {
		s.metrics.RecordingFlushError()
	}
	if s.onRecordError != nil {
		s.onRecordError(err)
	}
}

// Close finalizes the MCAP file (writing the summary section and
// footer). Idempotent.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}
