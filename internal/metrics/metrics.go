// Package metrics exposes the SDK's Prometheus instrumentation: channel
// and sink activity, live-server connection/backpressure counters, and
// service/asset call outcomes.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the process-wide instrumentation surface. A nil *Metrics is
// not valid; use NewMetrics or NewMetricsFor.
type Metrics struct {
	channelsRegistered prometheus.Gauge
	channelsClosed     prometheus.Counter
	sinksAttached      prometheus.Gauge
	sinkRecordErrors   *prometheus.CounterVec
	messagesLogged     prometheus.Counter
	messageBytesLogged prometheus.Counter

	connectionsTotal    prometheus.Counter
	connectionsActive   prometheus.Gauge
	connectionDuration  prometheus.Histogram
	connectionErrors    prometheus.Counter

	subscriptionsActive prometheus.Gauge
	subscriptionsRejected prometheus.Counter
	dataFramesSent      prometheus.Counter
	dataFramesDropped   prometheus.Counter
	bytesSent           prometheus.Counter
	clientsDisconnectedForBacklog prometheus.Counter

	serviceCallsTotal    prometheus.Counter
	serviceCallErrors    prometheus.Counter
	serviceCallDuration  prometheus.Histogram

	assetFetchesTotal  prometheus.Counter
	assetFetchErrors   prometheus.Counter

	recordingBytesWritten prometheus.Counter
	recordingFlushErrors  prometheus.Counter

	startTime time.Time
	mu        sync.RWMutex
}

// NewMetrics constructs Metrics registered against the default Prometheus
// registry. Constructing more than one in the same process will panic on
// duplicate registration, matching promauto's behavior; embedders that
// need isolated registries should use NewMetricsFor.
func NewMetrics() *Metrics {
	return NewMetricsFor(prometheus.DefaultRegisterer)
}

// NewMetricsFor constructs Metrics registered against reg, letting tests
// use a private prometheus.NewRegistry() to avoid collisions across
// parallel test cases.
func NewMetricsFor(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		startTime: time.Now(),

		channelsRegistered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foxglove_channels_registered",
			Help: "Number of channels announced to instrumented sinks and not yet removed.",
		}),
		channelsClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_channels_closed_total",
			Help: "Total number of channels closed.",
		}),
		sinksAttached: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foxglove_sinks_attached",
			Help: "Number of sinks attached, as reported through SinkAttached/SinkDetached.",
		}),
		sinkRecordErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "foxglove_sink_record_errors_total",
			Help: "Total number of errors returned by Sink.Record, by sink kind.",
		}, []string{"sink"}),
		messagesLogged: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_messages_logged_total",
			Help: "Total number of messages successfully recorded by instrumented sinks.",
		}),
		messageBytesLogged: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_message_bytes_logged_total",
			Help: "Total payload bytes successfully recorded by instrumented sinks.",
		}),

		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_ws_connections_total",
			Help: "Total number of WebSocket connections accepted.",
		}),
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foxglove_ws_connections_active",
			Help: "Number of currently connected WebSocket clients.",
		}),
		connectionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "foxglove_ws_connection_duration_seconds",
			Help:    "Duration of WebSocket client connections.",
			Buckets: prometheus.DefBuckets,
		}),
		connectionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_ws_connection_errors_total",
			Help: "Total number of connection-level errors (failed upgrades, handshake rejections).",
		}),

		subscriptionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foxglove_ws_subscriptions_active",
			Help: "Number of currently active client subscriptions across all channels.",
		}),
		subscriptionsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_ws_subscriptions_rejected_total",
			Help: "Total number of rejected subscribe requests (duplicate id or unknown channel).",
		}),
		dataFramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_ws_data_frames_sent_total",
			Help: "Total number of MessageData frames successfully enqueued.",
		}),
		dataFramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_ws_data_frames_dropped_total",
			Help: "Total number of MessageData frames dropped due to a full outbound queue.",
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_ws_bytes_sent_total",
			Help: "Total bytes written to WebSocket connections.",
		}),
		clientsDisconnectedForBacklog: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_ws_clients_disconnected_backlog_total",
			Help: "Total number of clients disconnected for exceeding the consecutive-drop threshold.",
		}),

		serviceCallsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_service_calls_total",
			Help: "Total number of service calls dispatched.",
		}),
		serviceCallErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_service_call_errors_total",
			Help: "Total number of service calls that returned an error or had no handler.",
		}),
		serviceCallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "foxglove_service_call_duration_seconds",
			Help:    "Duration of service call handler execution.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}),

		assetFetchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_asset_fetches_total",
			Help: "Total number of asset fetch requests.",
		}),
		assetFetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_asset_fetch_errors_total",
			Help: "Total number of asset fetch requests that failed.",
		}),

		recordingBytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_recording_bytes_written_total",
			Help: "Total bytes written to MCAP recording sinks.",
		}),
		recordingFlushErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "foxglove_recording_flush_errors_total",
			Help: "Total number of MCAP writer flush/write errors.",
		}),
	}
}

func (m *Metrics) ChannelRegistered()    { m.channelsRegistered.Inc() }
func (m *Metrics) ChannelClosed()        { m.channelsRegistered.Dec(); m.channelsClosed.Inc() }
func (m *Metrics) SinkAttached()         { m.sinksAttached.Inc() }
func (m *Metrics) SinkDetached()         { m.sinksAttached.Dec() }
func (m *Metrics) SinkRecordError(kind string) { m.sinkRecordErrors.WithLabelValues(kind).Inc() }

func (m *Metrics) MessageLogged(payloadBytes int) {
	m.messagesLogged.Inc()
	m.messageBytesLogged.Add(float64(payloadBytes))
}

func (m *Metrics) ConnectionAccepted() {
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

func (m *Metrics) ConnectionClosed(duration time.Duration) {
	m.connectionsActive.Dec()
	m.connectionDuration.Observe(duration.Seconds())
}

func (m *Metrics) ConnectionError() { m.connectionErrors.Inc() }

func (m *Metrics) SubscriptionAdded()    { m.subscriptionsActive.Inc() }
func (m *Metrics) SubscriptionRemoved()  { m.subscriptionsActive.Dec() }
func (m *Metrics) SubscriptionRejected() { m.subscriptionsRejected.Inc() }

func (m *Metrics) DataFrameSent(bytes int) {
	m.dataFramesSent.Inc()
	m.bytesSent.Add(float64(bytes))
}

func (m *Metrics) DataFrameDropped() { m.dataFramesDropped.Inc() }

func (m *Metrics) ClientDisconnectedForBacklog() { m.clientsDisconnectedForBacklog.Inc() }

func (m *Metrics) ServiceCall(duration time.Duration, err error) {
	m.serviceCallsTotal.Inc()
	m.serviceCallDuration.Observe(duration.Seconds())
	if err != nil {
		m.serviceCallErrors.Inc()
	}
}

func (m *Metrics) AssetFetch(err error) {
	m.assetFetchesTotal.Inc()
	if err != nil {
		m.assetFetchErrors.Inc()
	}
}

func (m *Metrics) RecordingBytesWritten(n int) { m.recordingBytesWritten.Add(float64(n)) }
func (m *Metrics) RecordingFlushError()        { m.recordingFlushErrors.Inc() }

// Uptime reports how long this Metrics instance has existed.
func (m *Metrics) Uptime() time.Duration { return time.Since(m.startTime) }
