package ws

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/internal/metrics"
	"github.com/foxglove/foxglove-go/ws/protocol"
)

// ClientChannelListener is invoked when a client advertises a channel
// for publishing.
type ClientChannelListener func(clientID fg.ClientID, channel protocol.ClientChannel)

// ClientMessageListener is invoked when a client publishes a message on
// one of its advertised channels.
type ClientMessageListener func(clientID fg.ClientID, channelID uint32, payload []byte)

// Server is the live WebSocket visualization endpoint: it accepts
// connections, negotiates the foxglove.sdk.v1 subprotocol, advertises
// channels/services/parameters/connection graph, and fans out logged
// messages to subscribed clients. It implements fg.Sink so it can be
// attached to a Context directly.
type Server struct {
	config       Config
	capabilities capabilitySet
	logger       *log.Logger
	runtime      *fg.Runtime
	acceptor     Acceptor

	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[fg.ClientID]*ClientSession
	closed  bool

	channelsMu sync.Mutex
	channels   map[fg.ChannelID]*fg.ChannelDescriptor

	services *serviceMap

	assetHandler AssetHandler

	params *parameterStore
	graph  *connectionGraphStore

	clientChannelListeners []ClientChannelListener
	clientMessageListeners []ClientMessageListener

	context *fg.Context
	sinkID  fg.SinkID

	metrics *metrics.Metrics
}

// NewServer constructs a Server bound to ctx (DefaultContext if nil). It
// does not start listening until Start is called.
func NewServer(config Config, ctx *fg.Context, runtime *fg.Runtime) *Server {
	if ctx == nil {
		ctx = fg.DefaultContext()
	}
	if runtime == nil {
		runtime = fg.DefaultRuntime()
	}
	s := &Server{
		config:   config,
		logger:   log.New(os.Stderr, "[foxglove-ws] ", log.LstdFlags),
		runtime:  runtime,
		acceptor: PlainAcceptor{},
		clients:  make(map[fg.ClientID]*ClientSession),
		channels: make(map[fg.ChannelID]*fg.ChannelDescriptor),
		services: newServiceMap(),
		params:   newParameterStore(),
		graph:    newConnectionGraphStore(),
		context:  ctx,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{protocol.Subprotocol},
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.capabilities = newCapabilitySet(config.Capabilities, false)
	if config.WebSocket.CheckOrigin {
		s.upgrader.CheckOrigin = sameOriginCheck
	}
	s.sinkID = ctx.AddSink(s)
	return s
}

func sameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
}

// SetAcceptor overrides the TLS acceptor (default PlainAcceptor).
func (s *Server) SetAcceptor(a Acceptor) { s.acceptor = a }

// SetMetrics attaches Prometheus instrumentation. Nil by default: a
// Server with no attached Metrics runs without incurring any counter
// overhead, which matters for embedders who already scrape metrics
// through their own Context/sink instrumentation.
func (s *Server) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// SetAssetHandler installs an asset fetch handler, which automatically
// advertises CapabilityAssets.
func (s *Server) SetAssetHandler(h AssetHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assetHandler = h
	s.capabilities = newCapabilitySet(s.config.Capabilities, h != nil)
}

// OnClientChannel registers a listener invoked whenever a client
// advertises a publishable channel.
func (s *Server) OnClientChannel(l ClientChannelListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientChannelListeners = append(s.clientChannelListeners, l)
}

// OnClientMessage registers a listener invoked whenever a client
// publishes on an advertised channel.
func (s *Server) OnClientMessage(l ClientMessageListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientMessageListeners = append(s.clientMessageListeners, l)
}

func (s *Server) notifyClientChannel(id fg.ClientID, ch protocol.ClientChannel) {
	s.mu.Lock()
	listeners := append([]ClientChannelListener(nil), s.clientChannelListeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l(id, ch)
	}
}

func (s *Server) notifyClientMessage(id fg.ClientID, channelID uint32, payload []byte) {
	s.mu.Lock()
	listeners := append([]ClientMessageListener(nil), s.clientMessageListeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l(id, channelID, payload)
	}
}

// RegisterService registers a service and advertises it to already
// connected clients.
func (s *Server) RegisterService(svc *Service) fg.ServiceID {
	id := s.services.insert(svc)
	s.broadcastAdvertiseServices([]*Service{svc})
	s.maybeBroadcastConnectionGraph()
	return id
}

// RemoveService unregisters a service by name.
func (s *Server) RemoveService(name string) {
	id, ok := s.services.removeByName(name)
	if !ok {
		return
	}
	s.broadcastUnadvertiseServices([]fg.ServiceID{id})
	s.maybeBroadcastConnectionGraph()
}

// Start begins listening and accepting connections. It fails with
// fg.ErrSchedulerStopped if the runtime has already been shut down.
func (s *Server) Start() error {
	if s.runtime.Stopped() {
		return fg.ErrSchedulerStopped
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %v", fg.ErrTransport, addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.Serve(s.tunedListener(ln)); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("serve error: %v", err)
		}
	}()

	return nil
}

func (s *Server) tunedListener(ln net.Listener) net.Listener {
	return &acceptingListener{Listener: ln, acceptor: s.acceptor}
}

type acceptingListener struct {
	net.Listener
	acceptor Acceptor
}

func (l *acceptingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	tuneTCPConn(conn)
	return l.acceptor.Accept(conn)
}

// handleUpgrade performs the handshake: it accepts the upgrade iff the
// client offers the foxglove.sdk.v1 subprotocol, otherwise responds 400
// without upgrading.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	offered := r.Header.Get("Sec-WebSocket-Protocol")
	if !offersSubprotocol(offered, protocol.Subprotocol) {
		http.Error(w, "missing or unsupported Sec-WebSocket-Protocol", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("upgrade error: %v", err)
		if s.metrics != nil {
			s.metrics.ConnectionError()
		}
		return
	}

	cs := newClientSession(conn, s)
	s.mu.Lock()
	s.clients[cs.id] = cs
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ConnectionAccepted()
	}

	s.enterReady(cs)
	cs.run()
}

func offersSubprotocol(header, want string) bool {
	for _, tok := range splitCommaList(header) {
		if tok == want {
			return true
		}
	}
	return false
}

func splitCommaList(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			tok := trimSpace(s[start:i])
			if tok != "" {
				out = append(out, tok)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}

// enterReady sends server-info, then advertises all currently-registered
// channels and services. No data frames are delivered before the client
// observes server-info, because the writer goroutine processes sends in
// FIFO order and server-info is enqueued first, before the session is
// added to any fan-out path that could race ahead of it for this client
// specifically. Channel advertisement happens through the same enqueue
// before returning.
func (s *Server) enterReady(cs *ClientSession) {
	info := protocol.ServerInfo{
		Op:           protocol.OpServerInfo,
		Name:         s.config.Name,
		Capabilities: s.capabilities.list(),
		Metadata:     map[string]string{"sdkLanguage": fg.SDKLanguage()},
		SessionID:    fmt.Sprintf("%d", time.Now().UnixNano()),
	}
	cs.enqueue(cs.marshalOrLog(info), true)
	cs.setState(stateReady)

	if channels := s.snapshotChannels(); len(channels) > 0 {
		cs.enqueue(cs.marshalOrLog(protocol.Advertise{Op: protocol.OpAdvertise, Channels: channels}), true)
	}
	if services := s.services.list(); len(services) > 0 {
		cs.enqueue(cs.marshalOrLog(protocol.AdvertiseServices{Op: protocol.OpAdvertiseServices, Services: serviceDefs(services)}), true)
	}

	if s.capabilities.has(protocol.CapabilityTime) {
		cs.enqueue(protocol.EncodeTime(protocol.Time{TimestampNanos: uint64(time.Now().UnixNano())}), true)
	}
}

func (s *Server) removeSession(id fg.ClientID) {
	s.mu.Lock()
	delete(s.clients, id)
	s.mu.Unlock()
}

func (s *Server) hasChannel(id fg.ChannelID) bool {
	_, ok := s.channelDescriptor(id)
	return ok
}

// broadcast sends frame to every ready client for whom admit returns
// true, as a control frame (never droppable by ordinary backpressure).
func (s *Server) broadcast(frame []byte, admit func(*ClientSession) bool) {
	s.mu.Lock()
	sessions := make([]*ClientSession, 0, len(s.clients))
	for _, cs := range s.clients {
		sessions = append(sessions, cs)
	}
	s.mu.Unlock()

	for _, cs := range sessions {
		if cs.getState() != stateReady {
			continue
		}
		if admit != nil && !admit(cs) {
			continue
		}
		cs.enqueue(frame, true)
	}
}

func (s *Server) broadcastAdvertiseServices(svcs []*Service) {
	frame, _ := protocol.EncodeJSON(protocol.AdvertiseServices{Op: protocol.OpAdvertiseServices, Services: serviceDefs(svcs)})
	s.broadcast(frame, nil)
}

func (s *Server) broadcastUnadvertiseServices(ids []fg.ServiceID) {
	raw := make([]uint32, len(ids))
	for i, id := range ids {
		raw[i] = uint32(id)
	}
	frame, _ := protocol.EncodeJSON(protocol.UnadvertiseServices{Op: protocol.OpUnadvertiseServices, ServiceIDs: raw})
	s.broadcast(frame, nil)
}

// Stop halts the accept loop, detaches the server from its Context, and
// moves every session to Closing; each session reaches Closed once its
// own reader and writer goroutines exit. Stop returns without waiting
// for those goroutines or for in-flight service/asset handler work; a
// response that completes after its session has closed is dropped.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sessions := make([]*ClientSession, 0, len(s.clients))
	for _, cs := range s.clients {
		sessions = append(sessions, cs)
	}
	s.mu.Unlock()

	s.context.RemoveSink(s.sinkID)

	if s.httpServer != nil {
		s.httpServer.Close()
	}
	for _, cs := range sessions {
		cs.close()
	}
}

// Addr returns the bound listener address, valid after Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
