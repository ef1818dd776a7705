package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	fg "github.com/foxglove/foxglove-go"
	"github.com/foxglove/foxglove-go/ws/protocol"
)

// sessionState is the per-connection state machine:
// Handshaking → Ready → Closing → Closed.
type sessionState int32

const (
	stateHandshaking sessionState = iota
	stateReady
	stateClosing
	stateClosed
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// clientChannelInfo is a channel the client has advertised for
// publishing, accepted only under CapabilityClientPublish.
type clientChannelInfo struct {
	id             uint32
	topic          string
	encoding       string
	schemaEncoding string
}

// ClientSession is the per-connection state machine: subscriptions,
// advertisements, the outbound backpressure queue, and the writer task.
type ClientSession struct {
	id          fg.ClientID
	conn        *websocket.Conn
	server      *Server
	logger      *log.Logger
	connectedAt time.Time

	send chan []byte

	state atomic.Int32

	backlogDrops atomic.Int32 // consecutive full-queue drops, for the disconnect threshold

	mu                   sync.Mutex
	subscriptions        map[fg.SubscriptionID]fg.ChannelID
	subscribersByChannel map[fg.ChannelID]map[fg.SubscriptionID]struct{}
	clientChannels       map[uint32]clientChannelInfo
	paramNames           map[string]struct{}
	paramSubscribeAll    bool
	graphSubscribed      bool

	closeOnce sync.Once
	done      chan struct{}
}

func newClientSession(conn *websocket.Conn, server *Server) *ClientSession {
	cs := &ClientSession{
		id:                   nextClientID(),
		conn:                 conn,
		server:               server,
		logger:               server.logger,
		connectedAt:          time.Now(),
		send:                 make(chan []byte, server.config.WebSocket.SendQueueSize),
		subscriptions:        make(map[fg.SubscriptionID]fg.ChannelID),
		subscribersByChannel: make(map[fg.ChannelID]map[fg.SubscriptionID]struct{}),
		clientChannels:       make(map[uint32]clientChannelInfo),
		paramNames:           make(map[string]struct{}),
		done:                 make(chan struct{}),
	}
	cs.state.Store(int32(stateHandshaking))
	return cs
}

var clientIDCounter atomic.Uint32

func nextClientID() fg.ClientID {
	return fg.ClientID(clientIDCounter.Add(1))
}

func (cs *ClientSession) ID() fg.ClientID { return cs.id }

func (cs *ClientSession) setState(s sessionState) { cs.state.Store(int32(s)) }
func (cs *ClientSession) getState() sessionState  { return sessionState(cs.state.Load()) }

// enqueue pushes a frame onto the outbound queue, applying the
// backpressure policy when the queue is full: a control frame (status,
// unadvertise, time, responses) makes room by dropping the oldest queued
// frame, whichever kind it is; a data frame is dropped instead, a Status
// warning describing the drop is enqueued as a control frame, and the
// consecutive-drop counter is advanced toward the disconnect threshold.
func (cs *ClientSession) enqueue(frame []byte, control bool) {
	if cs.getState() >= stateClosing {
		return
	}
	select {
	case cs.send <- frame:
		cs.backlogDrops.Store(0)
		return
	default:
	}

	if control {
		// Make room by dropping the oldest queued frame, then retry once.
		select {
		case <-cs.send:
		default:
		}
		select {
		case cs.send <- frame:
		default:
		}
		return
	}

	drops := cs.backlogDrops.Add(1)
	if cs.server.metrics != nil {
		cs.server.metrics.DataFrameDropped()
	}
	if b, err := protocol.EncodeJSON(protocol.Status{Op: protocol.OpStatus, Level: protocol.StatusWarning, Message: "outbound queue full, dropping message"}); err == nil {
		cs.enqueue(b, true)
	}
	if int(drops) >= cs.server.config.WebSocket.MaxBacklogBeforeDisconnect {
		if cs.server.metrics != nil {
			cs.server.metrics.ClientDisconnectedForBacklog()
		}
		cs.close()
	}
}

func (cs *ClientSession) sendStatusLocked(level protocol.StatusLevel, message string) {
	b, err := protocol.EncodeJSON(protocol.Status{Op: protocol.OpStatus, Level: level, Message: message})
	if err != nil {
		return
	}
	select {
	case cs.send <- b:
	default:
		// The queue is full; the status is dropped rather than blocking
		// the caller.
	}
}

// close transitions the session to Closing and arranges for the socket
// to be torn down; idempotent.
func (cs *ClientSession) close() {
	cs.closeOnce.Do(func() {
		cs.setState(stateClosing)
		close(cs.done)
		close(cs.send)
	})
}

// run drives the session to completion: the reader and writer run as
// distinct cooperative tasks. Blocks until the connection is closed.
func (cs *ClientSession) run() {
	defer func() {
		cs.setState(stateClosed)
		cs.conn.Close()
		cs.server.removeSession(cs.id)
		if cs.server.metrics != nil {
			cs.server.metrics.ConnectionClosed(time.Since(cs.connectedAt))
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); cs.writeLoop() }()
	go func() { defer wg.Done(); cs.readLoop() }()
	wg.Wait()
}

func (cs *ClientSession) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// close() closes send as well as done, so the writer first flushes
	// frames queued before the close (such as a protocol-violation
	// Status) and then sends the close message.
	for {
		select {
		case msg, ok := <-cs.send:
			if !ok {
				cs.conn.SetWriteDeadline(time.Now().Add(writeWait))
				cs.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			cs.conn.SetWriteDeadline(time.Now().Add(writeWait))
			opcode := websocket.TextMessage
			if len(msg) > 0 && isBinaryFrame(msg[0]) {
				opcode = websocket.BinaryMessage
			}
			if err := cs.conn.WriteMessage(opcode, msg); err != nil {
				cs.close()
				return
			}
		case <-ticker.C:
			cs.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cs.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cs.close()
				return
			}
		}
	}
}

// isBinaryFrame distinguishes our binary frames (which always start with
// a valid opcode byte) from JSON text (which always starts with '{').
// JSON frames we construct always begin with '{' (0x7b); every binary
// opcode we define is far below that.
func isBinaryFrame(firstByte byte) bool {
	return firstByte != '{'
}

func (cs *ClientSession) readLoop() {
	defer cs.close()

	cs.conn.SetReadDeadline(time.Now().Add(pongWait))
	cs.conn.SetPongHandler(func(string) error {
		cs.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := cs.conn.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.TextMessage:
			cs.handleJSON(data)
		case websocket.BinaryMessage:
			cs.handleBinary(data)
		}
	}
}

func (cs *ClientSession) handleJSON(data []byte) {
	msg, err := protocol.DecodeClientJSON(data)
	if err != nil {
		cs.protocolViolation(fmt.Sprintf("unparseable frame: %v", err))
		return
	}

	switch m := msg.(type) {
	case protocol.Subscribe:
		cs.handleSubscribe(m)
	case protocol.Unsubscribe:
		cs.handleUnsubscribe(m)
	case protocol.ClientAdvertise:
		cs.handleClientAdvertise(m)
	case protocol.ClientUnadvertise:
		cs.handleClientUnadvertise(m)
	case protocol.GetParameters:
		cs.server.handleGetParameters(cs, m)
	case protocol.SetParameters:
		cs.server.handleSetParameters(cs, m)
	case protocol.SubscribeParameterUpdates:
		cs.handleSubscribeParameterUpdates(m)
	case protocol.UnsubscribeParameterUpdates:
		cs.handleUnsubscribeParameterUpdates(m)
	case protocol.SubscribeConnectionGraph:
		cs.handleSubscribeConnectionGraph()
	case protocol.UnsubscribeConnectionGraph:
		cs.handleUnsubscribeConnectionGraph()
	case protocol.FetchAsset:
		cs.server.handleFetchAsset(cs, m)
	default:
		cs.protocolViolation("unrecognized message shape")
	}
}

func (cs *ClientSession) handleBinary(data []byte) {
	if len(data) == 0 {
		cs.protocolViolation("empty binary frame")
		return
	}
	switch protocol.ClientBinaryOpcode(data[0]) {
	case protocol.ClientOpMessageData:
		m, err := protocol.DecodeClientMessageData(data)
		if err != nil {
			cs.protocolViolation(err.Error())
			return
		}
		cs.handleClientMessageData(m)
	case protocol.ClientOpServiceCallRequest:
		m, err := protocol.DecodeServiceCallRequest(data)
		if err != nil {
			cs.protocolViolation(err.Error())
			return
		}
		cs.server.handleServiceCall(cs, m)
	default:
		cs.protocolViolation(fmt.Sprintf("unknown binary opcode %d", data[0]))
	}
}

// protocolViolation reports a protocol error to the client with a Status
// frame and closes the connection.
func (cs *ClientSession) protocolViolation(message string) {
	b, _ := protocol.EncodeJSON(protocol.Status{Op: protocol.OpStatus, Level: protocol.StatusError, Message: message})
	cs.enqueue(b, true)
	cs.close()
}

// marshalOrLog is a small helper used by handlers that build JSON
// responses and can't meaningfully recover from a marshal failure beyond
// logging it (which would itself indicate a programming error in a
// message struct, not user input).
func (cs *ClientSession) marshalOrLog(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		cs.logger.Printf("client %d: failed to marshal outbound message: %v", cs.id, err)
		return nil
	}
	return b
}
