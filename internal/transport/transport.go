package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/channel"
	"github.com/mcmlink/mcm/internal/logging"
)

// ReasonConnectionLost is the close reason used after a heartbeat timeout.
const ReasonConnectionLost = "connection lost"

// State is the connection state of a Transport.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Transport is a client connection to one master.
type Transport struct {
	dial              channel.Dialer
	heartbeatInterval time.Duration
	observer          Observer

	pending *pendingTable

	mu        sync.Mutex
	state     State
	ch        channel.Channel
	address   string
	sessionID string
	nextID    uint64
	alive     bool
	paused    bool
	lost      bool
	mode      Mode
	modeGen   uint64
	stopBeat  chan struct{}

	// abortReason is the reason of a Disconnect that raced an Open.
	abortReason string
}

// New creates a disconnected Transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		dial:              channel.Dial(),
		heartbeatInterval: DefaultHeartbeatInterval,
		observer:          ObserverFuncs{},
		pending:           newPendingTable(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect opens the channel to address. It returns nil immediately when
// already connected, without reconnecting.
func (t *Transport) Connect(ctx context.Context, address string, secure bool) error {
	t.mu.Lock()
	switch t.state {
	case StateConnected:
		t.mu.Unlock()
		return nil
	case StateConnecting:
		t.mu.Unlock()
		return newError(ErrTypeConnect, "a connection attempt is already in progress", nil)
	}
	ch := t.dial(address, secure)
	t.state = StateConnecting
	t.ch = ch
	t.address = address
	t.abortReason = ""
	t.mu.Unlock()

	logging.LogConnection(address, "connecting", zap.Bool("secure", secure))

	if err := ch.Open(ctx, &channelEvents{t: t, ch: ch}); err != nil {
		t.mu.Lock()
		if t.ch == ch {
			t.ch = nil
			t.state = StateDisconnected
		}
		t.mu.Unlock()
		logging.Warn("Failed to connect",
			zap.String("addr", address),
			zap.Error(err),
		)
		return newError(ErrTypeConnect, fmt.Sprintf("failed to connect to %s", address), err)
	}

	t.mu.Lock()
	if t.ch != ch {
		// Disconnected before Open returned. The channel is open now and
		// nobody else holds it.
		reason := t.abortReason
		t.mu.Unlock()
		if reason == "" {
			reason = "closed while opening"
		}
		if err := ch.Close(reason); err != nil {
			logging.Debug("Channel close returned an error", zap.Error(err))
		}
		logging.LogConnection(address, "aborted", zap.String("reason", reason))
		return newError(ErrTypeConnect, fmt.Sprintf("connection to %s closed while opening", address), nil)
	}
	t.state = StateConnected
	t.alive = true
	t.lost = false
	t.sessionID = uuid.NewString()
	stop := make(chan struct{})
	t.stopBeat = stop
	session := t.sessionID
	t.mu.Unlock()

	go t.heartbeat(stop)

	logging.LogConnection(address, "connected", zap.String("session", session))
	return nil
}

// Disconnect closes the channel gracefully with reason and fails every
// pending request. It is a no-op when not connected and always returns nil.
func (t *Transport) Disconnect(reason string) error {
	t.mu.Lock()
	ch := t.ch
	if ch == nil {
		t.mu.Unlock()
		return nil
	}
	if t.state == StateConnecting {
		t.abortReason = reason
	}
	t.stopHeartbeatLocked()
	t.mu.Unlock()

	if err := ch.Close(reason); err != nil {
		logging.Debug("Channel close returned an error", zap.Error(err))
	}
	t.handleClose(ch, reason)
	return nil
}

// Send transmits an envelope of the given kind and waits for its reply. It
// returns the ack payload, a remote error carrying the master's message, or
// a connection level error. Cancelling ctx abandons the request; a late
// reply is then ignored.
func (t *Transport) Send(ctx context.Context, kind Kind, payload any) (json.RawMessage, error) {
	t.mu.Lock()
	if t.state != StateConnected || t.ch == nil {
		t.mu.Unlock()
		return nil, newError(ErrTypeNotConnected, "no connection to the master", nil)
	}
	t.nextID++
	id := CorrelationID(t.nextID)
	ch := t.ch
	address := t.address
	done := t.pending.register(id)
	t.mu.Unlock()

	data, err := encodeRequest(id, kind, payload)
	if err != nil {
		t.pending.remove(id)
		return nil, newError(ErrTypeSendFailed, "failed to encode request", err)
	}

	logging.LogEnvelope(address, "sent", data)
	if err := ch.Send(data); err != nil {
		t.pending.remove(id)
		return nil, newError(ErrTypeSendFailed, fmt.Sprintf("failed to send request %s", id), err)
	}

	select {
	case res := <-done:
		return res.payload, res.err
	case <-ctx.Done():
		t.pending.remove(id)
		return nil, ctx.Err()
	}
}

// SendCommand sends a command envelope addressed to endpoint/command.
func (t *Transport) SendCommand(ctx context.Context, endpoint, command string, params any) (json.RawMessage, error) {
	return t.Send(ctx, KindCommand, Command{Endpoint: endpoint, Command: command, Params: params})
}

// RequestInfo sends an info envelope.
func (t *Transport) RequestInfo(ctx context.Context) (json.RawMessage, error) {
	return t.Send(ctx, KindInfo, nil)
}

// State returns the connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsConnected reports whether the channel is open.
func (t *Transport) IsConnected() bool {
	return t.State() == StateConnected
}

// PendingCount returns the number of requests waiting for a reply.
func (t *Transport) PendingCount() int {
	return t.pending.size()
}

// SessionID identifies the current connection in logs. It is empty before
// the first connect.
func (t *Transport) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Address returns the address of the last connect.
func (t *Transport) Address() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.address
}

func (t *Transport) stopHeartbeatLocked() {
	if t.stopBeat != nil {
		close(t.stopBeat)
		t.stopBeat = nil
	}
}

// handleClose releases ch and fails the pending requests. Only the first call
// for a given channel has an effect.
func (t *Transport) handleClose(ch channel.Channel, reason string) {
	t.mu.Lock()
	if t.ch != ch {
		t.mu.Unlock()
		return
	}
	t.ch = nil
	t.state = StateDisconnected
	t.stopHeartbeatLocked()
	lost := t.lost
	address := t.address
	t.mu.Unlock()

	errType := ErrTypeClosed
	if lost {
		errType = ErrTypeConnectionLost
	}
	failed := t.pending.failAll(newError(errType, reason, nil))

	logging.LogConnection(address, "disconnected",
		zap.String("reason", reason),
		zap.Int("failed_requests", failed),
	)
	t.observer.OnDisconnect(reason)
}

// dispatch handles one inbound message.
func (t *Transport) dispatch(ch channel.Channel, data []byte) {
	t.mu.Lock()
	current := t.ch == ch
	address := t.address
	t.mu.Unlock()
	if !current {
		return
	}

	logging.LogEnvelope(address, "received", data)

	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Warn("Dropping unparseable message",
			zap.String("addr", address),
			zap.Error(err),
		)
		return
	}

	switch {
	case msg.Pong:
		t.markAlive()
	case msg.Ping:
		t.markAlive()
		if err := ch.Send(pongMarker); err != nil {
			logging.Warn("Failed to answer ping", zap.Error(err))
		}
	case msg.ID == nil:
		logging.Debug("Dropping message without id", zap.String("addr", address))
	default:
		t.resolve(*msg.ID, msg)
	}
}

func (t *Transport) resolve(id CorrelationID, msg inbound) {
	var res result
	switch msg.Type {
	case KindAck:
		res.payload = msg.Payload
	case KindError:
		res.err = newError(ErrTypeRemote, remoteMessage(msg.Payload), nil)
	default:
		res.err = newError(ErrTypeParse, fmt.Sprintf("unexpected reply type %q", msg.Type), nil)
	}

	if !t.pending.complete(id, res) {
		logging.Debug("Unhandled task", zap.Stringer("id", id), zap.String("type", string(msg.Type)))
	}
}

func (t *Transport) markAlive() {
	t.mu.Lock()
	t.alive = true
	t.mu.Unlock()
}

func (t *Transport) heartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(t.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.heartbeatTick()
		}
	}
}

// heartbeatTick disconnects when no marker arrived since the previous ping,
// otherwise it sends the next ping.
func (t *Transport) heartbeatTick() {
	t.mu.Lock()
	if t.state != StateConnected || t.paused || t.ch == nil {
		t.mu.Unlock()
		return
	}
	if !t.alive {
		t.lost = true
		address := t.address
		t.mu.Unlock()
		logging.Warn("Heartbeat missed, dropping connection", zap.String("addr", address))
		_ = t.Disconnect(ReasonConnectionLost)
		return
	}
	t.alive = false
	ch := t.ch
	t.mu.Unlock()

	if err := ch.Send(pingMarker); err != nil {
		logging.Warn("Failed to send ping", zap.Error(err))
	}
}

// channelEvents forwards the events of one channel to its transport. Events
// from a channel that is no longer current are ignored.
type channelEvents struct {
	t  *Transport
	ch channel.Channel
}

func (e *channelEvents) OnMessage(data []byte) {
	e.t.dispatch(e.ch, data)
}

func (e *channelEvents) OnClose(reason string) {
	e.t.handleClose(e.ch, reason)
}

func (e *channelEvents) OnError(err error) {
	e.t.mu.Lock()
	current := e.t.ch == e.ch
	e.t.mu.Unlock()
	if !current {
		return
	}
	logging.Warn("Channel error", zap.Error(err))
	e.t.observer.OnError(err)
}
