package simulator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time the peer gets to answer a close frame before the socket is dropped
	closeGrace = time.Second
)

// request is any message a client sends on the socket.
type request struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload *commandPayload `json:"payload"`
	Ping    bool            `json:"__ping__"`
}

type commandPayload struct {
	Endpoint *string        `json:"endpoint"`
	Command  *string        `json:"command"`
	Params   json.RawMessage `json:"params"`
}

type reply struct {
	ID      json.RawMessage `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload any             `json:"payload"`
}

type session struct {
	sim    *Simulator
	conn   *websocket.Conn
	id     string
	remote string

	writeMu sync.Mutex
	tasks   sync.WaitGroup
}

func (s *Simulator) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	sess := &session{sim: s, conn: conn, id: uuid.NewString(), remote: r.RemoteAddr}
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	logging.LogConnection(sess.remote, "websocket_opened", zap.String("session_id", sess.id))
	sess.serve()

	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
	logging.LogConnection(sess.remote, "websocket_closed", zap.String("session_id", sess.id))
}

// serve reads requests until the socket closes. Commands run concurrently so
// that a slow task does not hold back the replies to later ones.
func (c *session) serve() {
	defer func() {
		c.tasks.Wait()
		_ = c.conn.Close()
	}()

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if !errors.As(err, &ce) {
				logging.Debug("WebSocket read ended",
					zap.String("remote_addr", c.remote),
					zap.Error(err),
				)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		logging.LogEnvelope(c.remote, "received", data)

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			c.send(reply{Type: "error", Payload: result{"message": MsgCorruptedRequest}})
			continue
		}

		switch {
		case req.Ping:
			c.sim.mu.Lock()
			c.sim.pings++
			drop := c.sim.dropPongs
			c.sim.mu.Unlock()
			if !drop {
				c.sendRaw([]byte(`{"__pong__":true}`))
			}
		case strings.EqualFold(req.Type, "info"):
			c.send(reply{ID: req.ID, Type: "ack", Payload: c.sim.info()})
		case strings.EqualFold(req.Type, "command") && req.Payload != nil:
			c.tasks.Add(1)
			go func() {
				defer c.tasks.Done()
				c.send(c.sim.command(req.ID, req.Payload))
			}()
		default:
			c.send(reply{ID: req.ID, Type: "error", Payload: result{"message": MsgCorruptedRequest}})
		}
	}
}

// command builds the reply to a command request.
func (s *Simulator) command(id json.RawMessage, p *commandPayload) reply {
	if p.Endpoint == nil || p.Command == nil {
		return reply{ID: id, Type: "error", Payload: result{"message": MsgProtocolUnknown}}
	}

	res, err := s.runCommand(*p.Endpoint, *p.Command, p.Params)
	if err != nil {
		return reply{ID: id, Type: "error", Payload: result{"message": err.Error()}}
	}
	return reply{ID: id, Type: "ack", Payload: res}
}

func (s *Simulator) info() result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return result{
		"api_rev":          apiRevision,
		"model":            s.model,
		"firmware_version": s.firmware,
	}
}

func (c *session) send(r reply) {
	data, err := json.Marshal(r)
	if err != nil {
		logging.Error("Failed to encode reply", zap.Error(err))
		return
	}
	c.sendRaw(data)
}

func (c *session) sendRaw(data []byte) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Debug("Failed to write reply",
			zap.String("remote_addr", c.remote),
			zap.Error(err),
		)
		return
	}
	logging.LogEnvelope(c.remote, "sent", data)
}

// closeWith sends a close frame and drops the socket if the peer does not
// answer in time.
func (c *session) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		_ = c.conn.Close()
		return
	}
	time.AfterFunc(closeGrace, func() { _ = c.conn.Close() })
}
