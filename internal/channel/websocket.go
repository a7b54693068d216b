package channel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
)

// Path is the WebSocket endpoint served by the master.
const Path = "/ws/v1"

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed for the opening handshake
	handshakeTimeout = 10 * time.Second

	// Time allowed for the peer to acknowledge a close frame
	defaultCloseTimeout = 3 * time.Second

	// Close frame reasons are limited to 123 bytes by RFC 6455
	maxCloseReason = 123

	// Largest message accepted from the master. Bootloader replies are small;
	// outbound hex files are not limited by this.
	maxMessageSize = 1 << 20
)

// ErrNotOpen is returned by Send on a channel that is not open.
var ErrNotOpen = errors.New("channel is not open")

// URL returns the socket URL of a master at host.
func URL(host string, secure bool) string {
	u := url.URL{Scheme: "ws", Host: host, Path: Path}
	if secure {
		u.Scheme = "wss"
	}
	return u.String()
}

// Option configures a WebSocket.
type Option func(*WebSocket)

// WithTLSConfig sets the TLS configuration used for wss connections.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(w *WebSocket) {
		w.dialer.TLSClientConfig = cfg
	}
}

// WithCloseTimeout sets how long Close waits for the peer's acknowledgement.
func WithCloseTimeout(d time.Duration) Option {
	return func(w *WebSocket) {
		w.closeTimeout = d
	}
}

// WebSocket is a Channel backed by gorilla/websocket.
type WebSocket struct {
	url          string
	dialer       *websocket.Dialer
	closeTimeout time.Duration

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu          sync.Mutex
	conn        *websocket.Conn
	done        chan struct{}
	localReason string
	closing     bool
}

// NewWebSocket creates an unopened channel to the master at host.
func NewWebSocket(host string, secure bool, opts ...Option) *WebSocket {
	w := &WebSocket{
		url: URL(host, secure),
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
		closeTimeout: defaultCloseTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dial is a Dialer producing WebSocket channels with the given options.
func Dial(opts ...Option) Dialer {
	return func(host string, secure bool) Channel {
		return NewWebSocket(host, secure, opts...)
	}
}

// URL returns the URL this channel connects to.
func (w *WebSocket) URL() string {
	return w.url
}

// Open dials the master and starts the read loop.
func (w *WebSocket) Open(ctx context.Context, h Handler) error {
	w.mu.Lock()
	if w.conn != nil {
		w.mu.Unlock()
		return fmt.Errorf("channel to %s is already open", w.url)
	}
	w.mu.Unlock()

	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", w.url, err)
	}
	conn.SetReadLimit(maxMessageSize)

	done := make(chan struct{})
	w.mu.Lock()
	w.conn = conn
	w.done = done
	w.closing = false
	w.localReason = ""
	w.mu.Unlock()

	logging.LogConnection(w.url, "open")
	go w.readLoop(conn, done, h)
	return nil
}

func (w *WebSocket) readLoop(conn *websocket.Conn, done chan struct{}, h Handler) {
	reason := ""
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			reason = w.closeReason(err, h)
			break
		}
		if msgType != websocket.TextMessage {
			logging.Debug("Ignoring non-text message",
				zap.String("url", w.url),
				zap.Int("message_type", msgType),
			)
			continue
		}
		h.OnMessage(data)
	}

	_ = conn.Close()
	w.mu.Lock()
	if w.conn == conn {
		w.conn = nil
	}
	w.mu.Unlock()
	close(done)

	logging.LogConnection(w.url, "closed", zap.String("reason", reason))
	h.OnClose(reason)
}

// closeReason maps the error that ended the read loop to a close reason and
// reports unexpected failures through h.
func (w *WebSocket) closeReason(err error, h Handler) string {
	w.mu.Lock()
	closing, localReason := w.closing, w.localReason
	w.mu.Unlock()

	if closing {
		return localReason
	}

	// gorilla reports a dropped TCP connection as close code 1006.
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		if ce.Text != "" {
			return ce.Text
		}
		return fmt.Sprintf("closed by peer (code %d)", ce.Code)
	}

	h.OnError(err)
	return err.Error()
}

// truncateReason cuts reason to the close frame limit on a rune boundary;
// peers reject close frames carrying invalid UTF-8.
func truncateReason(reason string) string {
	if len(reason) <= maxCloseReason {
		return reason
	}
	n := maxCloseReason
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}

// Send writes data as one text message.
func (w *WebSocket) Send(data []byte) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Close sends a normal closure frame carrying reason and waits for the read
// loop to observe the peer's close. Closing a channel that is not open is a
// no-op.
func (w *WebSocket) Close(reason string) error {
	w.mu.Lock()
	conn, done := w.conn, w.done
	if conn == nil {
		w.mu.Unlock()
		return nil
	}
	w.closing = true
	w.localReason = reason
	w.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, truncateReason(reason))

	w.writeMu.Lock()
	err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	w.writeMu.Unlock()
	if err != nil {
		logging.Debug("Failed to send close frame",
			zap.String("url", w.url),
			zap.Error(err),
		)
	}

	select {
	case <-done:
	case <-time.After(w.closeTimeout):
		logging.Warn("Peer did not acknowledge close, dropping connection",
			zap.String("url", w.url),
		)
		_ = conn.Close()
		<-done
	}
	return nil
}
