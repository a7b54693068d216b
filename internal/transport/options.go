package transport

import (
	"time"

	"github.com/mcmlink/mcm/internal/channel"
)

// DefaultHeartbeatInterval is the ping period used when none is configured.
const DefaultHeartbeatInterval = 5 * time.Second

// Observer receives connection level events.
type Observer interface {
	// OnDisconnect is called once per connection when it closes, with the
	// close reason ("connection lost" after a heartbeat timeout).
	OnDisconnect(reason string)
	// OnError is called for channel errors.
	OnError(err error)
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are ignored.
type ObserverFuncs struct {
	Disconnect func(reason string)
	Error      func(err error)
}

func (o ObserverFuncs) OnDisconnect(reason string) {
	if o.Disconnect != nil {
		o.Disconnect(reason)
	}
}

func (o ObserverFuncs) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

// Option configures a Transport.
type Option func(*Transport)

// WithHeartbeatInterval sets the ping period. Non-positive values keep the
// default.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.heartbeatInterval = d
		}
	}
}

// WithObserver registers the connection event observer.
func WithObserver(o Observer) Option {
	return func(t *Transport) {
		t.observer = o
	}
}

// WithDialer replaces the channel factory. The default dials a WebSocket.
func WithDialer(d channel.Dialer) Option {
	return func(t *Transport) {
		if d != nil {
			t.dial = d
		}
	}
}
