package channel

import "context"

// Handler receives the events of an open channel. Calls are made from the
// channel's read goroutine, one at a time.
type Handler interface {
	// OnMessage is called for every inbound text message.
	OnMessage(data []byte)
	// OnClose is called once when the channel is closed, locally or by the peer.
	OnClose(reason string)
	// OnError is called for read failures that are not a clean close.
	OnError(err error)
}

// Channel is a bidirectional, message oriented connection.
type Channel interface {
	// Open connects and starts delivering events to h. It returns once the
	// channel is open; an error means the channel never opened.
	Open(ctx context.Context, h Handler) error
	// Send writes one text message.
	Send(data []byte) error
	// Close performs a graceful close carrying reason and returns once the
	// peer acknowledged it or the close timeout expired.
	Close(reason string) error
}

// Dialer creates a channel to host. secure selects TLS.
type Dialer func(host string, secure bool) Channel

// HandlerFuncs adapts plain functions to a Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Message func(data []byte)
	Closed  func(reason string)
	Failed  func(err error)
}

func (h HandlerFuncs) OnMessage(data []byte) {
	if h.Message != nil {
		h.Message(data)
	}
}

func (h HandlerFuncs) OnClose(reason string) {
	if h.Closed != nil {
		h.Closed(reason)
	}
}

func (h HandlerFuncs) OnError(err error) {
	if h.Failed != nil {
		h.Failed(err)
	}
}
