// Package channel provides the duplex message channel used to talk to a
// compact LIN master.
//
// A Channel carries UTF-8 text messages in both directions and reports
// inbound messages, errors and closure to a Handler. The transport package
// only depends on the Channel interface; WebSocket is the implementation used
// against real hardware and against the simulator.
//
// # Endpoint
//
// The master serves its socket at /ws/v1:
//
//	ws://<host>/ws/v1   (plain)
//	wss://<host>/ws/v1  (TLS)
//
// # Closing
//
// Close sends a close frame carrying a reason and waits until the peer
// acknowledges it (or a timeout expires). OnClose is delivered exactly once
// per opened channel, whether the close was local, remote or caused by an
// error.
package channel
