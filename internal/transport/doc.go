// Package transport multiplexes request/response exchanges with a compact
// LIN master over a single duplex channel.
//
// Every outbound request is wrapped in a JSON envelope carrying a correlation
// id. The master answers with an envelope carrying the same id and either
// "ack" (success) or "error" (failure). Any number of requests may be in
// flight; replies may arrive in any order.
//
// # Envelopes
//
//	request:  {"id":"7","type":"command","payload":{"endpoint":"lin","command":"l_ifc_wake_up","params":{"pulse_time":200}}}
//	request:  {"id":"8","type":"info"}
//	reply:    {"id":"7","type":"ack","payload":{}}
//	reply:    {"id":"8","type":"error","payload":{"message":"Endpoint unknown"}}
//
// # Heartbeat
//
// While connected, a ticker sends {"__ping__":true} every heartbeat interval.
// A {"__pong__":true} (or a ping from the master, which is answered with a
// pong) marks the link alive. If a tick finds that nothing arrived since the
// previous ping, the transport disconnects with reason "connection lost" and
// every pending request fails with a connection lost error.
//
// # Device Mode
//
// The transport owns the device mode (none, normal, bootloader). EnterMode
// switches modes and returns a release function that must be called when the
// operation completes; the bootloader mode suspends the heartbeat because the
// master does not answer pings while flashing.
//
// # Errors
//
// All failures are *Error values; use IsNotConnected, IsSendFailed,
// IsRemote, IsConnectionLost and IsClosed to classify them.
package transport
