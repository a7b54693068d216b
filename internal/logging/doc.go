// Package logging provides structured logging for the mcm client, the CLI and
// the device simulator.
//
// The package wraps a single zap logger behind package level functions so that
// the transport, the LIN helpers and the commands can log without passing a
// logger around.
//
// # Log Levels
//
//   - Debug: envelopes on the wire, heartbeat traffic, hex dumps of bus frames
//   - Info: connection lifecycle, device mode changes
//   - Warn: dropped or unparseable messages, lost heartbeats
//   - Error: failures that abort an operation
//
// # Silent by Default
//
// CLI commands stay quiet unless MCM_LOG_LEVEL is set (or --log-level is
// passed). With no level the logger is a no-op.
//
// # File Output
//
// When MCM_LOG_FILE is set, or InitializeWithFile is used, output goes to a
// size-rotated file instead of stdout:
//
//	MCM_LOG_LEVEL=debug MCM_LOG_FILE=/tmp/mcm.log mcmctl info --host 192.168.4.1
//
// # Specialized Logging
//
//	logging.LogConnection(addr, "connected")
//	logging.LogEnvelope(addr, "sent", payload)
//	logging.LogBusFrame("m2s", 0x3C, data)
//
// All functions are safe for concurrent use.
package logging
