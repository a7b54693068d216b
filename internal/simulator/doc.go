// Package simulator emulates a Compact Master LIN box on the network.
//
// The simulator serves the same two surfaces as the firmware:
//
//   - the WebSocket task channel at /ws/v1 (info requests, commands for the
//     system, lin, bootloader and power_out endpoints, heartbeat markers)
//   - the REST system API under /api/v1 (device information, network
//     settings, reboot and identify)
//
// Slave nodes on the simulated LIN bus are keyed by NAD and answer node
// configuration requests (read by identifier) and data identifier reads and
// writes. Unsupported services get a negative response, like a real node.
//
// # Usage
//
//	sim := simulator.New(simulator.WithSlaves(simulator.Slave{NAD: 0x0A, SupplierID: 0x0013}))
//	srv := httptest.NewServer(sim)
//
// or as a standalone process through the Server type, which adds optional TLS
// and graceful shutdown:
//
//	mcm-sim serve --port 8080 --profile bench.yaml
//
// # Test Knobs
//
// Tests can make the device misbehave: drop heartbeat pongs, delay the reply
// to a given command, fail the next bootloader run with a firmware message,
// or hold the bus during a bootload so that concurrent LIN tasks are refused.
package simulator
