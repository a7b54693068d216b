// Package mcm is the client API of a Compact Master LIN box.
//
// A Master owns one transport.Transport to the box's WebSocket task channel
// and a sysapi.Client for its REST system API, both bound to the same host.
// Master satisfies lin.Tasker, so the bus helpers of package lin run through
// it:
//
//	m := mcm.New()
//	if err := m.Connect(ctx, "192.168.4.1", false); err != nil {
//		return err
//	}
//	defer m.Disconnect("done")
//
//	if err := m.EnableSlavePower(ctx); err != nil {
//		return err
//	}
//	id, err := lin.ReadProductIdentification(ctx, m, 0x0A, lin.Baudrate19200)
//
// # Bootloader
//
// Bootload runs a program or verify operation on the box's bootloader. The
// transport is switched to bootloader mode for the duration of the call, which
// suspends the heartbeat while the box is busy flashing. The mode is released
// on every exit path: success, remote error, lost connection or context
// cancellation.
package mcm
