// Package sysapi provides an HTTP client for the system REST API of a compact
// LIN master.
//
// The LIN and bootloader functions of the master are only reachable over its
// WebSocket; device housekeeping (information, network settings, reboot,
// identification) goes through this REST API.
//
// # Endpoints
//
//	GET  /api/v1                  device information
//	GET  /api/v1/system/wifi      network settings and link state
//	PUT  /api/v1/system           update hostname, SSID, password
//	PUT  /api/v1/system/reboot    reboot (204)
//	PUT  /api/v1/system/identify  blink the identification LED (204)
//
// # Usage Example
//
//	client := sysapi.NewClient("192.168.4.1", true)
//	info, err := client.GetInfo(ctx)
//	if err != nil {
//	    fmt.Println(sysapi.GetShortErrorMessage(err))
//	    return err
//	}
//	fmt.Print(info.FormatDetailed())
//
// # Retries
//
// GET requests are retried with exponential backoff when the error is
// retryable (timeouts, refused connections, 5xx). PUT requests change device
// state and are never retried.
package sysapi
