// Package config manages the user configuration of the mcm tools.
//
// The configuration is a YAML file listing the masters the user works with,
// under a short name, plus preferences such as the default master and the
// heartbeat interval. The file follows OS-specific conventions for storage
// location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/mcm/config.yaml or $HOME/.config/mcm/config.yaml
//   - macOS: $HOME/.config/mcm/config.yaml
//   - Windows: %LOCALAPPDATA%\mcm\config.yaml
//
// # Security
//
// WiFi passwords are never stored. set-network prompts for them.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.SetMaster("bench", "192.168.4.1", false)
//	if err := registry.SetDefault("bench"); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
