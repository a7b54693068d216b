package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// CurrentVersion is the registry file format version.
const CurrentVersion = 1

// Preference defaults.
const (
	DefaultHeartbeatIntervalMS = 5000
	DefaultBaudrate            = 19200
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                `yaml:"version"`
	Masters     map[string]*Master `yaml:"masters,omitempty"` // Keyed by user-chosen name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Master is a box the user has registered.
type Master struct {
	Hostname        string    `yaml:"hostname"`                   // IP address or host name
	Secure          bool      `yaml:"secure,omitempty"`           // Use wss/https
	Nickname        string    `yaml:"nickname,omitempty"`         // Free text shown in lists
	LastSeen        time.Time `yaml:"last_seen,omitempty"`        // Last successful connection
	Model           string    `yaml:"model,omitempty"`            // Reported at last connection
	FirmwareVersion string    `yaml:"firmware_version,omitempty"` // Reported at last connection
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultMaster       string `yaml:"default_master,omitempty"`
	HeartbeatIntervalMS int    `yaml:"heartbeat_interval_ms"`
	DefaultBaudrate     int    `yaml:"default_baudrate"`
	LogLevel            string `yaml:"log_level,omitempty"`
}

func defaultPreferences() *Preferences {
	return &Preferences{
		HeartbeatIntervalMS: DefaultHeartbeatIntervalMS,
		DefaultBaudrate:     DefaultBaudrate,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Masters:     make(map[string]*Master),
		Preferences: defaultPreferences(),
	}
}

// GetMaster retrieves a master by name.
// Returns nil if the master doesn't exist in the registry.
func (r *Registry) GetMaster(name string) *Master {
	return r.Masters[name]
}

// EnsureMaster ensures a master entry exists in the registry and returns it.
func (r *Registry) EnsureMaster(name string) *Master {
	if r.Masters == nil {
		r.Masters = make(map[string]*Master)
	}

	if m, exists := r.Masters[name]; exists {
		return m
	}

	m := &Master{}
	r.Masters[name] = m
	return m
}

// SetMaster registers or updates the address of a master.
func (r *Registry) SetMaster(name, hostname string, secure bool) *Master {
	m := r.EnsureMaster(name)
	m.Hostname = hostname
	m.Secure = secure
	return m
}

// RemoveMaster deletes a master. It reports whether the name existed. A
// removed default master is no longer the default.
func (r *Registry) RemoveMaster(name string) bool {
	if _, ok := r.Masters[name]; !ok {
		return false
	}
	delete(r.Masters, name)
	if r.Preferences != nil && r.Preferences.DefaultMaster == name {
		r.Preferences.DefaultMaster = ""
	}
	return true
}

// SetDefault makes name the default master.
func (r *Registry) SetDefault(name string) error {
	if _, ok := r.Masters[name]; !ok {
		return fmt.Errorf("unknown master %q", name)
	}
	r.ensurePreferences().DefaultMaster = name
	return nil
}

// Default returns the default master, if one is set and registered.
func (r *Registry) Default() (string, *Master, bool) {
	if r.Preferences == nil || r.Preferences.DefaultMaster == "" {
		return "", nil, false
	}
	name := r.Preferences.DefaultMaster
	m, ok := r.Masters[name]
	return name, m, ok
}

// UpdateMasterSeen records a successful connection.
func (r *Registry) UpdateMasterSeen(name, model, firmware string) {
	m := r.EnsureMaster(name)
	m.LastSeen = time.Now()
	m.Model = model
	m.FirmwareVersion = firmware
}

// Resolve maps a master name or a host to a host and its secure flag. An
// empty target selects the default master. Targets that are not registered
// names are returned as hosts, insecure.
func (r *Registry) Resolve(target string) (name, host string, secure bool, err error) {
	if target == "" {
		n, m, ok := r.Default()
		if !ok {
			return "", "", false, fmt.Errorf("no master given and no default master configured")
		}
		return n, m.Hostname, m.Secure, nil
	}
	if m, ok := r.Masters[target]; ok {
		return target, m.Hostname, m.Secure, nil
	}
	if strings.TrimSpace(target) != target {
		return "", "", false, fmt.Errorf("invalid host %q", target)
	}
	return "", target, false, nil
}

// Names returns the registered master names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Masters))
	for name := range r.Masters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ensurePreferences() *Preferences {
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	}
	return r.Preferences
}
