package sysapi

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"time"
)

// resetReasons maps the chip reset reason codes to descriptions.
var resetReasons = map[int]string{
	0:  "Reset reason can not be determined",
	1:  "Reset due to power-on event",
	2:  "Reset by external pin (not applicable for ESP32)",
	3:  "Software reset via esp_restart",
	4:  "Software reset due to exception/panic",
	5:  "Reset (software or hardware) due to interrupt watchdog",
	6:  "Reset due to task watchdog",
	7:  "Reset due to other watchdogs",
	8:  "Reset after exiting deep sleep mode",
	9:  "Brownout reset (software or hardware)",
	10: "Reset over SDIO",
	11: "Reset by USB peripheral",
	12: "Reset by JTAG",
}

// ResetReasonString describes a reset reason code.
func ResetReasonString(code int) string {
	if s, ok := resetReasons[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown reset reason (%d)", code)
}

// SystemInfo is the response of GET /api/v1.
type SystemInfo struct {
	FirmwareVersion string `json:"firmware_version"`
	Model           string `json:"model"`
	ResetReason     int    `json:"reset_reason"`
	UpTimeMicros    int64  `json:"up_time"`
}

// UpTime returns the time since the last reset.
func (s *SystemInfo) UpTime() time.Duration {
	return time.Duration(s.UpTimeMicros) * time.Microsecond
}

// ResetReasonText describes the reset reason.
func (s *SystemInfo) ResetReasonText() string {
	return ResetReasonString(s.ResetReason)
}

// IPv4 is an address reported by the master as a 32 bit number holding the
// octets in memory order (first octet in the low byte).
type IPv4 uint32

// IPv4FromAddr converts a netip address to the master's numeric form.
func IPv4FromAddr(addr netip.Addr) IPv4 {
	b := addr.As4()
	return IPv4(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}

// Addr returns the address as a netip.Addr.
func (ip IPv4) Addr() netip.Addr {
	return netip.AddrFrom4([4]byte{byte(ip), byte(ip >> 8), byte(ip >> 16), byte(ip >> 24)})
}

func (ip IPv4) String() string {
	return ip.Addr().String()
}

// UnmarshalJSON accepts the numeric form the firmware sends and dotted quads.
func (ip *IPv4) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 || n > 0xFFFFFFFF {
			return fmt.Errorf("ip address %v out of range", n)
		}
		*ip = IPv4(uint32(n))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid ip address %s", data)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return fmt.Errorf("invalid ip address %q", s)
	}
	*ip = IPv4FromAddr(addr)
	return nil
}

// NetworkConfig is the response of GET /api/v1/system/wifi. Address fields
// are only meaningful when LinkUp is true.
type NetworkConfig struct {
	SSID     string `json:"ssid,omitempty"`
	Password string `json:"password,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	MAC      string `json:"mac,omitempty"`
	LinkUp   bool   `json:"link_up"`
	IP       IPv4   `json:"ip,omitempty"`
	Netmask  IPv4   `json:"netmask,omitempty"`
	Gateway  IPv4   `json:"gateway,omitempty"`
}

// NetworkUpdate is the body of PUT /api/v1/system. Nil fields are left
// unchanged on the device.
type NetworkUpdate struct {
	Hostname *string `json:"hostname,omitempty"`
	SSID     *string `json:"ssid,omitempty"`
	Password *string `json:"password,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u *NetworkUpdate) IsEmpty() bool {
	return u.Hostname == nil && u.SSID == nil && u.Password == nil
}

// Validate checks field lengths against the device limits.
func (u *NetworkUpdate) Validate() error {
	if u.IsEmpty() {
		return NewValidationError("no network setting to update")
	}
	if u.Hostname != nil && (len(*u.Hostname) == 0 || len(*u.Hostname) > MaxHostnameLength) {
		return NewValidationError(fmt.Sprintf("hostname must be 1-%d characters", MaxHostnameLength))
	}
	if u.SSID != nil && (len(*u.SSID) == 0 || len(*u.SSID) > MaxSSIDLength) {
		return NewValidationError(fmt.Sprintf("SSID must be 1-%d characters", MaxSSIDLength))
	}
	if u.Password != nil && len(*u.Password) > MaxPasswordLength {
		return NewValidationError(fmt.Sprintf("password must be at most %d characters", MaxPasswordLength))
	}
	return nil
}

// Device limits for network settings.
const (
	MaxHostnameLength = 31
	MaxSSIDLength     = 32
	MaxPasswordLength = 64
)
