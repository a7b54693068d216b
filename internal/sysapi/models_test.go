package sysapi

import (
	"encoding/json"
	"net/netip"
	"strings"
	"testing"
	"time"
)

func TestResetReasonString(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Reset reason can not be determined"},
		{3, "Software reset via esp_restart"},
		{9, "Brownout reset (software or hardware)"},
		{12, "Reset by JTAG"},
		{42, "Unknown reset reason (42)"},
	}
	for _, tt := range tests {
		if got := ResetReasonString(tt.code); got != tt.want {
			t.Errorf("ResetReasonString(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestIPv4RoundTrip(t *testing.T) {
	addr := netip.MustParseAddr("10.0.1.20")
	ip := IPv4FromAddr(addr)
	if ip.Addr() != addr {
		t.Errorf("Addr() = %s, want %s", ip.Addr(), addr)
	}
	// first octet in the low byte
	if uint32(ip)&0xFF != 10 {
		t.Errorf("low byte = %d, want 10", uint32(ip)&0xFF)
	}
}

func TestIPv4UnmarshalJSON(t *testing.T) {
	var cfg struct {
		A IPv4 `json:"a"`
		B IPv4 `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":17082560,"b":"192.168.4.1"}`), &cfg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if cfg.A != cfg.B {
		t.Errorf("numeric %s != dotted %s", cfg.A, cfg.B)
	}

	var ip IPv4
	for _, bad := range []string{`"not-an-ip"`, `"::1"`, `-1`, `true`} {
		if err := json.Unmarshal([]byte(bad), &ip); err == nil {
			t.Errorf("Unmarshal(%s) expected error", bad)
		}
	}
}

func TestNetworkConfigFormat(t *testing.T) {
	cfg := NetworkConfig{
		SSID:     "lab",
		Password: "secret",
		Hostname: "mcm-lab",
		LinkUp:   true,
		IP:       IPv4FromAddr(netip.MustParseAddr("192.168.4.1")),
		Netmask:  IPv4FromAddr(netip.MustParseAddr("255.255.255.0")),
		Gateway:  IPv4FromAddr(netip.MustParseAddr("192.168.4.254")),
	}

	detailed := cfg.FormatDetailed()
	if strings.Contains(detailed, "secret") {
		t.Error("FormatDetailed() leaks the password")
	}
	for _, want := range []string{"mcm-lab", "192.168.4.1", "UP", "******"} {
		if !strings.Contains(detailed, want) {
			t.Errorf("FormatDetailed() missing %q:\n%s", want, detailed)
		}
	}

	if got := cfg.FormatCompact(); got != "mcm-lab  192.168.4.1/24 via 192.168.4.254  (SSID lab)" {
		t.Errorf("FormatCompact() = %q", got)
	}

	cfg.LinkUp = false
	if !strings.Contains(cfg.FormatCompact(), "link down") {
		t.Errorf("FormatCompact() = %q", cfg.FormatCompact())
	}
}

func TestFormatUpTime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{90 * time.Second, "1m30s"},
		{26*time.Hour + 3*time.Minute, "1d 2h3m0s"},
		{1500 * time.Millisecond, "1s"},
	}
	for _, tt := range tests {
		if got := FormatUpTime(tt.in); got != tt.want {
			t.Errorf("FormatUpTime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
