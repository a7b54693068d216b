package sysapi

import (
	"fmt"
	"strings"
	"time"
)

// Summary returns a one-line summary of the device information
func (s *SystemInfo) Summary() string {
	return fmt.Sprintf("%s (FW: %s, up %s)", s.Model, s.FirmwareVersion, FormatUpTime(s.UpTime()))
}

// FormatDetailed returns the device information as aligned lines
func (s *SystemInfo) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("=== Device Information ===\n")
	b.WriteString(fmt.Sprintf("Model:        %s\n", s.Model))
	b.WriteString(fmt.Sprintf("Firmware:     %s\n", s.FirmwareVersion))
	b.WriteString(fmt.Sprintf("Up Time:      %s\n", FormatUpTime(s.UpTime())))
	b.WriteString(fmt.Sprintf("Reset Reason: %s (%d)\n", s.ResetReasonText(), s.ResetReason))

	return b.String()
}

// FormatDetailed returns the network settings as aligned lines. The WiFi
// password is masked.
func (n *NetworkConfig) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("=== Network Configuration ===\n")
	b.WriteString(fmt.Sprintf("Hostname:    %s\n", orNone(n.Hostname)))
	b.WriteString(fmt.Sprintf("SSID:        %s\n", orNone(n.SSID)))
	b.WriteString(fmt.Sprintf("Password:    %s\n", maskPassword(n.Password)))
	b.WriteString(fmt.Sprintf("MAC Address: %s\n", orNone(n.MAC)))
	if n.LinkUp {
		b.WriteString("Link:        UP\n")
		b.WriteString(fmt.Sprintf("IP Address:  %s\n", n.IP))
		b.WriteString(fmt.Sprintf("Netmask:     %s\n", n.Netmask))
		b.WriteString(fmt.Sprintf("Gateway:     %s\n", n.Gateway))
	} else {
		b.WriteString("Link:        DOWN\n")
	}

	return b.String()
}

// FormatCompact returns a single line for lists
func (n *NetworkConfig) FormatCompact() string {
	if !n.LinkUp {
		return fmt.Sprintf("%s  link down  (SSID %s)", orNone(n.Hostname), orNone(n.SSID))
	}
	return fmt.Sprintf("%s  %s/%d via %s  (SSID %s)", orNone(n.Hostname), n.IP, prefixLength(n.Netmask), n.Gateway, orNone(n.SSID))
}

// FormatUpTime renders a duration as days/hours/minutes/seconds
func FormatUpTime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, d)
	}
	return d.String()
}

func prefixLength(mask IPv4) int {
	bits := mask.Addr().As4()
	n := 0
	for _, b := range bits {
		for i := 7; i >= 0; i-- {
			if b&(1<<uint(i)) == 0 {
				return n
			}
			n++
		}
	}
	return n
}

func maskPassword(p string) string {
	if p == "" {
		return "(none)"
	}
	return strings.Repeat("*", len(p))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
