package mcm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcmlink/mcm/internal/sysapi"
)

// Endpoints and commands of the master's own tasks.
const (
	EndpointSystem     = "system"
	EndpointPower      = "power_out"
	EndpointBootloader = "bootloader"

	CommandWiFi         = "wifi"
	CommandPowerControl = "control"
	CommandPowerStatus  = "status"
)

type powerControl struct {
	SwitchEnable bool `json:"switch_enable"`
}

// EnableSlavePower switches on the supply of the slave nodes.
func (m *Master) EnableSlavePower(ctx context.Context) error {
	return m.setSlavePower(ctx, true)
}

// DisableSlavePower switches off the supply of the slave nodes.
func (m *Master) DisableSlavePower(ctx context.Context) error {
	return m.setSlavePower(ctx, false)
}

func (m *Master) setSlavePower(ctx context.Context, on bool) error {
	if _, err := m.SendTask(ctx, EndpointPower, CommandPowerControl, powerControl{SwitchEnable: on}); err != nil {
		return fmt.Errorf("slave power %s: %w", onOff(on), err)
	}
	return nil
}

// IsSlavePowerEnabled reports the state of the slave power switch.
func (m *Master) IsSlavePowerEnabled(ctx context.Context) (bool, error) {
	raw, err := m.SendTask(ctx, EndpointPower, CommandPowerStatus, nil)
	if err != nil {
		return false, err
	}
	var status struct {
		SwitchEnabled *bool `json:"switch_enabled"`
	}
	if err := json.Unmarshal(raw, &status); err != nil || status.SwitchEnabled == nil {
		return false, fmt.Errorf("unexpected power status reply %s", raw)
	}
	return *status.SwitchEnabled, nil
}

// WiFiStatus is the station link state reported over the task channel.
// Addresses are zero while the link is down.
type WiFiStatus struct {
	LinkUp  bool        `json:"link_up"`
	IP      sysapi.IPv4 `json:"ip"`
	Netmask sysapi.IPv4 `json:"netmask"`
	Gateway sysapi.IPv4 `json:"gateway"`
}

func (w WiFiStatus) String() string {
	if !w.LinkUp {
		return "link down"
	}
	return fmt.Sprintf("link up, ip %s netmask %s gateway %s", w.IP, w.Netmask, w.Gateway)
}

// WiFiStatus asks the master for its WiFi link state.
func (m *Master) WiFiStatus(ctx context.Context) (*WiFiStatus, error) {
	raw, err := m.SendTask(ctx, EndpointSystem, CommandWiFi, nil)
	if err != nil {
		return nil, err
	}
	var status WiFiStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to parse wifi reply: %w", err)
	}
	return &status, nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
