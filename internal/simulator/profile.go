package simulator

import (
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcmlink/mcm/internal/sysapi"
)

// Profile describes a simulated bench: the master's identity, its network
// settings and the nodes on its bus.
//
//	model: Melexis Compact Master LIN
//	firmware_version: v2.1.0
//	network:
//	  hostname: mcm-bench
//	  ssid: lab
//	  ip: 192.168.4.1
//	  netmask: 255.255.255.0
//	  gateway: 192.168.4.254
//	slaves:
//	  - nad: 0x0A
//	    supplier_id: 0x0013
//	    function_id: 0x0042
//	    data:
//	      0xF190: [0x57, 0x30, 0x31]
//	frames:
//	  0x21: [0x01, 0x02]
type Profile struct {
	Model           string           `yaml:"model"`
	FirmwareVersion string           `yaml:"firmware_version"`
	Network         *NetworkProfile  `yaml:"network"`
	Slaves          []Slave          `yaml:"slaves"`
	Frames          map[uint8][]byte `yaml:"frames"`
}

// NetworkProfile holds network settings with addresses in dotted form.
type NetworkProfile struct {
	Hostname string `yaml:"hostname"`
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	MAC      string `yaml:"mac"`
	LinkDown bool   `yaml:"link_down"`
	IP       string `yaml:"ip"`
	Netmask  string `yaml:"netmask"`
	Gateway  string `yaml:"gateway"`
}

// LoadProfile reads a profile from a YAML file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and checks a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	seen := make(map[uint8]bool)
	for _, sl := range p.Slaves {
		if sl.NAD == 0 || sl.NAD >= 0x7E {
			return nil, fmt.Errorf("slave NAD 0x%02X is reserved", sl.NAD)
		}
		if seen[sl.NAD] {
			return nil, fmt.Errorf("duplicate slave NAD 0x%02X", sl.NAD)
		}
		seen[sl.NAD] = true
	}
	for id, data := range p.Frames {
		if id > 0x3F {
			return nil, fmt.Errorf("frame id 0x%02X out of range", id)
		}
		if len(data) == 0 || len(data) > 8 {
			return nil, fmt.Errorf("frame 0x%02X needs 1-8 bytes", id)
		}
	}
	if p.Network != nil {
		if _, err := p.Network.config(); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// Options converts the profile to simulator options.
func (p *Profile) Options() []Option {
	var opts []Option
	if p.Model != "" {
		opts = append(opts, WithModel(p.Model))
	}
	if p.FirmwareVersion != "" {
		opts = append(opts, WithFirmwareVersion(p.FirmwareVersion))
	}
	if p.Network != nil {
		if cfg, err := p.Network.config(); err == nil {
			opts = append(opts, WithNetwork(cfg))
		}
	}
	if len(p.Slaves) > 0 {
		opts = append(opts, WithSlaves(p.Slaves...))
	}
	if len(p.Frames) > 0 {
		frames := p.Frames
		opts = append(opts, func(s *Simulator) {
			for id, data := range frames {
				s.frames[id] = append([]byte(nil), data...)
			}
		})
	}
	return opts
}

func (n *NetworkProfile) config() (sysapi.NetworkConfig, error) {
	cfg := sysapi.NetworkConfig{
		Hostname: n.Hostname,
		SSID:     n.SSID,
		Password: n.Password,
		MAC:      n.MAC,
		LinkUp:   !n.LinkDown,
	}
	for _, f := range []struct {
		name string
		in   string
		out  *sysapi.IPv4
	}{
		{"ip", n.IP, &cfg.IP},
		{"netmask", n.Netmask, &cfg.Netmask},
		{"gateway", n.Gateway, &cfg.Gateway},
	} {
		if f.in == "" {
			continue
		}
		addr, err := netip.ParseAddr(f.in)
		if err != nil || !addr.Is4() {
			return sysapi.NetworkConfig{}, fmt.Errorf("network %s %q is not an IPv4 address", f.name, f.in)
		}
		*f.out = sysapi.IPv4FromAddr(addr)
	}
	return cfg, nil
}
