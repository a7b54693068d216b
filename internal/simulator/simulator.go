package simulator

import (
	"net/http"
	"net/netip"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/channel"
	"github.com/mcmlink/mcm/internal/logging"
	"github.com/mcmlink/mcm/internal/sysapi"
)

// Defaults reported by a simulator created without options.
const (
	DefaultModel           = "Melexis Compact Master LIN (simulated)"
	DefaultFirmwareVersion = "v2.1.0-sim"
	DefaultHostname        = "mcm-sim"

	// apiRevision is reported by info requests.
	apiRevision = 2
)

// BootloadRecord is what the simulator saw of the last bootloader command.
type BootloadRecord struct {
	Operation  string
	Memory     string
	HexFile    string
	Params     map[string]any
	ReceivedAt time.Time
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithModel sets the model string reported by info requests and GET /api/v1.
func WithModel(model string) Option {
	return func(s *Simulator) { s.model = model }
}

// WithFirmwareVersion sets the reported firmware version.
func WithFirmwareVersion(version string) Option {
	return func(s *Simulator) { s.firmware = version }
}

// WithSlaves puts nodes on the simulated bus.
func WithSlaves(slaves ...Slave) Option {
	return func(s *Simulator) {
		for _, sl := range slaves {
			s.slaves[sl.NAD] = sl.clone()
		}
	}
}

// WithNetwork sets the initial network settings.
func WithNetwork(cfg sysapi.NetworkConfig) Option {
	return func(s *Simulator) { s.network = cfg }
}

// Simulator is an http.Handler emulating the master's WebSocket and REST
// interfaces.
type Simulator struct {
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	started  time.Time

	mu       sync.Mutex
	model    string
	firmware string
	network  sysapi.NetworkConfig
	power    bool
	busOwner string // non-empty while a bootload holds the bus
	frames   map[uint8][]byte
	slaves   map[uint8]*Slave
	replies  map[uint8][]byte // responses waiting for ld_receive_message
	sessions map[*session]struct{}

	// knobs
	dropPongs     bool
	taskDelays    map[string]time.Duration
	bootloadFail  string
	bootloadDelay time.Duration
	lastBootload  *BootloadRecord

	// counters
	pings      int
	wakeUps    int
	reboots    int
	identifies int
}

// New creates a simulator with one LIN bus and no slaves unless configured.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		started:  time.Now(),
		model:    DefaultModel,
		firmware: DefaultFirmwareVersion,
		network: sysapi.NetworkConfig{
			SSID:     "mcm-lab",
			Hostname: DefaultHostname,
			MAC:      "24:0A:C4:00:00:01",
			LinkUp:   true,
			IP:       sysapi.IPv4FromAddr(netip.AddrFrom4([4]byte{192, 168, 4, 1})),
			Netmask:  sysapi.IPv4FromAddr(netip.AddrFrom4([4]byte{255, 255, 255, 0})),
			Gateway:  sysapi.IPv4FromAddr(netip.AddrFrom4([4]byte{192, 168, 4, 254})),
		},
		frames:     make(map[uint8][]byte),
		slaves:     make(map[uint8]*Slave),
		replies:    make(map[uint8][]byte),
		sessions:   make(map[*session]struct{}),
		taskDelays: make(map[string]time.Duration),
		upgrader: websocket.Upgrader{
			// The firmware accepts any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc(channel.Path, s.handleWebSocket)
	s.mux.HandleFunc(channel.Path+"/", s.handleWebSocket)
	s.mux.HandleFunc(sysapi.PathInfo, s.handleInfo)
	s.mux.HandleFunc(sysapi.PathSystem, s.handleNetwork)
	s.mux.HandleFunc(sysapi.PathWiFi, s.handleNetwork)
	s.mux.HandleFunc(sysapi.PathReboot, s.handleReboot)
	s.mux.HandleFunc(sysapi.PathIdentify, s.handleIdentify)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logging.Debug("HTTP request",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("user_agent", r.Header.Get("User-Agent")),
	)
	s.mux.ServeHTTP(w, r)
}

// Slaves returns the NADs of the nodes on the bus in ascending order.
func (s *Simulator) Slaves() []uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	nads := make([]uint8, 0, len(s.slaves))
	for nad := range s.slaves {
		nads = append(nads, nad)
	}
	sort.Slice(nads, func(i, j int) bool { return nads[i] < nads[j] })
	return nads
}

// SetFrame stores data that is returned for slave to master frames with id.
func (s *Simulator) SetFrame(id uint8, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[id] = append([]byte(nil), data...)
}

// Frame returns the last data published for frame id.
func (s *Simulator) Frame(id uint8) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.frames[id]
	return append([]byte(nil), data...), ok
}

// SetDropPongs makes the simulator ignore heartbeat pings.
func (s *Simulator) SetDropPongs(drop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropPongs = drop
}

// SetTaskDelay delays the reply to every command named command (any endpoint).
// A zero duration removes the delay.
func (s *Simulator) SetTaskDelay(command string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	command = strings.ToLower(command)
	if d <= 0 {
		delete(s.taskDelays, command)
		return
	}
	s.taskDelays[command] = d
}

// SetBootloadFailure makes bootloader commands fail with message. An empty
// message restores success.
func (s *Simulator) SetBootloadFailure(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bootloadFail = message
}

// SetBootloadDelay sets how long a bootloader command holds the bus.
func (s *Simulator) SetBootloadDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bootloadDelay = d
}

// SetLinkUp changes the reported WiFi link state.
func (s *Simulator) SetLinkUp(up bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.network.LinkUp = up
}

// LastBootload returns the last bootloader command received.
func (s *Simulator) LastBootload() (BootloadRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastBootload == nil {
		return BootloadRecord{}, false
	}
	return *s.lastBootload, true
}

// SlavePowerEnabled reports the state of the slave power switch.
func (s *Simulator) SlavePowerEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.power
}

// PingCount returns the number of heartbeat pings received.
func (s *Simulator) PingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pings
}

// WakeUpCount returns the number of wake up pulses sent on the bus.
func (s *Simulator) WakeUpCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wakeUps
}

// RebootCount returns the number of reboot requests.
func (s *Simulator) RebootCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reboots
}

// IdentifyCount returns the number of identify requests.
func (s *Simulator) IdentifyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identifies
}

// ActiveSessions returns the number of open WebSocket sessions.
func (s *Simulator) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CloseSessions closes every WebSocket session with a going away frame
// carrying reason.
func (s *Simulator) CloseSessions(reason string) {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.closeWith(websocket.CloseGoingAway, reason)
	}
}
