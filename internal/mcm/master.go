package mcm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
	"github.com/mcmlink/mcm/internal/sysapi"
	"github.com/mcmlink/mcm/internal/transport"
)

// ErrNotConnected is returned by operations that need a known master when
// Connect has not succeeded.
var ErrNotConnected = errors.New("not connected to a master")

// IsNotConnected reports whether err means no master is connected, at this
// level or in the transport.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected) || transport.IsNotConnected(err)
}

// DeviceInfo is the reply to an info request.
type DeviceInfo struct {
	APIRevision     int    `json:"api_rev"`
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmware_version"`
}

// Master is a connection to one Compact Master LIN box.
type Master struct {
	t *transport.Transport

	mu     sync.Mutex
	host   string
	secure bool
	sys    *sysapi.Client
	newSys func(host string, secure bool) *sysapi.Client
}

// New creates a disconnected Master. The options configure the underlying
// transport.
func New(opts ...transport.Option) *Master {
	return &Master{
		t:      transport.New(opts...),
		newSys: sysapi.NewClient,
	}
}

// Transport returns the underlying transport.
func (m *Master) Transport() *transport.Transport {
	return m.t
}

// Connect opens the task channel to host and binds the system API client to
// the same host. secure selects wss/https.
func (m *Master) Connect(ctx context.Context, host string, secure bool) error {
	if err := m.t.Connect(ctx, host, secure); err != nil {
		return err
	}

	m.mu.Lock()
	if m.sys == nil || m.host != host || m.secure != secure {
		m.sys = m.newSys(host, secure)
	}
	m.host, m.secure = host, secure
	m.mu.Unlock()
	return nil
}

// Disconnect closes the task channel. Pending tasks fail.
func (m *Master) Disconnect(reason string) error {
	return m.t.Disconnect(reason)
}

// IsConnected reports whether the task channel is open.
func (m *Master) IsConnected() bool {
	return m.t.IsConnected()
}

// Host returns the host of the last successful Connect.
func (m *Master) Host() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.host
}

// System returns the REST client bound to the connected master.
func (m *Master) System() (*sysapi.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sys == nil {
		return nil, ErrNotConnected
	}
	return m.sys, nil
}

// SendTask runs command on endpoint and returns the raw result.
func (m *Master) SendTask(ctx context.Context, endpoint, command string, params any) (json.RawMessage, error) {
	return m.t.SendCommand(ctx, endpoint, command, params)
}

// Info requests the device information.
func (m *Master) Info(ctx context.Context) (*DeviceInfo, error) {
	raw, err := m.t.RequestInfo(ctx)
	if err != nil {
		return nil, err
	}
	var info DeviceInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to parse info reply: %w", err)
	}
	logging.Debug("Device info",
		zap.Int("api_rev", info.APIRevision),
		zap.String("model", info.Model),
		zap.String("firmware_version", info.FirmwareVersion),
	)
	return &info, nil
}

// GetVersion returns the firmware version of the master.
func (m *Master) GetVersion(ctx context.Context) (string, error) {
	info, err := m.Info(ctx)
	if err != nil {
		return "", err
	}
	return info.FirmwareVersion, nil
}

// GetDeviceType returns the model name of the master.
func (m *Master) GetDeviceType(ctx context.Context) (string, error) {
	info, err := m.Info(ctx)
	if err != nil {
		return "", err
	}
	return info.Model, nil
}

// Identify blinks the master's identification LED. The task channel has no
// identify command; the request goes through the system API.
func (m *Master) Identify(ctx context.Context) error {
	sys, err := m.System()
	if err != nil {
		return err
	}
	return sys.Identify(ctx)
}
