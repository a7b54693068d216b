package simulator

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
	"github.com/mcmlink/mcm/internal/sysapi"
)

// maxRequestBody bounds PUT bodies like the firmware's receive buffer.
const maxRequestBody = 1024

// resetPowerOn is the reset reason the simulator reports.
const resetPowerOn = 1

func (s *Simulator) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	s.mu.Lock()
	info := sysapi.SystemInfo{
		FirmwareVersion: s.firmware,
		Model:           s.model,
		ResetReason:     resetPowerOn,
		UpTimeMicros:    time.Since(s.started).Microseconds(),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, info)
}

// handleNetwork serves both /api/v1/system and /api/v1/system/wifi; the
// firmware registers the same handler for the two paths.
func (s *Simulator) handleNetwork(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var update sysapi.NetworkUpdate
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&update); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if err := update.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		if update.Hostname != nil {
			s.network.Hostname = *update.Hostname
		}
		if update.SSID != nil {
			s.network.SSID = *update.SSID
		}
		if update.Password != nil {
			s.network.Password = *update.Password
		}
		s.mu.Unlock()

		logging.Info("Simulated network settings updated",
			zap.Bool("hostname", update.Hostname != nil),
			zap.Bool("ssid", update.SSID != nil),
			zap.Bool("password", update.Password != nil),
		)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
		return
	}

	s.mu.Lock()
	cfg := s.network
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, cfg)
}

// handleReboot answers and then drops every WebSocket session, which is what
// clients observe when the box restarts.
func (s *Simulator) handleReboot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	s.mu.Lock()
	s.reboots++
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
	go s.CloseSessions("rebooting")
}

func (s *Simulator) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	s.mu.Lock()
	s.identifies++
	s.mu.Unlock()

	logging.Info("Simulated identify LED blinking")
	w.WriteHeader(http.StatusNoContent)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}
