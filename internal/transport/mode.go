package transport

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
)

// Mode is the exclusive operating mode of the master.
type Mode int

const (
	// ModeNone means no special mode is active.
	ModeNone Mode = iota
	// ModeNormal is the regular operating mode of the connection. Tasks do
	// not require it and no Master operation enters it; a caller may enter
	// it to record regular use, and a bootload replaces it. The heartbeat
	// keeps running.
	ModeNormal
	// ModeBootloader is active while the master programs a slave. The
	// heartbeat is suspended in this mode.
	ModeBootloader
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeNormal:
		return "normal"
	case ModeBootloader:
		return "bootloader"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// EnterMode makes m the active mode and returns a function that returns the
// transport to ModeNone. An active mode is exited first. Entering
// ModeBootloader pauses the heartbeat until release.
//
// release is safe to call more than once. Once another EnterMode has taken
// over, an older release does nothing.
func (t *Transport) EnterMode(m Mode) (release func(), err error) {
	if m == ModeNone {
		return nil, fmt.Errorf("cannot enter mode %s", m)
	}

	t.mu.Lock()
	previous := t.mode
	t.modeGen++
	gen := t.modeGen
	t.mode = m
	t.paused = m == ModeBootloader
	t.mu.Unlock()

	if previous != ModeNone {
		logging.Info("Exiting active device mode",
			zap.String("mode", previous.String()),
			zap.String("next", m.String()),
		)
	}
	logging.Info("Device mode entered", zap.String("mode", m.String()))

	released := false
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if released || t.modeGen != gen {
			released = true
			return
		}
		released = true
		t.mode = ModeNone
		t.paused = false
		// The master stays silent while busy; do not count the time spent in
		// the mode as a missed heartbeat.
		t.alive = true
		logging.Info("Device mode released", zap.String("mode", m.String()))
	}, nil
}

// Mode returns the active device mode.
func (t *Transport) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// HeartbeatPaused reports whether heartbeat ticks are currently suspended.
func (t *Transport) HeartbeatPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}
