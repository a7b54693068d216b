package mcm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/logging"
	"github.com/mcmlink/mcm/internal/transport"
)

// Operation is what the bootloader does with the image.
type Operation string

const (
	OperationProgram Operation = "program"
	OperationVerify  Operation = "verify"
)

// Memory is the slave memory targeted by a bootload.
type Memory string

const (
	MemoryFlash  Memory = "flash"
	MemoryNVRAM  Memory = "nvram"
	MemoryEEPROM Memory = "eeprom"
)

// ParseOperation accepts "program" or "verify" in any case.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(s)); op {
	case OperationProgram, OperationVerify:
		return op, nil
	}
	return "", fmt.Errorf("unknown bootloader operation %q (want program or verify)", s)
}

// ParseMemory accepts "flash", "nvram" or "eeprom" in any case.
func ParseMemory(s string) (Memory, error) {
	switch mem := Memory(strings.ToLower(s)); mem {
	case MemoryFlash, MemoryNVRAM, MemoryEEPROM:
		return mem, nil
	}
	return "", fmt.Errorf("unknown memory %q (want flash, nvram or eeprom)", s)
}

// BootloadRequest describes one bootloader run. HexFile is the Intel HEX image
// as text; the master parses it.
type BootloadRequest struct {
	Operation   Operation
	Memory      Memory
	HexFile     string
	One2Many    bool // program every slave on the bus at once
	ManualPower bool // the operator power cycles the slaves
	Bitrate     int
	FullDuplex  bool
	TxPin       int
	FlashKeys   []uint32
	Project     uint16 // project id for protected parts, 0 when unused
}

// Validate checks the request before anything is sent.
func (r *BootloadRequest) Validate() error {
	if _, err := ParseOperation(string(r.Operation)); err != nil {
		return err
	}
	if _, err := ParseMemory(string(r.Memory)); err != nil {
		return err
	}
	if strings.TrimSpace(r.HexFile) == "" {
		return fmt.Errorf("hex file is empty")
	}
	if r.Bitrate < 0 {
		return fmt.Errorf("invalid bitrate %d", r.Bitrate)
	}
	return nil
}

type bootloadParams struct {
	Memory      Memory   `json:"memory"`
	HexFile     string   `json:"hexfile"`
	One2Many    bool     `json:"one2many"`
	ManualPower bool     `json:"manpow"`
	Bitrate     int      `json:"bitrate"`
	FullDuplex  bool     `json:"fullduplex"`
	TxPin       int      `json:"txpin"`
	FlashKeys   []uint32 `json:"flashkeys,omitempty"`
	Project     uint16   `json:"project,omitempty"`
}

func (r *BootloadRequest) params() bootloadParams {
	return bootloadParams{
		Memory:      r.Memory,
		HexFile:     r.HexFile,
		One2Many:    r.One2Many,
		ManualPower: r.ManualPower,
		Bitrate:     r.Bitrate,
		FullDuplex:  r.FullDuplex,
		TxPin:       r.TxPin,
		FlashKeys:   r.FlashKeys,
		Project:     r.Project,
	}
}

// Bootload runs req on the master's bootloader. The transport is in
// bootloader mode, with the heartbeat suspended, until Bootload returns.
func (m *Master) Bootload(ctx context.Context, req BootloadRequest) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := m.t.EnterMode(transport.ModeBootloader)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	logging.Info("Bootload started",
		zap.String("operation", string(req.Operation)),
		zap.String("memory", string(req.Memory)),
		zap.Int("hexfile_bytes", len(req.HexFile)),
		zap.Bool("one2many", req.One2Many),
	)

	res, err := m.SendTask(ctx, EndpointBootloader, string(req.Operation), req.params())
	if err != nil {
		logging.Warn("Bootload failed",
			zap.String("operation", string(req.Operation)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("bootloader %s: %w", req.Operation, err)
	}

	logging.Info("Bootload finished",
		zap.String("operation", string(req.Operation)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}
