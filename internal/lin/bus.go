package lin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcmlink/mcm/internal/logging"
)

// Tasker sends one endpoint/command task to a master and returns the ack
// payload. *mcm.Master implements it.
type Tasker interface {
	SendTask(ctx context.Context, endpoint, command string, params any) (json.RawMessage, error)
}

// Endpoint and commands understood by the master's LIN handler.
const (
	Endpoint = "lin"

	CommandWakeUp           = "l_ifc_wake_up"
	CommandMessageOnBus     = "handle_message_on_bus"
	CommandDiagnostic       = "ld_diagnostic"
	CommandSendMessage      = "ld_send_message"
	CommandReceiveMessage   = "ld_receive_message"
	DefaultWakeUpPulseMicro = 200
)

// Common LIN baudrates.
const (
	Baudrate9600  = 9600
	Baudrate10417 = 10417
	Baudrate19200 = 19200
)

// MaxFrameLength is the largest LIN frame data field.
const MaxFrameLength = 8

type wakeUpParams struct {
	PulseTime int `json:"pulse_time"`
}

// FrameParams are the parameters of a handle_message_on_bus task.
type FrameParams struct {
	DataLength  int   `json:"datalength"`
	M2S         bool  `json:"m2s"`
	Baudrate    int   `json:"baudrate"`
	EnhancedCRC bool  `json:"enhanced_crc"`
	FrameID     uint8 `json:"frameid"`
	Payload     Bytes `json:"payload,omitempty"`
}

// dataResult is the result shape of every task that returns bus data.
type dataResult struct {
	Data *Bytes `json:"data"`
}

// WakeUp sends a wake up pulse of the default length on the bus.
func WakeUp(ctx context.Context, t Tasker) error {
	return WakeUpWithPulse(ctx, t, DefaultWakeUpPulseMicro)
}

// WakeUpWithPulse sends a wake up pulse of pulseTime microseconds.
func WakeUpWithPulse(ctx context.Context, t Tasker, pulseTime int) error {
	_, err := t.SendTask(ctx, Endpoint, CommandWakeUp, wakeUpParams{PulseTime: pulseTime})
	if err != nil {
		return fmt.Errorf("wake up: %w", err)
	}
	return nil
}

// SendRawFrame performs a handle_message_on_bus task and returns the raw
// result. For master to slave frames the payload is sent and its length is
// the data length. For slave to master frames length bytes are requested and
// payload is ignored.
func SendRawFrame(ctx context.Context, t Tasker, p FrameParams) (json.RawMessage, error) {
	if p.M2S {
		p.DataLength = len(p.Payload)
	} else {
		p.Payload = nil
	}
	if p.DataLength < 1 || p.DataLength > MaxFrameLength {
		return nil, fmt.Errorf("frame 0x%02X: data length %d out of range 1..%d", p.FrameID, p.DataLength, MaxFrameLength)
	}
	if p.FrameID > 0x3F {
		return nil, fmt.Errorf("frame id 0x%02X out of range 0x00..0x3F", p.FrameID)
	}
	return t.SendTask(ctx, Endpoint, CommandMessageOnBus, p)
}

// MasterToSlave publishes payload in frame frameID.
func MasterToSlave(ctx context.Context, t Tasker, baudrate int, enhancedCRC bool, frameID uint8, payload []byte) error {
	logging.LogBusFrame("m2s", frameID, payload)
	_, err := SendRawFrame(ctx, t, FrameParams{
		M2S:         true,
		Baudrate:    baudrate,
		EnhancedCRC: enhancedCRC,
		FrameID:     frameID,
		Payload:     Bytes(payload),
	})
	if err != nil {
		return fmt.Errorf("master to slave frame 0x%02X: %w", frameID, err)
	}
	return nil
}

// SlaveToMaster requests length bytes from the slave publishing frameID.
func SlaveToMaster(ctx context.Context, t Tasker, baudrate int, enhancedCRC bool, frameID uint8, length int) ([]byte, error) {
	raw, err := SendRawFrame(ctx, t, FrameParams{
		DataLength:  length,
		M2S:         false,
		Baudrate:    baudrate,
		EnhancedCRC: enhancedCRC,
		FrameID:     frameID,
	})
	if err != nil {
		return nil, fmt.Errorf("slave to master frame 0x%02X: %w", frameID, err)
	}
	data, err := resultData(raw)
	if err != nil {
		return nil, fmt.Errorf("slave to master frame 0x%02X: %w", frameID, err)
	}
	logging.LogBusFrame("s2m", frameID, data)
	return data, nil
}

// resultData extracts the "data" array from a task result.
func resultData(raw json.RawMessage) ([]byte, error) {
	var res dataResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	if res.Data == nil {
		return nil, fmt.Errorf("result has no data field")
	}
	return []byte(*res.Data), nil
}
