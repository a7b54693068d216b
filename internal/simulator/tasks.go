package simulator

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mcmlink/mcm/internal/lin"
	"github.com/mcmlink/mcm/internal/logging"
)

// Messages the firmware puts in error replies.
const (
	MsgEndpointUnknown  = "Endpoint unknown"
	MsgCommandUnknown   = "Command unknown"
	MsgProtocolUnknown  = "Protocol unknown"
	MsgCorruptedRequest = "Corrupted request"
	MsgLINFailed        = "LIN Failed"
	MsgInterfaceBusy    = "Interface is not available at the moment"
)

// taskFailure is a command that was understood but failed. Its text goes in
// the message field of the error reply.
type taskFailure string

func (f taskFailure) Error() string { return string(f) }

// result is the payload of an ack reply.
type result map[string]any

// runCommand executes one command and returns the ack payload or a failure.
func (s *Simulator) runCommand(endpoint, command string, params json.RawMessage) (result, error) {
	command = strings.ToLower(command)

	s.mu.Lock()
	delay := s.taskDelays[command]
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	switch strings.ToLower(endpoint) {
	case "system":
		return s.systemTask(command)
	case lin.Endpoint:
		return s.linTask(command, params)
	case "bootloader":
		return s.bootloaderTask(command, params)
	case "power_out":
		return s.powerTask(command, params)
	default:
		return nil, taskFailure(MsgEndpointUnknown)
	}
}

func (s *Simulator) systemTask(command string) (result, error) {
	if command != "wifi" {
		return nil, taskFailure(MsgCommandUnknown)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.network.LinkUp {
		return result{"link_up": false}, nil
	}
	return result{
		"link_up": true,
		"ip":      uint32(s.network.IP),
		"netmask": uint32(s.network.Netmask),
		"gateway": uint32(s.network.Gateway),
	}, nil
}

func (s *Simulator) linTask(command string, params json.RawMessage) (result, error) {
	switch command {
	case lin.CommandWakeUp, lin.CommandMessageOnBus, lin.CommandDiagnostic,
		lin.CommandSendMessage, lin.CommandReceiveMessage:
	default:
		return nil, taskFailure(MsgCommandUnknown)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busOwner != "" {
		return nil, taskFailure(MsgInterfaceBusy)
	}

	switch command {
	case lin.CommandWakeUp:
		s.wakeUps++
		return result{}, nil
	case lin.CommandMessageOnBus:
		return s.frameLocked(params)
	case lin.CommandDiagnostic:
		return s.diagnosticLocked(params, true)
	case lin.CommandSendMessage:
		return s.diagnosticLocked(params, false)
	default:
		return s.receiveLocked(params)
	}
}

type frameRequest struct {
	DataLength  *int       `json:"datalength"`
	M2S         *bool      `json:"m2s"`
	Baudrate    *int       `json:"baudrate"`
	EnhancedCRC *bool      `json:"enhanced_crc"`
	FrameID     *uint8     `json:"frameid"`
	Payload     *lin.Bytes `json:"payload"`
}

func (s *Simulator) frameLocked(params json.RawMessage) (result, error) {
	var req frameRequest
	if err := json.Unmarshal(params, &req); err != nil ||
		req.DataLength == nil || req.M2S == nil || req.Baudrate == nil ||
		req.EnhancedCRC == nil || req.FrameID == nil {
		return nil, taskFailure(MsgCorruptedRequest)
	}
	length, id := *req.DataLength, *req.FrameID
	if length < 1 || length > lin.MaxFrameLength {
		return nil, taskFailure(MsgCorruptedRequest)
	}

	if *req.M2S {
		if req.Payload == nil || len(*req.Payload) != length {
			return nil, taskFailure(MsgCorruptedRequest)
		}
		s.frames[id] = append([]byte(nil), (*req.Payload)...)
		logging.LogBusFrame("m2s", id, *req.Payload)
		return result{}, nil
	}

	stored, ok := s.frames[id]
	if !ok {
		// nobody answered the header
		return nil, taskFailure(MsgLINFailed)
	}
	data := make(lin.Bytes, length)
	copy(data, stored)
	logging.LogBusFrame("s2m", id, data)
	return result{"data": data}, nil
}

// diagnosticLocked delivers a request to the addressed node. With wait the
// response is returned directly, otherwise it is kept for a later
// ld_receive_message.
func (s *Simulator) diagnosticLocked(params json.RawMessage, wait bool) (result, error) {
	var req lin.DiagnosticParams
	if err := json.Unmarshal(params, &req); err != nil || len(req.Payload) == 0 {
		return nil, taskFailure(MsgCorruptedRequest)
	}

	slave := s.slaveLocked(req.NAD)
	if slave == nil {
		return nil, taskFailure(MsgLINFailed)
	}
	resp := slave.respond(req.Payload)
	logging.Debug("Simulated diagnostic exchange",
		zap.Uint8("nad", req.NAD),
		zap.Stringer("request", req.Payload),
		zap.Stringer("response", lin.Bytes(resp)),
	)

	if !wait {
		if resp != nil {
			s.replies[slave.NAD] = resp
		}
		return result{}, nil
	}
	if resp == nil {
		return nil, taskFailure(MsgLINFailed)
	}
	return result{"data": lin.Bytes(resp)}, nil
}

func (s *Simulator) receiveLocked(params json.RawMessage) (result, error) {
	var req lin.DiagnosticParams
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, taskFailure(MsgCorruptedRequest)
	}
	nad := req.NAD
	if slave := s.slaveLocked(nad); slave != nil {
		nad = slave.NAD
	}
	resp, ok := s.replies[nad]
	if !ok {
		return nil, taskFailure(MsgLINFailed)
	}
	delete(s.replies, nad)
	return result{"data": lin.Bytes(resp)}, nil
}

// slaveLocked finds the node for nad. The broadcast NAD selects the node with
// the lowest NAD.
func (s *Simulator) slaveLocked(nad uint8) *Slave {
	if nad != lin.BroadcastNAD {
		return s.slaves[nad]
	}
	var found *Slave
	for _, sl := range s.slaves {
		if found == nil || sl.NAD < found.NAD {
			found = sl
		}
	}
	return found
}

func (s *Simulator) bootloaderTask(command string, params json.RawMessage) (result, error) {
	if command != "program" && command != "verify" {
		return nil, taskFailure(MsgCommandUnknown)
	}

	var fields map[string]any
	if err := json.Unmarshal(params, &fields); err != nil {
		return nil, taskFailure(MsgCorruptedRequest)
	}
	hexfile, _ := fields["hexfile"].(string)
	memory, _ := fields["memory"].(string)
	switch strings.ToLower(memory) {
	case "flash", "nvram", "eeprom":
	default:
		return nil, taskFailure(MsgCorruptedRequest)
	}
	if hexfile == "" {
		return nil, taskFailure(MsgCorruptedRequest)
	}

	s.mu.Lock()
	if s.busOwner != "" {
		s.mu.Unlock()
		return nil, taskFailure(MsgInterfaceBusy)
	}
	s.busOwner = "bootloader"
	delay := s.bootloadDelay
	s.mu.Unlock()

	logging.Info("Simulated bootloader started",
		zap.String("operation", command),
		zap.String("memory", memory),
		zap.Int("hexfile_bytes", len(hexfile)),
	)
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busOwner = ""
	s.lastBootload = &BootloadRecord{
		Operation:  command,
		Memory:     memory,
		HexFile:    hexfile,
		Params:     fields,
		ReceivedAt: time.Now(),
	}
	if s.bootloadFail != "" {
		return nil, taskFailure(s.bootloadFail)
	}
	return result{}, nil
}

func (s *Simulator) powerTask(command string, params json.RawMessage) (result, error) {
	switch command {
	case "control":
		var req struct {
			SwitchEnable *bool `json:"switch_enable"`
		}
		if err := json.Unmarshal(params, &req); err != nil || req.SwitchEnable == nil {
			return nil, taskFailure(MsgCorruptedRequest)
		}
		s.mu.Lock()
		s.power = *req.SwitchEnable
		s.mu.Unlock()
		logging.Info("Simulated slave power switched", zap.Bool("enabled", *req.SwitchEnable))
		return result{}, nil
	case "status":
		s.mu.Lock()
		defer s.mu.Unlock()
		return result{"switch_enabled": s.power}, nil
	default:
		return nil, taskFailure(MsgCommandUnknown)
	}
}
