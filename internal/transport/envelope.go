package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the type field of an envelope.
type Kind string

const (
	KindCommand Kind = "command"
	KindInfo    Kind = "info"
	KindAck     Kind = "ack"
	KindError   Kind = "error"
)

// CorrelationID pairs a reply with its request. It is encoded as a decimal
// string; replies carrying a number are accepted too.
type CorrelationID uint64

// MarshalJSON encodes the id as a JSON string.
func (id CorrelationID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(id), 10))), nil
}

// UnmarshalJSON accepts "12" or 12.
func (id *CorrelationID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid correlation id %s", data)
	}
	*id = CorrelationID(v)
	return nil
}

func (id CorrelationID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Command is the payload of a command envelope.
type Command struct {
	Endpoint string `json:"endpoint"`
	Command  string `json:"command"`
	Params   any    `json:"params,omitempty"`
}

// outbound is a request envelope.
type outbound struct {
	ID      CorrelationID `json:"id"`
	Type    Kind          `json:"type"`
	Payload any           `json:"payload,omitempty"`
}

// inbound covers every message the master sends: replies and heartbeat
// markers.
type inbound struct {
	ID      *CorrelationID  `json:"id"`
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Ping    bool            `json:"__ping__"`
	Pong    bool            `json:"__pong__"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Heartbeat markers.
var (
	pingMarker = []byte(`{"__ping__":true}`)
	pongMarker = []byte(`{"__pong__":true}`)
)

func encodeRequest(id CorrelationID, kind Kind, payload any) ([]byte, error) {
	return json.Marshal(outbound{ID: id, Type: kind, Payload: payload})
}

// remoteMessage extracts the message of an error payload. A payload without
// a message is reported as is.
func remoteMessage(payload json.RawMessage) string {
	var p errorPayload
	if err := json.Unmarshal(payload, &p); err == nil && p.Message != "" {
		return p.Message
	}
	if len(payload) == 0 {
		return "unknown error"
	}
	return string(payload)
}
