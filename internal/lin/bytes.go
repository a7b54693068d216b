package lin

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bytes is a byte slice that is encoded as a JSON array of numbers.
//
// encoding/json encodes []byte as base64, which the master does not accept.
// Payloads and results on the wire look like [178, 1, 255, 127].
type Bytes []byte

// MarshalJSON encodes b as an array of numbers. A nil slice encodes as [].
func (b Bytes) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	sb.Grow(len(b)*4 + 2)
	sb.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", v)
	}
	sb.WriteByte(']')
	return []byte(sb.String()), nil
}

// UnmarshalJSON decodes an array of numbers in the range 0..255.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("byte array: %w", err)
	}
	out := make(Bytes, len(values))
	for i, v := range values {
		if v < 0 || v > 0xFF {
			return fmt.Errorf("byte array: value %d at index %d out of range", v, i)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// String renders the bytes as space separated hex, e.g. "B2 01 FF".
func (b Bytes) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}
