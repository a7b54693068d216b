package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// parseHexBytes accepts "01 02 FF", "01:02:ff", "0102FF" and "0x01,0x02".
func parseHexBytes(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", ",", "", "0x", "", "0X", "").Replace(s)
	if clean == "" {
		return []byte{}, nil
	}
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex bytes %q: %w", s, err)
	}
	return b, nil
}

// parseUint parses decimal or 0x prefixed hex values up to bits wide.
func parseUint(s string, bits int, what string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return v, nil
}

func parseUint8(s, what string) (uint8, error) {
	v, err := parseUint(s, 8, what)
	return uint8(v), err
}

func parseFlashKeys(keys []string) ([]uint32, error) {
	out := make([]uint32, 0, len(keys))
	for _, k := range keys {
		v, err := parseUint(k, 32, "flash key")
		if err != nil {
			return nil, err
		}
		out = append(out, uint32(v))
	}
	return out, nil
}
