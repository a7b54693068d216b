package simulator

import (
	"encoding/binary"

	"github.com/mcmlink/mcm/internal/lin"
)

// Slave is a node on the simulated LIN bus.
type Slave struct {
	NAD          uint8             `yaml:"nad"`
	SupplierID   uint16            `yaml:"supplier_id"`
	FunctionID   uint16            `yaml:"function_id"`
	Variant      uint8             `yaml:"variant"`
	SerialNumber uint32            `yaml:"serial_number"`
	Data         map[uint16][]byte `yaml:"data"` // data identifiers served by 0x22
}

func (s Slave) clone() *Slave {
	c := s
	c.Data = make(map[uint16][]byte, len(s.Data))
	for id, data := range s.Data {
		c.Data[id] = append([]byte(nil), data...)
	}
	return &c
}

// matches reports whether a read by identifier addressed to supplier and
// function selects this node.
func (s *Slave) matches(supplier, function uint16) bool {
	if supplier != lin.WildcardSupplierID && supplier != s.SupplierID {
		return false
	}
	return function == lin.WildcardFunctionID || function == s.FunctionID
}

// respond returns the node's answer to a diagnostic request, or nil when the
// node stays silent.
func (s *Slave) respond(req []byte) []byte {
	if len(req) == 0 {
		return nil
	}
	sid := req[0]

	switch sid {
	case lin.SIDReadByIdentifier:
		return s.readByIdentifier(req)
	case lin.SIDReadDataByIdentifier:
		if len(req) < 3 {
			return negative(sid, lin.NRCIncorrectMessageLength)
		}
		data, ok := s.Data[binary.BigEndian.Uint16(req[1:3])]
		if !ok {
			return negative(sid, lin.NRCRequestOutOfRange)
		}
		return append([]byte{lin.ResponseSID(sid), req[1], req[2]}, data...)
	case lin.SIDWriteDataByIdentifier:
		if len(req) < 4 {
			return negative(sid, lin.NRCIncorrectMessageLength)
		}
		if s.Data == nil {
			s.Data = make(map[uint16][]byte)
		}
		s.Data[binary.BigEndian.Uint16(req[1:3])] = append([]byte(nil), req[3:]...)
		return []byte{lin.ResponseSID(sid), req[1], req[2]}
	case lin.SIDSaveConfiguration:
		return []byte{lin.ResponseSID(sid)}
	default:
		return negative(sid, lin.NRCServiceNotSupported)
	}
}

func (s *Slave) readByIdentifier(req []byte) []byte {
	if len(req) < 6 {
		return negative(lin.SIDReadByIdentifier, lin.NRCIncorrectMessageLength)
	}
	supplier := binary.LittleEndian.Uint16(req[2:4])
	function := binary.LittleEndian.Uint16(req[4:6])
	if !s.matches(supplier, function) {
		return nil
	}

	rsid := lin.ResponseSID(lin.SIDReadByIdentifier)
	switch req[1] {
	case lin.IDProductIdentification:
		out := []byte{rsid, 0, 0, 0, 0, s.Variant}
		binary.LittleEndian.PutUint16(out[1:3], s.SupplierID)
		binary.LittleEndian.PutUint16(out[3:5], s.FunctionID)
		return out
	case lin.IDSerialNumber:
		out := []byte{rsid, 0, 0, 0, 0}
		binary.LittleEndian.PutUint32(out[1:], s.SerialNumber)
		return out
	default:
		return negative(lin.SIDReadByIdentifier, lin.NRCSubFunctionNotSupported)
	}
}

func negative(sid, code byte) []byte {
	return []byte{lin.NegativeResponseSID, sid, code}
}
