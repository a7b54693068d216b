package lin

import (
	"context"
	"encoding/binary"
	"fmt"
)

// ProductIdentification is the answer to read by identifier 0.
type ProductIdentification struct {
	SupplierID uint16
	FunctionID uint16
	Variant    uint8
}

func (p ProductIdentification) String() string {
	return fmt.Sprintf("supplier 0x%04X function 0x%04X variant 0x%02X", p.SupplierID, p.FunctionID, p.Variant)
}

// ParseProductIdentification decodes [sup lo, sup hi, fn lo, fn hi, variant].
func ParseProductIdentification(data []byte) (ProductIdentification, error) {
	if len(data) < 5 {
		return ProductIdentification{}, &MalformedResponseError{
			RequestedSID: SIDReadByIdentifier,
			Data:         append([]byte(nil), data...),
			Reason:       "product identification needs 5 bytes",
		}
	}
	return ProductIdentification{
		SupplierID: binary.LittleEndian.Uint16(data[0:2]),
		FunctionID: binary.LittleEndian.Uint16(data[2:4]),
		Variant:    data[4],
	}, nil
}

// ReadProductIdentification reads and decodes identifier 0 of a node.
func ReadProductIdentification(ctx context.Context, t Tasker, nad uint8, baudrate int) (ProductIdentification, error) {
	data, err := ReadByID(ctx, t, nad, baudrate, IDProductIdentification)
	if err != nil {
		return ProductIdentification{}, err
	}
	return ParseProductIdentification(data)
}
