package lin

import (
	"errors"
	"fmt"
)

// NegativeResponseError is returned when a slave answers with a negative
// response (first byte 0x7F).
type NegativeResponseError struct {
	RequestedSID byte // SID echoed by the slave
	ErrorCode    byte // negative response code
}

func (e *NegativeResponseError) Error() string {
	return fmt.Sprintf("error 0x%02x (%s) was reported by the device for SID 0x%02x",
		e.ErrorCode, NRCName(e.ErrorCode), e.RequestedSID)
}

// Name returns the negative response code name.
func (e *NegativeResponseError) Name() string {
	return NRCName(e.ErrorCode)
}

// UnexpectedResponseIDError is returned when the first response byte is
// neither 0x7F nor the positive response SID of the request.
type UnexpectedResponseIDError struct {
	RequestedSID byte
	Got          byte
}

func (e *UnexpectedResponseIDError) Error() string {
	return fmt.Sprintf("an incorrect RSID was received (0x%02x, expected 0x%02x)",
		e.Got, ResponseSID(e.RequestedSID))
}

// MalformedResponseError is returned when a response is too short to classify
// or its result does not have the expected shape.
type MalformedResponseError struct {
	RequestedSID byte
	Data         []byte
	Reason       string
}

func (e *MalformedResponseError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("malformed response for SID 0x%02x: %s [% X]", e.RequestedSID, e.Reason, e.Data)
	}
	return fmt.Sprintf("malformed response for SID 0x%02x: %s", e.RequestedSID, e.Reason)
}

// IsNegativeResponse reports whether err is a negative response, optionally
// with a specific code. Pass a negative code to match any code.
func IsNegativeResponse(err error, code int) bool {
	var nrc *NegativeResponseError
	if !errors.As(err, &nrc) {
		return false
	}
	return code < 0 || int(nrc.ErrorCode) == code
}

// IsUnexpectedResponseID reports whether err is an unexpected response SID.
func IsUnexpectedResponseID(err error) bool {
	var e *UnexpectedResponseIDError
	return errors.As(err, &e)
}
