package lin

// NegativeResponseSID is the first byte of every negative response.
const NegativeResponseSID = 0x7F

// responseSIDOffset is added to a request SID to form the positive response SID.
const responseSIDOffset = 0x40

// ResponseSID returns the positive response service identifier for sid.
func ResponseSID(sid byte) byte {
	return byte((int(sid) + responseSIDOffset) & 0xFF)
}

// BuildDiagnosticRequest returns a new slice holding sid followed by params.
// params is never modified.
func BuildDiagnosticRequest(sid byte, params []byte) []byte {
	req := make([]byte, 0, len(params)+1)
	req = append(req, sid)
	return append(req, params...)
}

// ParseDiagnosticResponse interprets the response data of a request made
// with sid.
//
// Response layouts:
//
//	positive: [sid+0x40, data...]        -> data
//	negative: [0x7F, requested sid, nrc] -> *NegativeResponseError
//	other:    [x, ...]                   -> *UnexpectedResponseIDError
//
// The negative check is done first, so a 0x7F first byte is always reported
// as a negative response, even for a request whose positive SID would be 0x7F.
func ParseDiagnosticResponse(sid byte, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &MalformedResponseError{RequestedSID: sid, Reason: "empty response"}
	}

	if data[0] == NegativeResponseSID {
		if len(data) < 3 {
			return nil, &MalformedResponseError{
				RequestedSID: sid,
				Data:         append([]byte(nil), data...),
				Reason:       "negative response shorter than 3 bytes",
			}
		}
		return nil, &NegativeResponseError{RequestedSID: data[1], ErrorCode: data[2]}
	}

	if data[0] != ResponseSID(sid) {
		return nil, &UnexpectedResponseIDError{RequestedSID: sid, Got: data[0]}
	}

	out := make([]byte, len(data)-1)
	copy(out, data[1:])
	return out, nil
}
