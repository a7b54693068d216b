package lin

import (
	"context"
	"fmt"

	"github.com/mcmlink/mcm/internal/logging"
)

// DiagnosticParams are the parameters of the ld_* tasks.
type DiagnosticParams struct {
	NAD      uint8 `json:"nad"`
	Baudrate int   `json:"baudrate"`
	Payload  Bytes `json:"payload,omitempty"`
}

// SendDiagnostic sends [sid, params...] to the node with the given NAD and
// waits for its response. It returns the response data after the response
// SID, or a *NegativeResponseError / *UnexpectedResponseIDError.
func SendDiagnostic(ctx context.Context, t Tasker, nad uint8, baudrate int, sid byte, params []byte) ([]byte, error) {
	req := BuildDiagnosticRequest(sid, params)
	logging.LogRawBytes("Diagnostic request", req)

	raw, err := t.SendTask(ctx, Endpoint, CommandDiagnostic, DiagnosticParams{
		NAD:      nad,
		Baudrate: baudrate,
		Payload:  Bytes(req),
	})
	if err != nil {
		return nil, fmt.Errorf("diagnostic SID 0x%02X to NAD 0x%02X: %w", sid, nad, err)
	}

	data, err := resultData(raw)
	if err != nil {
		return nil, &MalformedResponseError{RequestedSID: sid, Reason: err.Error()}
	}
	logging.LogRawBytes("Diagnostic response", data)
	return ParseDiagnosticResponse(sid, data)
}

// SendMessage transmits [sid, params...] to the node without waiting for or
// interpreting a response.
func SendMessage(ctx context.Context, t Tasker, nad uint8, baudrate int, sid byte, params []byte) error {
	_, err := t.SendTask(ctx, Endpoint, CommandSendMessage, DiagnosticParams{
		NAD:      nad,
		Baudrate: baudrate,
		Payload:  Bytes(BuildDiagnosticRequest(sid, params)),
	})
	if err != nil {
		return fmt.Errorf("send message SID 0x%02X to NAD 0x%02X: %w", sid, nad, err)
	}
	return nil
}

// ReceiveMessage collects a pending response from the node and interprets it
// as the answer to a request made with sid.
func ReceiveMessage(ctx context.Context, t Tasker, nad uint8, baudrate int, sid byte) ([]byte, error) {
	raw, err := t.SendTask(ctx, Endpoint, CommandReceiveMessage, DiagnosticParams{
		NAD:      nad,
		Baudrate: baudrate,
	})
	if err != nil {
		return nil, fmt.Errorf("receive message from NAD 0x%02X: %w", nad, err)
	}
	data, err := resultData(raw)
	if err != nil {
		return nil, &MalformedResponseError{RequestedSID: sid, Reason: err.Error()}
	}
	return ParseDiagnosticResponse(sid, data)
}

// ReadByIDParams returns the parameter bytes of a read by identifier request:
// [identifier, supplier lo, supplier hi, function lo, function hi].
func ReadByIDParams(identifier uint8, supplierID, functionID uint16) []byte {
	return []byte{
		identifier,
		byte(supplierID & 0xFF), byte(supplierID >> 8),
		byte(functionID & 0xFF), byte(functionID >> 8),
	}
}

// ReadByID reads identifier from the node using the wildcard supplier and
// function ids.
func ReadByID(ctx context.Context, t Tasker, nad uint8, baudrate int, identifier uint8) ([]byte, error) {
	return ReadByIDFor(ctx, t, nad, baudrate, identifier, WildcardSupplierID, WildcardFunctionID)
}

// ReadByIDFor reads identifier from the node, addressing a specific supplier
// and function.
func ReadByIDFor(ctx context.Context, t Tasker, nad uint8, baudrate int, identifier uint8, supplierID, functionID uint16) ([]byte, error) {
	return SendDiagnostic(ctx, t, nad, baudrate, SIDReadByIdentifier, ReadByIDParams(identifier, supplierID, functionID))
}
