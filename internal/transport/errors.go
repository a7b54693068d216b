package transport

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a transport failure
type ErrorType int

const (
	// ErrTypeNotConnected indicates a request was made with no open channel
	ErrTypeNotConnected ErrorType = iota
	// ErrTypeSendFailed indicates the channel rejected the outbound write
	ErrTypeSendFailed
	// ErrTypeRemote indicates the master answered with an error envelope
	ErrTypeRemote
	// ErrTypeConnectionLost indicates the heartbeat detected a dead link
	ErrTypeConnectionLost
	// ErrTypeClosed indicates the channel closed while the request was pending
	ErrTypeClosed
	// ErrTypeConnect indicates the channel could not be opened
	ErrTypeConnect
	// ErrTypeParse indicates a reply could not be interpreted
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNotConnected:
		return "Not Connected"
	case ErrTypeSendFailed:
		return "Send Failed"
	case ErrTypeRemote:
		return "Remote Error"
	case ErrTypeConnectionLost:
		return "Connection Lost"
	case ErrTypeClosed:
		return "Connection Closed"
	case ErrTypeConnect:
		return "Connect Failed"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every transport operation that fails.
type Error struct {
	Type    ErrorType // Category of error
	Message string    // For ErrTypeRemote, the master's message verbatim
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, msg string, err error) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

// TypeOf returns the type of a transport error and whether err is one.
func TypeOf(err error) (ErrorType, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Type, true
	}
	return 0, false
}

func isType(err error, t ErrorType) bool {
	got, ok := TypeOf(err)
	return ok && got == t
}

// IsNotConnected checks if an error is a not connected error
func IsNotConnected(err error) bool { return isType(err, ErrTypeNotConnected) }

// IsSendFailed checks if an error is a failed write
func IsSendFailed(err error) bool { return isType(err, ErrTypeSendFailed) }

// IsRemote checks if an error was reported by the master
func IsRemote(err error) bool { return isType(err, ErrTypeRemote) }

// IsConnectionLost checks if an error was caused by a heartbeat timeout
func IsConnectionLost(err error) bool { return isType(err, ErrTypeConnectionLost) }

// IsClosed checks if an error was caused by the channel closing
func IsClosed(err error) bool { return isType(err, ErrTypeClosed) }

// IsConnectFailed checks if an error came from opening the channel
func IsConnectFailed(err error) bool { return isType(err, ErrTypeConnect) }

// RemoteMessage returns the master's message for a remote error.
func RemoteMessage(err error) (string, bool) {
	var te *Error
	if errors.As(err, &te) && te.Type == ErrTypeRemote {
		return te.Message, true
	}
	return "", false
}
