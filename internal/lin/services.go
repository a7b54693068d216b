package lin

import "fmt"

// Node configuration and identification services (LIN 2.x).
const (
	SIDAssignNAD             = 0xB0
	SIDAssignFrameID         = 0xB1
	SIDReadByIdentifier      = 0xB2
	SIDConditionalChangeNAD  = 0xB3
	SIDDataDump              = 0xB4
	SIDAssignNADViaSNPD      = 0xB5
	SIDSaveConfiguration     = 0xB6
	SIDAssignFrameIDRange    = 0xB7
	SIDReadDataByIdentifier  = 0x22
	SIDWriteDataByIdentifier = 0x2E
)

// Read by identifier identifiers.
const (
	IDProductIdentification = 0x00
	IDSerialNumber          = 0x01
)

// Wildcards accepted by every slave.
const (
	WildcardSupplierID = 0x7FFF
	WildcardFunctionID = 0xFFFF
	BroadcastNAD       = 0x7F
)

// Negative response codes.
const (
	NRCGeneralReject                = 0x10
	NRCServiceNotSupported          = 0x11
	NRCSubFunctionNotSupported      = 0x12
	NRCIncorrectMessageLength       = 0x13
	NRCBusyRepeatRequest            = 0x21
	NRCConditionsNotCorrect         = 0x22
	NRCRequestSequenceError         = 0x24
	NRCRequestOutOfRange            = 0x31
	NRCSecurityAccessDenied         = 0x33
	NRCInvalidKey                   = 0x35
	NRCGeneralProgrammingFailure    = 0x72
	NRCResponsePending              = 0x78
	NRCServiceNotSupportedInSession = 0x7F
)

var nrcNames = map[byte]string{
	NRCGeneralReject:                "generalReject",
	NRCServiceNotSupported:          "serviceNotSupported",
	NRCSubFunctionNotSupported:      "subFunctionNotSupported",
	NRCIncorrectMessageLength:       "incorrectMessageLengthOrInvalidFormat",
	NRCBusyRepeatRequest:            "busyRepeatRequest",
	NRCConditionsNotCorrect:         "conditionsNotCorrect",
	NRCRequestSequenceError:         "requestSequenceError",
	NRCRequestOutOfRange:            "requestOutOfRange",
	NRCSecurityAccessDenied:         "securityAccessDenied",
	NRCInvalidKey:                   "invalidKey",
	NRCGeneralProgrammingFailure:    "generalProgrammingFailure",
	NRCResponsePending:              "requestCorrectlyReceived-ResponsePending",
	NRCServiceNotSupportedInSession: "serviceNotSupportedInActiveSession",
}

// NRCName returns the name of a negative response code.
func NRCName(code byte) string {
	if name, ok := nrcNames[code]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02X)", code)
}
