// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidType is returned by Decode for an identifier octet that is
	// not a known SMI type.
	ErrInvalidType = errors.New("invalid SNMP value type")

	// ErrTooBigExceeded means the agent kept answering tooBig even with a
	// single varbind per request.
	ErrTooBigExceeded = errors.New("tooBig persists at batch size 1")

	// ErrRejectedPdu is returned by Set when the request could not be built,
	// for example when values and OIDs do not line up.
	ErrRejectedPdu = errors.New("PDU rejected")

	ErrUnknownStrategy = errors.New("unknown SNMP strategy")
	ErrNoTrackers      = errors.New("no columns to walk")
)

// USM failures reported by the agent in a REPORT PDU.
var (
	ErrUnknownUserName = errors.New("wrong username")
	ErrWrongDigest     = errors.New("wrong authkey")
	ErrDecryption      = errors.New("decryption error")
	ErrUnknownContext  = errors.New("unknown context")
	ErrNotInTimeWindow = errors.New("time synchronization failed")
	ErrEngineDiscovery = errors.New("engine ID discovery failed")
)

var SNMPErrorNames = map[int]string{
	SNMP_ErrNoError:             "noError",
	SNMP_ErrTooBig:              "tooBig",
	SNMP_ErrNoSuchName:          "noSuchName",
	SNMP_ErrBadValue:            "badValue",
	SNMP_ErrReadOnly:            "readOnly",
	SNMP_ErrGenErr:              "genErr",
	SNMP_ErrNoAccess:            "noAccess",
	SNMP_ErrWrongType:           "wrongType",
	SNMP_ErrWrongLength:         "wrongLength",
	SNMP_ErrWrongEncoding:       "wrongEncoding",
	SNMP_ErrWrongValue:          "wrongValue",
	SNMP_ErrNoCreation:          "noCreation",
	SNMP_ErrInconsistentValue:   "inconsistentValue",
	SNMP_ErrResourceUnavailable: "resourceUnavailable",
	SNMP_ErrCommitFailed:        "commitFailed",
	SNMP_ErrUndoFailed:          "undoFailed",
	SNMP_ErrAuthorizationError:  "authorizationError",
	SNMP_ErrNotWritable:         "notWritable",
	SNMP_ErrInconsistentName:    "inconsistentName",
}

// ConversionError reports an accessor called on a Value of the wrong type.
type ConversionError struct {
	From   SMIType
	To     string
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot convert %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
}

// TransportError means no usable response arrived from the agent: the
// request could not be sent, or every attempt timed out.
type TransportError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("agent %s: no response after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PDUError carries a non-zero error-status from a response PDU.
type PDUError struct {
	Status int
	Index  int
	OID    OID
}

func (e *PDUError) Error() string {
	name, ok := SNMPErrorNames[e.Status]
	if !ok {
		name = fmt.Sprintf("status %d", e.Status)
	}
	if len(e.OID) > 0 {
		return fmt.Sprintf("SNMP error %s at index %d (%s)", name, e.Index, e.OID)
	}
	return fmt.Sprintf("SNMP error %s at index %d", name, e.Index)
}

// TooBig reports whether the agent refused the request as too large.
func (e *PDUError) TooBig() bool { return e.Status == SNMP_ErrTooBig }

// WalkError is returned when a walk ends before every column finished.
// Partial holds what was collected up to that point.
type WalkError struct {
	Endpoint string
	Err      error
	Partial  *WalkResult
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk of %s failed: %v", e.Endpoint, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

// wrongIDError is an internal signal from the parsers: the datagram belongs
// to another request and the reader should keep waiting.
type wrongIDError struct {
	code uint8
}

func (e wrongIDError) Error() string {
	if e.code == PARCE_ERR_WRONGMSGID {
		return "message ID mismatch"
	}
	return "request ID mismatch"
}
