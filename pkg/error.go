package pkg

import (
	"errors"
	"fmt"
)

// USB host errors.
var (
	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrTimeout indicates a transfer timeout.
	ErrTimeout = errors.New("transfer timeout")

	// ErrNoDevice indicates the device is not present.
	ErrNoDevice = errors.New("device not present")

	// ErrNotFound indicates a requested entity (interface, device node) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccess indicates insufficient permissions to access the device.
	ErrAccess = errors.New("access denied")

	// ErrBusy indicates the resource is busy.
	ErrBusy = errors.New("resource busy")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidState indicates an invalid session state for the operation.
	ErrInvalidState = errors.New("invalid state")

	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")

	// ErrShortWrite indicates fewer bytes were written than requested.
	ErrShortWrite = errors.New("short write")

	// ErrNoMatchingDevice indicates discovery found no device to program.
	ErrNoMatchingDevice = errors.New("no matching device")
)

// =============================================================================
// Error Kinds
// =============================================================================

// Kind classifies an error by how the run must react to it.
type Kind uint8

// Error kinds.
const (
	KindUnknown    Kind = iota // Unclassified
	KindArgument               // Bad command line; no device access attempted
	KindDiscovery              // No matching device found (fatal)
	KindTransport              // USB subsystem or device access failure (fatal)
	KindProtocol               // Wrong aggregate write count on one device (recoverable)
	KindDescriptor             // Descriptor read failure during enumeration (recoverable)
)

// String returns a string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindArgument:
		return "argument"
	case KindDiscovery:
		return "discovery"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindDescriptor:
		return "descriptor"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind terminate the run.
func (k Kind) Fatal() bool {
	switch k {
	case KindProtocol, KindDescriptor:
		return false
	default:
		return true
	}
}

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError returns an error of the given kind wrapping err.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op == "":
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	default:
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// =============================================================================
// Transport Error Codes
// =============================================================================

// USBError is a transport status code. The numeric values and names follow
// libusb so that diagnostics read the same regardless of backend.
type USBError int

// Transport status codes.
const (
	USBSuccess          USBError = 0
	USBErrorIO          USBError = -1
	USBErrorInvalid     USBError = -2
	USBErrorAccess      USBError = -3
	USBErrorNoDevice    USBError = -4
	USBErrorNotFound    USBError = -5
	USBErrorBusy        USBError = -6
	USBErrorTimeout     USBError = -7
	USBErrorOverflow    USBError = -8
	USBErrorPipe        USBError = -9
	USBErrorInterrupted USBError = -10
	USBErrorNoMem       USBError = -11
	USBErrorNotSupport  USBError = -12
	USBErrorOther       USBError = -99
)

// Name returns the symbolic name of the code.
func (e USBError) Name() string {
	switch e {
	case USBSuccess:
		return "LIBUSB_SUCCESS"
	case USBErrorIO:
		return "LIBUSB_ERROR_IO"
	case USBErrorInvalid:
		return "LIBUSB_ERROR_INVALID_PARAM"
	case USBErrorAccess:
		return "LIBUSB_ERROR_ACCESS"
	case USBErrorNoDevice:
		return "LIBUSB_ERROR_NO_DEVICE"
	case USBErrorNotFound:
		return "LIBUSB_ERROR_NOT_FOUND"
	case USBErrorBusy:
		return "LIBUSB_ERROR_BUSY"
	case USBErrorTimeout:
		return "LIBUSB_ERROR_TIMEOUT"
	case USBErrorOverflow:
		return "LIBUSB_ERROR_OVERFLOW"
	case USBErrorPipe:
		return "LIBUSB_ERROR_PIPE"
	case USBErrorInterrupted:
		return "LIBUSB_ERROR_INTERRUPTED"
	case USBErrorNoMem:
		return "LIBUSB_ERROR_NO_MEM"
	case USBErrorNotSupport:
		return "LIBUSB_ERROR_NOT_SUPPORTED"
	default:
		return "LIBUSB_ERROR_OTHER"
	}
}

// Description returns a human-readable description of the code.
func (e USBError) Description() string {
	switch e {
	case USBSuccess:
		return "Success"
	case USBErrorIO:
		return "Input/Output Error"
	case USBErrorInvalid:
		return "Invalid parameter"
	case USBErrorAccess:
		return "Access denied (insufficient permissions)"
	case USBErrorNoDevice:
		return "No such device (it may have been disconnected)"
	case USBErrorNotFound:
		return "Entity not found"
	case USBErrorBusy:
		return "Resource busy"
	case USBErrorTimeout:
		return "Operation timed out"
	case USBErrorOverflow:
		return "Overflow"
	case USBErrorPipe:
		return "Pipe error"
	case USBErrorInterrupted:
		return "System call interrupted (perhaps due to signal)"
	case USBErrorNoMem:
		return "Insufficient memory"
	case USBErrorNotSupport:
		return "Operation not supported or unimplemented on this platform"
	default:
		return "Other error"
	}
}

// Error implements the error interface.
func (e USBError) Error() string {
	return e.Name() + " - " + e.Description()
}

// Is maps transport codes onto the package sentinels.
func (e USBError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e == USBErrorTimeout
	case ErrNoDevice:
		return e == USBErrorNoDevice
	case ErrStall:
		return e == USBErrorPipe
	case ErrBusy:
		return e == USBErrorBusy
	case ErrAccess:
		return e == USBErrorAccess
	case ErrNotFound:
		return e == USBErrorNotFound
	case ErrNotSupported:
		return e == USBErrorNotSupport
	case ErrInvalidParameter:
		return e == USBErrorInvalid
	}
	return false
}

// TransportError pairs a transport code with the backend error it was
// derived from (an errno, a gousb.Error, ...).
type TransportError struct {
	Code USBError
	Err  error
}

// NewTransportError returns a TransportError for code wrapping cause.
func NewTransportError(code USBError, cause error) *TransportError {
	return &TransportError{Code: code, Err: cause}
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Code.Error()
	}
	return fmt.Sprintf("%s (%v)", e.Code.Error(), e.Err)
}

// Unwrap returns both the code and the backend cause so errors.Is can
// match either the package sentinels or the backend value.
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}
	return []error{e.Code, e.Err}
}

// TransportCode extracts the transport code from err's chain.
func TransportCode(err error) (USBError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Code, true
	}
	var code USBError
	if errors.As(err, &code) {
		return code, true
	}
	return USBErrorOther, false
}
