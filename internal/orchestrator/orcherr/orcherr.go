// Package orcherr defines the orchestrator's typed error taxonomy.
package orcherr

import "fmt"

// Code classifies an orchestrator error the way a client or a log line
// needs to dispatch on it, without string-matching messages.
type Code int

const (
	CodeUnknown Code = iota
	CodeNotFound
	CodeAlreadyExists
	CodeInvalidState
	CodeBackendUnavailable
	CodeNegotiationFailed
	CodeTimeout
	CodePermissionDenied
	CodeCapacityExceeded

	// The remaining codes are the error taxonomy named verbatim in §7.
	CodeRoomNotFound
	CodeUserNotFound
	CodeMediaNotFound
	CodeMediaInvalidType
	CodeMediaInvalidOperation
	CodeMediaNoAvailableCodec
	CodeMediaServerRequestTimeout
	CodeMediaServerGenericError
	CodeConnectionError
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeAlreadyExists:
		return "ALREADY_EXISTS"
	case CodeInvalidState:
		return "INVALID_STATE"
	case CodeBackendUnavailable:
		return "BACKEND_UNAVAILABLE"
	case CodeNegotiationFailed:
		return "NEGOTIATION_FAILED"
	case CodeTimeout:
		return "TIMEOUT"
	case CodePermissionDenied:
		return "PERMISSION_DENIED"
	case CodeCapacityExceeded:
		return "CAPACITY_EXCEEDED"
	case CodeRoomNotFound:
		return "ROOM_NOT_FOUND"
	case CodeUserNotFound:
		return "USER_NOT_FOUND"
	case CodeMediaNotFound:
		return "MEDIA_NOT_FOUND"
	case CodeMediaInvalidType:
		return "MEDIA_INVALID_TYPE"
	case CodeMediaInvalidOperation:
		return "MEDIA_INVALID_OPERATION"
	case CodeMediaNoAvailableCodec:
		return "MEDIA_NO_AVAILABLE_CODEC"
	case CodeMediaServerRequestTimeout:
		return "MEDIA_SERVER_REQUEST_TIMEOUT"
	case CodeMediaServerGenericError:
		return "MEDIA_SERVER_GENERIC_ERROR"
	case CodeConnectionError:
		return "CONNECTION_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the concrete error type returned across package boundaries in
// this module. It carries a Code for programmatic dispatch, a
// human-readable Message, and an optional wrapped Cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func NotFound(what, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s %q not found", what, id))
}

func InvalidState(what, from, to string) *Error {
	return New(CodeInvalidState, fmt.Sprintf("%s: cannot transition from %s to %s", what, from, to))
}

func RoomNotFound(id string) *Error { return New(CodeRoomNotFound, fmt.Sprintf("room %q not found", id)) }

func UserNotFound(id string) *Error { return New(CodeUserNotFound, fmt.Sprintf("user %q not found", id)) }

func MediaNotFound(id string) *Error {
	return New(CodeMediaNotFound, fmt.Sprintf("media %q not found", id))
}

func InvalidOperation(what string) *Error {
	return New(CodeMediaInvalidOperation, what)
}

func NoAvailableCodec(reason string) *Error {
	return New(CodeMediaNoAvailableCodec, reason)
}

func ServerTimeout(detail string) *Error {
	return New(CodeMediaServerRequestTimeout, detail)
}

func ServerGenericError(cause error) *Error {
	return Wrap(CodeMediaServerGenericError, "backend request failed", cause)
}

func ConnectionError(cause error) *Error {
	return Wrap(CodeConnectionError, "connection failed", cause)
}

// Is supports errors.Is by comparing codes when both sides are *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
