// Package errors provides structured domain errors with machine-readable
// codes, a coarse status used at transport boundaries, and metadata for
// localized user messages.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Room errors
	CodeRoomThemeEmpty     Code = "ROOM_THEME_EMPTY"
	CodeRoomSecretAEmpty   Code = "ROOM_SECRET_A_EMPTY"
	CodeRoomSecretBEmpty   Code = "ROOM_SECRET_B_EMPTY"
	CodeRoomNotFound       Code = "ROOM_NOT_FOUND"
	CodeRoomIDExhausted    Code = "ROOM_ID_EXHAUSTED"
	CodeMessageInvalidRole Code = "MESSAGE_INVALID_ROLE"
	CodeMessageEmpty       Code = "MESSAGE_EMPTY"
	CodeMessageTooLong     Code = "MESSAGE_TOO_LONG"

	// Facilitator errors
	CodeFacilitatorCredentialMissing Code = "FACILITATOR_CREDENTIAL_MISSING"
	CodeFacilitatorRateLimited       Code = "FACILITATOR_RATE_LIMITED"
	CodeFacilitatorFailed            Code = "FACILITATOR_FAILED"
	CodeFacilitatorEmptyReply        Code = "FACILITATOR_EMPTY_REPLY"

	// Session errors
	CodeSessionAlreadyBound Code = "SESSION_ALREADY_BOUND"
	CodeSessionNotBound     Code = "SESSION_NOT_BOUND"
	CodeSessionRoleMismatch Code = "SESSION_ROLE_MISMATCH"
	CodeSessionInvalidRole  Code = "SESSION_INVALID_ROLE"
	CodeFrameInvalid        Code = "FRAME_INVALID"
	CodeFrameUnsupported    Code = "FRAME_UNSUPPORTED"
	CodeFrameTooLarge       Code = "FRAME_TOO_LARGE"
	CodeFrameRateLimited    Code = "FRAME_RATE_LIMITED"
	CodeServerShuttingDown  Code = "SERVER_SHUTTING_DOWN"

	// Admin errors
	CodeAdminUnauthenticated    Code = "ADMIN_UNAUTHENTICATED"
	CodeAdminInvalidCredentials Code = "ADMIN_INVALID_CREDENTIALS"
	CodeAdminSessionExpired     Code = "ADMIN_SESSION_EXPIRED"
	CodeAdminPermissionDenied   Code = "ADMIN_PERMISSION_DENIED"
	CodeAdminRequestInvalid     Code = "ADMIN_REQUEST_INVALID"
	CodeAuditUnavailable        Code = "AUDIT_UNAVAILABLE"
)

// Status is the coarse outcome class shared by HTTP responses and
// websocket error frames.
type Status string

const (
	StatusInvalidArgument    Status = "INVALID_ARGUMENT"
	StatusNotFound           Status = "NOT_FOUND"
	StatusFailedPrecondition Status = "FAILED_PRECONDITION"
	StatusResourceExhausted  Status = "RESOURCE_EXHAUSTED"
	StatusUnavailable        Status = "UNAVAILABLE"
	StatusUnauthenticated    Status = "UNAUTHENTICATED"
	StatusPermissionDenied   Status = "PERMISSION_DENIED"
	StatusInternal           Status = "INTERNAL"
)

// Status maps domain codes to their transport status.
func (c Code) Status() Status {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeRoomThemeEmpty,
		CodeRoomSecretAEmpty,
		CodeRoomSecretBEmpty,
		CodeMessageInvalidRole,
		CodeMessageEmpty,
		CodeMessageTooLong,
		CodeSessionInvalidRole,
		CodeFrameInvalid,
		CodeFrameUnsupported,
		CodeFrameTooLarge,
		CodeAdminRequestInvalid:
		return StatusInvalidArgument

	// NotFound - resource doesn't exist
	case CodeRoomNotFound:
		return StatusNotFound

	// FailedPrecondition - state doesn't allow operation
	case CodeFacilitatorCredentialMissing,
		CodeSessionAlreadyBound,
		CodeSessionNotBound,
		CodeAuditUnavailable:
		return StatusFailedPrecondition

	case CodeFacilitatorRateLimited,
		CodeFrameRateLimited:
		return StatusResourceExhausted

	case CodeFacilitatorFailed,
		CodeFacilitatorEmptyReply,
		CodeServerShuttingDown:
		return StatusUnavailable

	case CodeAdminUnauthenticated,
		CodeAdminInvalidCredentials,
		CodeAdminSessionExpired:
		return StatusUnauthenticated

	case CodeSessionRoleMismatch,
		CodeAdminPermissionDenied:
		return StatusPermissionDenied

	default:
		return StatusInternal
	}
}

// HTTPStatus maps a transport status to an HTTP status code.
func (s Status) HTTPStatus() int {
	switch s {
	case StatusInvalidArgument:
		return http.StatusBadRequest
	case StatusNotFound:
		return http.StatusNotFound
	case StatusFailedPrecondition:
		return http.StatusPreconditionFailed
	case StatusResourceExhausted:
		return http.StatusTooManyRequests
	case StatusUnavailable:
		return http.StatusBadGateway
	case StatusUnauthenticated:
		return http.StatusUnauthorized
	case StatusPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
