package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("join: %w", WithMetadata(CodeRoomNotFound, "room not found", map[string]string{"RoomID": "abc"}))

	if !stderrors.Is(err, New(CodeRoomNotFound, "")) {
		t.Fatal("expected wrapped error to match by code")
	}
	if stderrors.Is(err, New(CodeRoomThemeEmpty, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(CodeFacilitatorFailed, "facilitator error", cause)

	if got := err.Error(); got != "facilitator error: connection reset" {
		t.Fatalf("Error() = %q", got)
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via Unwrap")
	}
	if got := Wrap(CodeFacilitatorFailed, "", cause).Error(); got != "connection reset" {
		t.Fatalf("Error() without message = %q", got)
	}
}

func TestCodeOfAndStatusOf(t *testing.T) {
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf(plain) = %q", got)
	}
	if got := StatusOf(stderrors.New("plain")); got != StatusInternal {
		t.Fatalf("StatusOf(plain) = %q", got)
	}
	wrapped := fmt.Errorf("outer: %w", New(CodeFacilitatorRateLimited, "rate limited"))
	if got := CodeOf(wrapped); got != CodeFacilitatorRateLimited {
		t.Fatalf("CodeOf(wrapped) = %q", got)
	}
	if got := StatusOf(wrapped); got != StatusResourceExhausted {
		t.Fatalf("StatusOf(wrapped) = %q", got)
	}
}

func TestCodeStatusMapping(t *testing.T) {
	tests := []struct {
		code       Code
		status     Status
		httpStatus int
	}{
		{CodeRoomThemeEmpty, StatusInvalidArgument, http.StatusBadRequest},
		{CodeFrameInvalid, StatusInvalidArgument, http.StatusBadRequest},
		{CodeRoomNotFound, StatusNotFound, http.StatusNotFound},
		{CodeFacilitatorCredentialMissing, StatusFailedPrecondition, http.StatusPreconditionFailed},
		{CodeSessionAlreadyBound, StatusFailedPrecondition, http.StatusPreconditionFailed},
		{CodeFacilitatorRateLimited, StatusResourceExhausted, http.StatusTooManyRequests},
		{CodeFacilitatorFailed, StatusUnavailable, http.StatusBadGateway},
		{CodeServerShuttingDown, StatusUnavailable, http.StatusBadGateway},
		{CodeAdminUnauthenticated, StatusUnauthenticated, http.StatusUnauthorized},
		{CodeSessionRoleMismatch, StatusPermissionDenied, http.StatusForbidden},
		{CodeUnknown, StatusInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.Status(); got != tt.status {
				t.Fatalf("Status() = %q, want %q", got, tt.status)
			}
			if got := tt.code.Status().HTTPStatus(); got != tt.httpStatus {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.httpStatus)
			}
		})
	}
}
