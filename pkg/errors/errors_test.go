package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrap(t *testing.T) {
	originalErr := errors.New("calendar unreachable")
	wrapped := Wrap(originalErr, CodeUpstream, "upstream error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if wrapped.Code != CodeUpstream {
		t.Errorf("expected code %s, got %s", CodeUpstream, wrapped.Code)
	}
	if errors.Unwrap(wrapped) != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   Conflict("room already booked"),
			expected: "CONFLICT: room already booked",
		},
		{
			name:     "with underlying error",
			appErr:   Upstream("failed to create reservation", errors.New("503 backend error")),
			expected: "UPSTREAM_ERROR: failed to create reservation (caused by: 503 backend error)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"validation", Validation("bad token", nil), CodeValidation, http.StatusBadRequest},
		{"policy violation", PolicyViolation("Must use @organization.edu email"), CodeValidation, http.StatusForbidden},
		{"invalid input", InvalidInput("bad body"), CodeInvalidInput, http.StatusBadRequest},
		{"forbidden", Forbidden("You can only delete your own bookings"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("overlap"), CodeConflict, http.StatusConflict},
		{"upstream", Upstream("calendar down", nil), CodeUpstream, http.StatusInternalServerError},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{"unavailable", Unavailable("Calendar"), CodeUnavailable, http.StatusServiceUnavailable},
		{"not found", NotFoundWithID("Reservation", "abc"), CodeNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.err.StatusCode())
			}
		})
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := Conflict("overlap").WithDetails(map[string]any{
		"conflictStart": "2025-11-14T17:00:00-05:00",
	})

	if err.Details["conflictStart"] != "2025-11-14T17:00:00-05:00" {
		t.Errorf("expected conflictStart detail, got %v", err.Details["conflictStart"])
	}
}

func TestStatusCode_DefaultsToInternal(t *testing.T) {
	err := &AppError{Code: CodeInternal, Message: "no status"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want %d", err.StatusCode(), http.StatusInternalServerError)
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", Forbidden("not yours"))

	if !HasCode(wrapped, CodeForbidden) {
		t.Errorf("HasCode() should find FORBIDDEN through wrapping")
	}
	if HasCode(wrapped, CodeConflict) {
		t.Errorf("HasCode() should not match a different code")
	}
	if HasCode(errors.New("plain"), CodeForbidden) {
		t.Errorf("HasCode() should be false for non-AppError")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := Conflict("overlap")
	regularErr := errors.New("regular error")

	if result := AsAppError(fmt.Errorf("wrapped: %w", appErr)); result != appErr {
		t.Errorf("AsAppError() should unwrap to the same AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}
