package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NotFound("Estimate"),
			want: "NOT_FOUND: Estimate not found",
		},
		{
			name: "with cause",
			err:  Internal("Failed to apply decision", fmt.Errorf("write conflict")),
			want: "INTERNAL_ERROR: Failed to apply decision (caused by: write conflict)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Upstream("portal", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if err.StatusCode() != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, err.StatusCode())
	}
}

func TestNotFoundWithID_Details(t *testing.T) {
	err := NotFoundWithID("Estimate", "665f1c2ab5d3a1f09c000001")

	if err.Details["resource"] != "Estimate" {
		t.Errorf("expected resource detail, got %v", err.Details["resource"])
	}
	if err.Details["id"] != "665f1c2ab5d3a1f09c000001" {
		t.Errorf("expected id detail, got %v", err.Details["id"])
	}
}

func TestAsAppError(t *testing.T) {
	appErr := InvalidInput("bad range")
	if got := AsAppError(appErr); got != appErr {
		t.Error("expected AsAppError to return the same *AppError")
	}

	plain := fmt.Errorf("boom")
	got := AsAppError(plain)
	if got.Code != CodeInternal {
		t.Errorf("expected plain error to map to %s, got %s", CodeInternal, got.Code)
	}
	if !errors.Is(got, plain) {
		t.Error("expected wrapped plain error to be preserved")
	}
}
