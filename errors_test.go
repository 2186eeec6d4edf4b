package regs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hyperengineering/regs"
)

func TestSentinelErrors_ErrorsIs(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"ErrNotFound", regs.ErrNotFound},
		{"ErrInvalidCategory", regs.ErrInvalidCategory},
		{"ErrStoreClosed", regs.ErrStoreClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("operation failed: %w", tt.sentinel)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is(wrapped, %v) = false, want true", tt.sentinel)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := error(&regs.ValidationError{Field: "Title", Message: "required", Err: regs.ErrEmptyTitle})

	if got := err.Error(); got != "validation: Title: required" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, regs.ErrEmptyTitle) {
		t.Error("errors.Is(err, ErrEmptyTitle) = false, want true")
	}

	var ve *regs.ValidationError
	if !errors.As(fmt.Errorf("wrap: %w", err), &ve) || ve.Field != "Title" {
		t.Errorf("errors.As failed: %+v", ve)
	}
}

func TestLocalStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&regs.LocalStorageError{Op: "save", Err: cause})

	if got := err.Error(); got != "local storage: save: disk full" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should expose the cause")
	}
	if regs.IsRemoteError(err) {
		t.Error("local error classified as remote")
	}
}

func TestRemoteError_Format(t *testing.T) {
	cause := errors.New("connection refused")

	err := &regs.RemoteError{Operation: "QueryByOwner", Err: cause}
	if got := err.Error(); got != "remote: QueryByOwner failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}

	err = &regs.RemoteError{Operation: "Upsert", StatusCode: 503, Err: cause}
	if got := err.Error(); got != "remote: Upsert failed (status 503): connection refused" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("Unwrap should expose the cause")
	}
}

func TestIsRemoteError(t *testing.T) {
	cause := errors.New("timeout")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport", &regs.RemoteError{Operation: "Delete", Err: cause}, true},
		{"write", &regs.RemoteWriteError{Op: "upsert", ID: "1", Err: cause}, true},
		{"read", &regs.RemoteReadError{Owner: "u1", Err: cause}, true},
		{"wrapped write", fmt.Errorf("sync: %w", &regs.RemoteWriteError{Op: "delete", ID: "1", Err: cause}), true},
		{"plain", cause, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := regs.IsRemoteError(tt.err); got != tt.want {
				t.Errorf("IsRemoteError() = %v, want %v", got, tt.want)
			}
		})
	}
}
