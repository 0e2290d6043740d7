package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"unreadable spreadsheet", errors.New("unreadable spreadsheet: zip: not a valid zip file"), "FILE002"},
		{"missing header", errors.New("missing required column 品物名"), "FILE003"},
		{"no data rows", errors.New("no data rows"), "FILE005"},
		{"unsupported image", errors.New("unsupported image type \"image/gif\""), "IMG001"},
		{"image too large", errors.New("image too large: 6291456 bytes"), "IMG002"},
		{"extraction failed wrapped", fmt.Errorf("preview: %w", errors.New("image extraction failed: 502")), "IMG003"},
		{"required field", ValidationError{Field: FieldItemName, Message: msgRequired}, "VAL003"},
		{"invalid date", ValidationError{Field: FieldServingDate, Message: msgInvalidDate}, "VAL001"},
		{"unknown label", ValidationError{Field: FieldCategory, Message: msgUnknownLabel("x")}, "VAL006"},
		{"busy", errors.New("too many concurrent imports, please try again later"), "IMP001"},
		{"duplicate key", errors.New("ERROR: duplicate key value violates unique constraint"), "DB001"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:5432: connection refused"), "DB004"},
		{"timeout before deadline", errors.New("i/o timeout"), "DB006"},
		{"context canceled", context.Canceled, "REQ001"},
		{"deadline exceeded", context.DeadlineExceeded, "REQ002"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"case insensitive", errors.New("DUPLICATE KEY value"), "DB001"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() message is empty")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(errors.New("no data rows"))

	expected := "The file has no item rows (Code: FILE005). Add items below the header row (sample rows are ignored)"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", errors.New("image too large"), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("dial tcp: connection refused")
		userErr := NewUserError(techErr)

		if userErr.Error() != "Unable to connect to the item store" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if userErr.User.Code != "DB004" {
			t.Errorf("User.Code = %q, want DB004", userErr.User.Code)
		}
		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
