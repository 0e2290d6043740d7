package core

// error_messages.go maps technical errors to user-friendly messages.
//
// # Error Codes Reference
//
// When staff or family members encounter an error, they can quote the code
// to support for faster diagnosis. Codes are grouped by category:
//
//	FILE001 - File too large             Patterns: "file too large"
//	FILE002 - Unreadable spreadsheet     Patterns: "unreadable spreadsheet"
//	FILE003 - Missing item name column   Patterns: "missing required column"
//	FILE004 - No file                    Patterns: "no file provided"
//	FILE005 - No data rows               Patterns: "no data rows"
//
//	IMG001 - Unsupported image type      Patterns: "unsupported image type"
//	IMG002 - Image too large             Patterns: "image too large"
//	IMG003 - Extraction failed           Patterns: "image extraction failed"
//
//	VAL001 - Invalid date                Patterns: "invalid date"
//	VAL002 - Invalid number              Patterns: "must be a number"
//	VAL003 - Required field              Patterns: "required field"
//	VAL006 - Unknown label               Patterns: "unrecognized value"
//
//	IMP001 - Too many imports            Patterns: "too many concurrent imports"
//	IMP002 - Sheets not configured       Patterns: "sheets source not configured"
//	IMP003 - Missing resident            Patterns: "missing resident"
//
//	DB001 - Duplicate key                Patterns: "duplicate key", "unique constraint"
//	DB004 - Connection refused           Patterns: "connection refused"
//	DB005 - Connection reset             Patterns: "connection reset"
//	DB006 - Timeout                      Patterns: "timeout"
//
//	REQ001 - Request cancelled           Patterns: "context canceled"
//	REQ002 - Request timeout             Patterns: "context deadline exceeded"
//
//	RATE001 - Rate limited               Patterns: "rate limit"
//
//	ERR000 - Unknown error (fallback; check application logs)
//
// # Pattern Matching
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so more specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Spreadsheet input
	{"file too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the list into smaller files",
		Code:    "FILE001",
	}},
	{"unreadable spreadsheet", UserMessage{
		Message: "The file could not be read as a spreadsheet",
		Action:  "Save the file as .xlsx or UTF-8 .csv and try again",
		Code:    "FILE002",
	}},
	{"missing required column", UserMessage{
		Message: "The item name column was not found",
		Action:  "Use the import template and keep its header row",
		Code:    "FILE003",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a spreadsheet to import",
		Code:    "FILE004",
	}},
	{"no data rows", UserMessage{
		Message: "The file has no item rows",
		Action:  "Add items below the header row (sample rows are ignored)",
		Code:    "FILE005",
	}},

	// Image extraction
	{"unsupported image type", UserMessage{
		Message: "This image format is not supported",
		Action:  "Use a JPEG, PNG or WebP image",
		Code:    "IMG001",
	}},
	{"image too large", UserMessage{
		Message: "Image exceeds the 5MB limit",
		Action:  "Reduce the image resolution and try again",
		Code:    "IMG002",
	}},
	{"image extraction failed", UserMessage{
		Message: "Items could not be read from the image",
		Action:  "Try a clearer photo or enter items with the spreadsheet template",
		Code:    "IMG003",
	}},

	// Field validation
	{"invalid date", UserMessage{
		Message: "Invalid date format detected",
		Action:  "Use YYYY/MM/DD or YYYY-MM-DD",
		Code:    "VAL001",
	}},
	{"must be a number", UserMessage{
		Message: "Invalid quantity",
		Action:  "Enter a whole number of 1 or more",
		Code:    "VAL002",
	}},
	{"required field", UserMessage{
		Message: "Required field is empty",
		Action:  "Fill in item name, category, serving method, date and time slot",
		Code:    "VAL003",
	}},
	{"unrecognized value", UserMessage{
		Message: "Value is not in the allowed list",
		Action:  "Choose a value from the template's drop-down list",
		Code:    "VAL006",
	}},

	// Import session
	{"too many concurrent imports", UserMessage{
		Message: "System busy: too many imports in progress",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}},
	{"sheets source not configured", UserMessage{
		Message: "Google Sheets import is not available",
		Action:  "Download the sheet as .xlsx and upload the file instead",
		Code:    "IMP002",
	}},
	{"missing resident", UserMessage{
		Message: "No resident was selected",
		Action:  "Select a resident before importing",
		Code:    "IMP003",
	}},

	// Item store
	{"duplicate key", UserMessage{
		Message: "An item with this ID already exists",
		Action:  "Run the import preview again to refresh duplicates",
		Code:    "DB001",
	}},
	{"unique constraint", UserMessage{
		Message: "An item with this ID already exists",
		Action:  "Run the import preview again to refresh duplicates",
		Code:    "DB001",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to the item store",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Item store connection was interrupted",
		Action:  "Please try again; items already registered are kept",
		Code:    "DB005",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Please try again with fewer items",
		Code:    "DB006",
	}},

	// Request lifecycle
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "REQ002",
	}},

	// Rate limiting
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// The original error is preserved for logging via Unwrap.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
