// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Users can quote the code when reporting a failed import.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A note with this ID already exists
//	        Patterns: "duplicate key"
//
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Patterns: "unique constraint", "violates unique"
//
//	DB003 - Foreign key: Referenced deck or note type does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
//	DB008 - Locked: Collection file is locked by another program
//	        Patterns: "database is locked"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit (100MB)
//	          Patterns: "file too large"
//
//	FILE002 - Unreadable: The file could not be read
//	          Patterns: "unreadable file"
//
//	FILE003 - Encoding error: File contains invalid characters
//	          Patterns: "encoding error"
//
//	FILE004 - No file: No file was selected
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: No data rows found
//	          Patterns: "no data rows found"
//
// # Detection Errors (DET001-DET099)
//
//	DET001 - Detection failed: Delimiter or rows could not be analyzed
//	         Patterns: "detection failed"
//
//	DET002 - Unknown delimiter: Delimiter option not recognized
//	         Patterns: "unknown delimiter"
//
// # Note Type Errors (SCH001-SCH099)
//
//	SCH001 - Directive note type: The #notetype directive names an unknown note type
//	         Patterns: "directive note type"
//
//	SCH002 - Unresolved: No note type could be chosen
//	         Patterns: "note type not resolved"
//
//	SCH003 - Invalid definition: A note type definition is invalid
//	         Patterns: "invalid note type"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Deck unresolved: Target deck could not be resolved
//	         Patterns: "target deck not resolved"
//
//	IMP002 - Note rejected: A note was rejected, earlier notes were kept
//	         Patterns: "record rejected by sink"
//
//	IMP003 - System busy: Another import is in progress
//	         Patterns: "too many imports"
//
//	IMP004 - Request cancelled: Request was cancelled
//	         Patterns: "context canceled"
//
//	IMP005 - Request timeout: Request timed out
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones.

package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database Errors (DB001-DB008)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A note with this ID already exists",
			Action:  "Re-run the import; note IDs are regenerated each time",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Choose a different deck or note type name",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Choose a different deck or note type name",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced deck or note type does not exist",
			Action:  "Refresh the deck list and try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced deck or note type does not exist",
			Action:  "Refresh the deck list and try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The collection file is locked by another program",
			Action:  "Close other programs using the collection and try again",
			Code:    "DB008",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit (100MB)",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unreadable file",
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check that the file exists and you have permission to read it",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Pick a CSV file first",
			Code:    "FILE004",
		},
	},
	{
		pattern: "no data rows found",
		msg: UserMessage{
			Message: "No data rows found",
			Action:  "Add at least one non-empty row below the header and directives",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Detection Errors (DET001-DET002)
	// =========================================================================
	{
		pattern: "detection failed",
		msg: UserMessage{
			Message: "The file layout could not be analyzed",
			Action:  "Choose the delimiter manually",
			Code:    "DET001",
		},
	},
	{
		pattern: "unknown delimiter",
		msg: UserMessage{
			Message: "Delimiter option not recognized",
			Action:  "Use auto, comma, tab, semicolon or pipe",
			Code:    "DET002",
		},
	},

	// =========================================================================
	// Note Type Errors (SCH001-SCH003)
	// =========================================================================
	{
		pattern: "directive note type",
		msg: UserMessage{
			Message: "The #notetype directive names an unknown note type",
			Action:  "Fix the directive or choose a note type manually",
			Code:    "SCH001",
		},
	},
	{
		pattern: "note type not resolved",
		msg: UserMessage{
			Message: "Could not resolve note type",
			Action:  "Choose a note type manually",
			Code:    "SCH002",
		},
	},
	{
		pattern: "invalid note type",
		msg: UserMessage{
			Message: "A note type definition is invalid",
			Action:  "Give every note type a name and at least one field",
			Code:    "SCH003",
		},
	},

	// =========================================================================
	// Import Errors (IMP001-IMP005)
	// =========================================================================
	{
		pattern: "target deck not resolved",
		msg: UserMessage{
			Message: "Could not resolve target deck",
			Action:  "Choose a deck or enter a subdeck name",
			Code:    "IMP001",
		},
	},
	{
		pattern: "record rejected by sink",
		msg: UserMessage{
			Message: "A note was rejected and the import stopped",
			Action:  "Notes added before the failing row were kept; fix the row and import the rest",
			Code:    "IMP002",
		},
	},
	{
		pattern: "too many imports",
		msg: UserMessage{
			Message: "Another import is in progress",
			Action:  "Please wait a moment and try again",
			Code:    "IMP003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try importing a smaller file or check your connection",
			Code:    "IMP005",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	msg := MapError(ErrEmptyInput)
//	// msg.Code == "FILE005"
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
//
// Example output: "No data rows found (Code: FILE005). Add at least one non-empty row below the header and directives"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
//
// Example:
//
//	if IsUserFacing(err) {
//	    showToUser(FormatUserError(err))
//	} else {
//	    log.Error(err) // Log technical error
//	    showToUser("An error occurred. Please try again.")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// WrapWithUserMessage wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
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

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.

func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
