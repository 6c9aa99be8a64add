package core

// error_messages.go maps technical errors to messages users can act on.
//
// Each message carries a code that support staff can look up:
//
//	CFG001  Format file is missing a token        *efile.MissingFormatKeyError
//	CFG002  Format file could not be read          *properties.LoadError
//	FILE001 File exceeds the size limit            ErrFileTooLarge
//	FILE002 File is not UTF-8 text                 efile.ErrInvalidUTF8
//	FILE003 File could not be read                 *efile.FileReadError
//	FILE004 No file was selected                   ErrNoFile
//	FILE005 File is empty                          ErrEmptyFile
//	PAR001  Row width differs from its header      *efile.RowWidthError
//	DOC001  Document not found                     ErrDocumentNotFound
//	TBL001  Table not found                        ErrTableNotFound
//	EXP001  Table cannot be written as efile       *efile.EncodeError
//	EXP002  Unknown export format                  ErrUnknownFormat
//	EXP003  Export needs a table                   ErrTableRequired
//	UPL001  Too many parses in progress            ErrTooManyParses
//	UPL002  Request cancelled                      context.Canceled
//	UPL003  Request timed out                      context.DeadlineExceeded
//	DB001   Storage not configured                 ErrStoreDisabled
//	DB002   Cannot reach the database              "connection refused"
//	DB003   Database connection interrupted        "connection reset"
//	DB004   Database busy                          "deadlock"
//	RATE001 Too many requests                      "rate limit"
//	ERR000  Anything else; check the logs
//
// Typed errors are matched with errors.Is and errors.As, so wrapping with
// %w keeps the mapping. Errors from drivers are matched by message, case
// insensitively, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/JonMunkholm/efile/internal/properties"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Support reference
}

// errorRule matches an error either by type or by message.
type errorRule struct {
	match   func(error) bool
	pattern string
	msg     UserMessage
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func as[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// errorRules is ordered: causes before the wrappers that carry them.
var errorRules = []errorRule{
	{
		match: as[*efile.MissingFormatKeyError](),
		msg: UserMessage{
			Message: "The format file is missing a required token",
			Action:  "Set AttributeNameStarter, AttributeBreaker, DataLineStarter and DataBreaker",
			Code:    "CFG001",
		},
	},
	{
		match: as[*properties.LoadError](),
		msg: UserMessage{
			Message: "The format file could not be read",
			Action:  "Check the format file path and permissions",
			Code:    "CFG002",
		},
	},
	{
		match: is(ErrFileTooLarge),
		msg: UserMessage{
			Message: "File exceeds the maximum size",
			Action:  "Split the document into smaller files",
			Code:    "FILE001",
		},
	},
	{
		match: is(efile.ErrInvalidUTF8),
		msg: UserMessage{
			Message: "File is not valid UTF-8 text",
			Action:  "Save the file with UTF-8 encoding",
			Code:    "FILE002",
		},
	},
	{
		match: as[*efile.FileReadError](),
		msg: UserMessage{
			Message: "The file could not be read",
			Action:  "Check the file and upload it again",
			Code:    "FILE003",
		},
	},
	{
		match: is(ErrNoFile),
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose an efile document to upload",
			Code:    "FILE004",
		},
	},
	{
		match: is(ErrEmptyFile),
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a document with at least one section",
			Code:    "FILE005",
		},
	},
	{
		match: as[*efile.RowWidthError](),
		msg: UserMessage{
			Message: "A data row has a different number of cells than its header",
			Action:  "Fix the reported line or disable strict row width",
			Code:    "PAR001",
		},
	},
	{
		match: is(ErrDocumentNotFound),
		msg: UserMessage{
			Message: "Document not found",
			Action:  "The document may have been evicted. Upload it again",
			Code:    "DOC001",
		},
	},
	{
		match: is(ErrTableNotFound),
		msg: UserMessage{
			Message: "Table not found",
			Action:  "Verify the section name is correct",
			Code:    "TBL001",
		},
	},
	{
		match: as[*efile.EncodeError](),
		msg: UserMessage{
			Message: "The table contains values that cannot be written as efile",
			Action:  "Export as CSV, JSON or YAML instead",
			Code:    "EXP001",
		},
	},
	{
		match: is(ErrUnknownFormat),
		msg: UserMessage{
			Message: "Unknown export format",
			Action:  "Use csv, json, yaml or efile",
			Code:    "EXP002",
		},
	},
	{
		match: is(ErrTableRequired),
		msg: UserMessage{
			Message: "This format exports a single table",
			Action:  "Choose a table to export",
			Code:    "EXP003",
		},
	},
	{
		match: is(ErrTooManyParses),
		msg: UserMessage{
			Message: "System is busy parsing other documents",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		match: is(context.Canceled),
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		match: is(context.DeadlineExceeded),
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL003",
		},
	},
	{
		match: is(ErrStoreDisabled),
		msg: UserMessage{
			Message: "Document storage is not configured",
			Action:  "Set DATABASE_URL to enable saving documents",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no rule matches (ERR000). Support staff
// should check the logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message. A nil error
// maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, rule := range errorRules {
		if rule.match != nil && rule.match(err) {
			return rule.msg
		}
		if rule.pattern != "" && strings.Contains(errStr, rule.pattern) {
			return rule.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
