// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relayerror

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Code is a machine-readable error classification. Routes echo it
// verbatim in the JSON error body's "error" field.
type Code string

// The twelve machine codes of the relay's error taxonomy, each bound to
// a fixed HTTP status by the constructors below.
const (
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeSessionNotFound  Code = "SESSION_NOT_FOUND"
	CodeSessionCompleted Code = "SESSION_COMPLETED"
	CodeIncompleteChunks Code = "INCOMPLETE_CHUNKS"
	CodeDecryptionFailed Code = "DECRYPTION_FAILED"
	CodeGitError         Code = "GIT_ERROR"
	CodeSizeMismatch     Code = "SIZE_MISMATCH"
	CodeFileTooLarge     Code = "FILE_TOO_LARGE"
	CodeSHA256Mismatch   Code = "SHA256_MISMATCH"
	CodeFileExists       Code = "FILE_EXISTS"
	CodeInternalError    Code = "INTERNAL_ERROR"
)

// Error is the relay's single tagged error type. It satisfies the
// standard error interface and is recovered at the route layer via
// errors.As to produce the JSON error body {error, message}.
type Error struct {
	// Code is the machine-readable classification.
	Code Code

	// StatusCode is the HTTP status this error maps to.
	StatusCode int

	// Message is the human-readable description returned to the
	// client and written to logs.
	Message string

	// Extra carries structured detail fields (e.g. "operation" for
	// GIT_ERROR, "expected"/"received" for INCOMPLETE_CHUNKS). May be
	// nil.
	Extra map[string]any
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s: %s", err.Code, err.Message)
}

// WithExtra returns a copy of err with the given key/value merged into
// Extra.
func (err *Error) WithExtra(key string, value any) *Error {
	clone := *err
	clone.Extra = make(map[string]any, len(err.Extra)+1)
	for k, v := range err.Extra {
		clone.Extra[k] = v
	}
	clone.Extra[key] = value
	return &clone
}

// As reports whether err (or any error it wraps) is an *Error, and if
// so, returns it. Thin wrapper over errors.As so callers at the route
// layer don't need to declare the target variable inline.
func As(err error) (*Error, bool) {
	var relayErr *Error
	if errors.As(err, &relayErr) {
		return relayErr, true
	}
	return nil, false
}

// InvalidInput builds a 400 INVALID_INPUT error.
func InvalidInput(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, StatusCode: 400, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized builds a 401 UNAUTHORIZED error.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, StatusCode: 401, Message: message}
}

// SessionNotFound builds a 404 SESSION_NOT_FOUND error.
func SessionNotFound(sessionID string) *Error {
	return &Error{
		Code:       CodeSessionNotFound,
		StatusCode: 404,
		Message:    fmt.Sprintf("session %q not found", sessionID),
		Extra:      map[string]any{"sessionId": sessionID},
	}
}

// SessionCompleted builds a 409 SESSION_COMPLETED error.
func SessionCompleted(sessionID string) *Error {
	return &Error{
		Code:       CodeSessionCompleted,
		StatusCode: 409,
		Message:    fmt.Sprintf("session %q has already completed", sessionID),
		Extra:      map[string]any{"sessionId": sessionID},
	}
}

// IncompleteChunks builds a 400 INCOMPLETE_CHUNKS error.
func IncompleteChunks(expected, received int) *Error {
	return &Error{
		Code:       CodeIncompleteChunks,
		StatusCode: 400,
		Message:    fmt.Sprintf("expected %d chunks, received %d", expected, received),
		Extra:      map[string]any{"expected": expected, "received": received},
	}
}

// DecryptionFailed builds a 400 DECRYPTION_FAILED error.
func DecryptionFailed(reason string) *Error {
	return &Error{Code: CodeDecryptionFailed, StatusCode: 400, Message: reason}
}

// GitError builds a 500 GIT_ERROR error, annotated with the failing
// operation name.
func GitError(operation string, cause error) *Error {
	return &Error{
		Code:       CodeGitError,
		StatusCode: 500,
		Message:    fmt.Sprintf("git %s: %v", operation, cause),
		Extra:      map[string]any{"operation": operation},
	}
}

// SizeMismatch builds a 400 SIZE_MISMATCH error.
func SizeMismatch(expected, actual int64) *Error {
	return &Error{
		Code:       CodeSizeMismatch,
		StatusCode: 400,
		Message:    fmt.Sprintf("expected %s, got %s", humanize.Bytes(uint64(expected)), humanize.Bytes(uint64(actual))),
		Extra:      map[string]any{"expected": expected, "actual": actual},
	}
}

// FileTooLarge builds a 400 FILE_TOO_LARGE error.
func FileTooLarge(size, max int64) *Error {
	return &Error{
		Code:       CodeFileTooLarge,
		StatusCode: 400,
		Message:    fmt.Sprintf("file size %s exceeds maximum %s", humanize.Bytes(uint64(size)), humanize.Bytes(uint64(max))),
		Extra:      map[string]any{"size": size, "max": max},
	}
}

// SHA256Mismatch builds a 400 SHA256_MISMATCH error.
func SHA256Mismatch(expected, actual string) *Error {
	return &Error{
		Code:       CodeSHA256Mismatch,
		StatusCode: 400,
		Message:    "sha256 mismatch",
		Extra:      map[string]any{"expected": expected, "actual": actual},
	}
}

// FileExists builds a 409 FILE_EXISTS error.
func FileExists(path string) *Error {
	return &Error{
		Code:       CodeFileExists,
		StatusCode: 409,
		Message:    fmt.Sprintf("destination %q already exists", path),
		Extra:      map[string]any{"path": path},
	}
}

// Internal builds a 500 INTERNAL_ERROR error, wrapping cause.
func Internal(cause error) *Error {
	return &Error{Code: CodeInternalError, StatusCode: 500, Message: cause.Error()}
}
