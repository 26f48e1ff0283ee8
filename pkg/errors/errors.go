// Package errors provides structured error types for drawio-builder.
//
// Every failure the build engine reports carries a machine-readable [Code]
// so the orchestrator can decide how far an error propagates:
//
//   - MANIFEST_PARSE, UNKNOWN_LAYER_REFERENCE, AMBIGUOUS_LAYER_REFERENCE,
//     ARTIFACT_COLLISION: a single diagram is skipped, the batch continues
//   - CONFIG_LOAD: the override file is broken and the whole run stops
//   - RENDER_STEP_FAILED: one export step failed, its siblings still run
//   - BUILD_FAILED: summary of a run in which anything above happened
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownLayer, "layer %q not found", name)
//	if errors.Is(err, errors.ErrCodeUnknownLayer) {
//	    // skip the diagram
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeManifestParse, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Per-diagram errors
	ErrCodeManifestParse     Code = "MANIFEST_PARSE"
	ErrCodeUnknownLayer      Code = "UNKNOWN_LAYER_REFERENCE"
	ErrCodeAmbiguousLayer    Code = "AMBIGUOUS_LAYER_REFERENCE"
	ErrCodeInvalidArtifact   Code = "INVALID_ARTIFACT_NAME"
	ErrCodeArtifactCollision Code = "ARTIFACT_COLLISION"

	// Run-wide errors
	ErrCodeConfigLoad       Code = "CONFIG_LOAD"
	ErrCodeRendererNotFound Code = "RENDERER_NOT_FOUND"
	ErrCodeInvalidInput     Code = "INVALID_INPUT"

	// Per-step errors
	ErrCodeRenderStep Code = "RENDER_STEP_FAILED"

	// Batch errors
	ErrCodeBuildFailed Code = "BUILD_FAILED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
