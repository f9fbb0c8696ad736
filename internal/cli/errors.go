// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for the repochat commands.
//
// Handlers always return errors; Run displays them once and turns them
// into an exit code.

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/repochat/internal/backend"
	"github.com/jeranaias/repochat/internal/config"
	"github.com/jeranaias/repochat/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates the backend refused the request
	ExitAuthError = 4
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
	// ExitSecurityError is reserved; repochat has no security policy layer.
	ExitSecurityError = 6
	// ExitNotFoundError indicates a resource (index, history entry) was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "build", "history")
	Action  string // Action being performed (e.g., "export", "clear")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "history entry")
	ID       string // Identifier that was not found
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// =============================================================================
// ERROR CONSTRUCTION HELPERS
// =============================================================================

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Reason:  reason,
		Example: example,
	}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(resource, id string) error {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError displays an error in a consistent format: a JSON error
// response on stdout in JSON mode, a styled line on stderr otherwise.
func DisplayError(err error, jsonMode bool, command string) {
	if err == nil {
		return
	}

	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.ErrorType = errorType(err)
		resp.Print()
		return
	}

	fmt.Fprintf(errOut, "%s %s\n", ErrorStyle.Render("[ERROR]"), describeError(err))
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(errOut, DimStyle.Render(hint))
	}
}

// describeError prefers the backend's own words for backend failures.
func describeError(err error) string {
	var ce *backend.ClientError
	if errors.As(err, &ce) {
		return backend.Describe(err)
	}
	return err.Error()
}

// errorHint suggests the next step for common failures.
func errorHint(err error) string {
	switch backend.TypeOf(err) {
	case backend.ErrTypeNotRunning:
		return "Is the backend running? Check the URL with: repochat status"
	case backend.ErrTypeIndexNotFound:
		return "Build the index first: repochat build <url>"
	case backend.ErrTypeTimeout:
		return "Raise backend.timeout_secs with: repochat config set backend.timeout_secs 300"
	}
	return ""
}

// errorType names the error category for JSON output.
func errorType(err error) string {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var commandErr *CommandError
	switch {
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &notFoundErr):
		return "not_found_error"
	case backend.TypeOf(err) != backend.ErrTypeUnknown:
		return "backend_" + backend.TypeOf(err).String()
	case errors.As(err, &commandErr):
		return "command_error"
	default:
		return "generic_error"
	}
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch backend.TypeOf(err) {
	case backend.ErrTypeNotRunning, backend.ErrTypeConnection:
		return ExitNetworkError
	case backend.ErrTypeTimeout:
		return ExitTimeoutError
	case backend.ErrTypeIndexNotFound:
		return ExitNotFoundError
	case backend.ErrTypeValidation:
		return ExitUsageError
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}

	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) || errors.Is(err, storage.ErrEntryNotFound) {
		return ExitNotFoundError
	}
	if errors.Is(err, storage.ErrAmbiguousID) {
		return ExitUsageError
	}

	var cfgErrs config.ValidateErrors
	var cfgErr config.ValidationError
	if errors.As(err, &cfgErrs) || errors.As(err, &cfgErr) {
		return ExitConfigError
	}

	var ce *backend.ClientError
	if errors.As(err, &ce) && (ce.StatusCode == 401 || ce.StatusCode == 403) {
		return ExitAuthError
	}

	// Check error message content for additional categorization
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "config") {
		return ExitConfigError
	}
	if strings.Contains(errMsg, "timed out") || strings.Contains(errMsg, "deadline exceeded") {
		return ExitTimeoutError
	}
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host") {
		return ExitNetworkError
	}

	return ExitGeneralError
}
