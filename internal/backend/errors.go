// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error

	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int
	// Body is the response body as received, compacted when it is JSON.
	Body string
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ClientError of the same type, so that
// errors.Is(err, ErrNotRunning) matches every not-running error regardless
// of its cause. Validation sentinels also compare their message.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok || t.Type == ErrTypeUnknown {
		return false
	}
	if t.Type != e.Type {
		return false
	}
	if t.Type == ErrTypeValidation {
		return t.Message == e.Message
	}
	return true
}

// Detail returns the FastAPI "detail" field of the body when there is one.
func (e *ClientError) Detail() string {
	if e.Body == "" {
		return ""
	}
	var eb errorBody
	if err := json.Unmarshal([]byte(e.Body), &eb); err != nil || eb.Detail == nil {
		return ""
	}
	if s, ok := eb.Detail.(string); ok {
		return s
	}
	b, _ := json.Marshal(eb.Detail)
	return string(b)
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeIndexNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeServer
	ErrTypeValidation
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeNotRunning:
		return "not_running"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeIndexNotFound:
		return "index_not_found"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeServer:
		return "server"
	case ErrTypeValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "backend is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrIndexNotFound = &ClientError{Type: ErrTypeIndexNotFound, Message: "index not found"}
	ErrEmptyQuestion = &ClientError{Type: ErrTypeValidation, Message: "question is empty"}
	ErrEmptyRepoURL  = &ClientError{Type: ErrTypeValidation, Message: "repository URL is empty"}
)

// IsNotRunning reports whether err means the backend could not be reached.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsIndexNotFound reports whether the backend has no index for the repo.
func IsIndexNotFound(err error) bool {
	return errors.Is(err, ErrIndexNotFound)
}

// TypeOf returns the ErrorType of err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrTypeUnknown
}

// =============================================================================
// ERROR RENDERING
// =============================================================================

// Describe renders err for display. The response body wins when one was
// received; otherwise the transport error text is used.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var ce *ClientError
	if !errors.As(err, &ce) {
		return err.Error()
	}
	if ce.Body != "" {
		return ce.Body
	}
	if ce.Cause != nil {
		return ce.Cause.Error()
	}
	return ce.Message
}

// compactBody returns the body compacted when it is JSON, or trimmed text.
func compactBody(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if json.Valid(raw) && json.Compact(&buf, raw) == nil {
		return buf.String()
	}
	return string(raw)
}

// transportError classifies a failure from http.Client.Do.
func transportError(err error) *ClientError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ClientError{Type: ErrTypeConnection, Message: "request cancelled", Cause: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &ClientError{Type: ErrTypeNotRunning, Message: ErrNotRunning.Message, Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: "request failed", Cause: err}
}

// statusError builds the error for a non-2xx response.
func statusError(op string, status int, statusText string, body []byte) *ClientError {
	e := &ClientError{
		StatusCode: status,
		Body:       compactBody(body),
		Message:    fmt.Sprintf("%s failed: %s", op, statusText),
	}
	switch {
	case status == 404:
		e.Type = ErrTypeIndexNotFound
	case status == 400 || status == 422:
		e.Type = ErrTypeValidation
	case status >= 500:
		e.Type = ErrTypeServer
	default:
		e.Type = ErrTypeInvalidResponse
	}
	if d := e.Detail(); d != "" && !strings.Contains(e.Message, d) {
		e.Message += " (" + d + ")"
	}
	return e
}
