// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"errors"
	"fmt"
)

// Error variables for common transport failures.
var (
	// ErrAuthRequired indicates the backend rejected the credentials. The
	// session layer passes this through so the UI can offer a reconnect.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNotConfigured indicates the client has no base URL or app id.
	ErrNotConfigured = errors.New("transport not configured")
)

// BackendError represents an explicit error reported by the chat service,
// either as a non-200 response or as a terminal error event on the stream.
type BackendError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// ConnectionError represents a dropped stream: the connection ended before
// a done event was received. It is retryable at the caller's discretion.
type ConnectionError struct {
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stream connection closed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionDrop reports whether err represents a dropped stream rather
// than an explicit backend failure.
func IsConnectionDrop(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
