// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventKind tags the four event kinds a stream can deliver.
type EventKind int

const (
	// EventConnected fires once, before any data is expected. On receipt
	// the caller performs the side-channel Send that triggers generation.
	EventConnected EventKind = iota

	// EventChunk fires for every incremental update. Content holds the
	// cumulative decoded text so far.
	EventChunk

	// EventDone fires exactly once on graceful completion. Content holds
	// the final text and FinishReason the backend's finish classification.
	EventDone

	// EventError fires at most once and is terminal. No further events
	// follow.
	EventError
)

// String returns the event kind name for logging.
func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventChunk:
		return "chunk"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one decoded stream event.
type Event struct {
	Kind EventKind

	// Content is the cumulative text for EventChunk and the final text for
	// EventDone.
	Content string

	// FinishReason is set on EventDone ("stop", "length", ...).
	FinishReason string

	// Err is set on EventError. It is either a *BackendError (explicit
	// error from the service) or a *ConnectionError (stream dropped).
	Err error
}

// =============================================================================
// WIRE PAYLOADS
// =============================================================================

// ChatMessage is one {role, content} entry of a request payload.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the side-channel payload that triggers generation on an open
// stream.
type Request struct {
	Messages     []ChatMessage `json:"messages"`
	ModelID      string        `json:"modelId"`
	Style        string        `json:"style,omitempty"`
	Temperature  float64       `json:"temperature,omitempty"`
	OutputFormat string        `json:"outputFormat,omitempty"`
	Language     string        `json:"language,omitempty"`
	MaxTokens    int           `json:"maxTokens,omitempty"`
}

// chunkPayload is the wire body of a chunk event. The stream delivers
// deltas; the reader accumulates them before emitting cumulative events.
type chunkPayload struct {
	Content string `json:"content"`
}

// donePayload is the wire body of a done event.
type donePayload struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
}

// errorPayload is the wire body of an error event.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
