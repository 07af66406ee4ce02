// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/parley/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleError     Role = "error"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleError:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleError:
		return "Error"
	default:
		return string(r)
	}
}

// =============================================================================
// FINISH REASON
// =============================================================================

// FinishReason classifies why an assistant message stopped growing.
// It is set exactly once, when the message leaves the loading state.
type FinishReason string

const (
	// FinishStop is graceful completion.
	FinishStop FinishReason = "stop"
	// FinishLength means the backend truncated the response at its token
	// limit. Callers may offer a retry with a larger limit.
	FinishLength FinishReason = "length"
	// FinishCancelled means the user cancelled generation. Partial content
	// is retained.
	FinishCancelled FinishReason = "cancelled"
	// FinishConnectionClosed means the stream dropped before completion.
	FinishConnectionClosed FinishReason = "connection_closed"
	// FinishError means the backend reported an error for this generation.
	FinishError FinishReason = "error"
)

// ParseFinishReason maps a wire-level finish reason string onto the known
// set, defaulting to FinishStop for empty or unrecognized values.
func ParseFinishReason(s string) FinishReason {
	switch FinishReason(s) {
	case FinishStop, FinishLength, FinishCancelled, FinishConnectionClosed, FinishError:
		return FinishReason(s)
	default:
		return FinishStop
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// AttachmentKind distinguishes the pre-processed payload types produced by
// the input adapters (file text, base64 image, recognized voice transcript).
type AttachmentKind string

const (
	AttachmentFile  AttachmentKind = "file"
	AttachmentImage AttachmentKind = "image"
	AttachmentVoice AttachmentKind = "voice"
)

// Attachment is an already-decoded side payload attached to a message at
// creation. The session core does not know about file formats or speech
// grammars, only about the resulting string payload.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	Name     string         `json:"name,omitempty"`
	MimeType string         `json:"mime_type,omitempty"`
	// Data is plain text for file payloads, base64 for image payloads,
	// and the recognized transcript for voice payloads.
	Data string `json:"data"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single entry in a chat transcript.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content is the displayed text. For assistant messages it grows
	// monotonically while Loading is true.
	Content string `json:"content"`

	// RawContent preserves the pre-formatting text of user messages so a
	// later resend submits what the user typed, not the rendered form.
	RawContent string `json:"raw_content,omitempty"`

	// Streaming state
	Loading bool `json:"-"`

	// Error is set when generation for this message failed.
	Error bool `json:"error,omitempty"`

	// FinishReason is set exactly once, when Loading transitions to false.
	FinishReason FinishReason `json:"finish_reason,omitempty"`

	// BackendVisible marks system messages that should be included in
	// request payloads. Local UI notices leave it false.
	BackendVisible bool `json:"-"`

	// Side payloads, immutable after creation.
	Variables map[string]string `json:"variables,omitempty"`
	Images    []Attachment      `json:"images,omitempty"`
	Files     []Attachment      `json:"files,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        newMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message, preserving the raw input text for
// later resend.
func NewUserMessage(content, raw string) *Message {
	msg := NewMessage(RoleUser, content)
	msg.RawContent = raw
	return msg
}

// NewAssistantMessage creates a streaming assistant placeholder with empty
// content and Loading set.
func NewAssistantMessage() *Message {
	return &Message{
		ID:        newMessageID(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
		Loading:   true,
	}
}

// NewSystemMessage creates a local system notice. It is not included in
// request payloads.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// NewBackendSystemMessage creates a system message that is submitted to the
// backend as part of the history.
func NewBackendSystemMessage(content string) *Message {
	msg := NewMessage(RoleSystem, content)
	msg.BackendVisible = true
	return msg
}

// NewErrorMessage creates a standalone error notice for the transcript.
func NewErrorMessage(content string) *Message {
	msg := NewMessage(RoleError, content)
	msg.Error = true
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Terminal reports whether the message has reached a terminal state.
func (m *Message) Terminal() bool {
	return !m.Loading
}

// ResendText returns the text a resend of this message should submit: the
// raw input if preserved, otherwise the displayed content.
func (m *Message) ResendText() string {
	if m.RawContent != "" {
		return m.RawContent
	}
	return m.Content
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	return util.TruncateRunes(m.Content, maxLen)
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// EstimateTokens gives a rough estimate of token count.
// Uses the approximation of ~4 characters per token.
func (m *Message) EstimateTokens() int {
	return (len(m.Content) + 3) / 4
}

// Clone returns a copy of the message. Maps and slices are copied so the
// clone is safe to hand to renderers while the original keeps mutating.
func (m *Message) Clone() *Message {
	clone := *m
	if m.Variables != nil {
		clone.Variables = make(map[string]string, len(m.Variables))
		for k, v := range m.Variables {
			clone.Variables[k] = v
		}
	}
	clone.Images = append([]Attachment(nil), m.Images...)
	clone.Files = append([]Attachment(nil), m.Files...)
	return &clone
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newMessageID creates a unique message ID.
func newMessageID() string {
	return "msg_" + uuid.NewString()
}
