// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"sync"
	"time"
)

// MaxMessages is the maximum number of messages to keep in a transcript.
// When exceeded, old messages are pruned to prevent unbounded memory growth.
// System messages survive pruning.
const MaxMessages = 1000

// ErrInvalidRole is returned by Append when a message carries an unknown role.
var ErrInvalidRole = errors.New("invalid message role")

// =============================================================================
// PATCH TYPE
// =============================================================================

// Patch describes a shallow merge into an existing message. Nil fields are
// left untouched.
type Patch struct {
	Content      *string
	RawContent   *string
	Loading      *bool
	Error        *bool
	FinishReason *FinishReason
}

// PatchContent builds a patch that only replaces the content.
func PatchContent(content string) Patch {
	return Patch{Content: &content}
}

// PatchFinished builds the terminal patch applied when a message leaves the
// loading state.
func PatchFinished(content string, reason FinishReason, failed bool) Patch {
	loading := false
	return Patch{
		Content:      &content,
		Loading:      &loading,
		Error:        &failed,
		FinishReason: &reason,
	}
}

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript holds the ordered message list for one chat session.
//
// Order is insertion order and is never re-sorted. IDs are unique within a
// session and never reused. Mutation happens through the methods below; all
// read accessors return copies so renderers never observe a message while it
// is being patched.
type Transcript struct {
	mu       sync.Mutex
	messages []*Message

	// Identity and bookkeeping
	sessionID string
	title     string
	updatedAt time.Time

	// Context tracking
	tokensUsed int
	maxTokens  int
}

// NewTranscript creates an empty transcript scoped to one session identifier.
func NewTranscript(sessionID string) *Transcript {
	return &Transcript{
		sessionID: sessionID,
		messages:  make([]*Message, 0),
		maxTokens: 128000, // Default context window
		updatedAt: time.Now(),
	}
}

// SessionID returns the session identifier this transcript is scoped to.
func (t *Transcript) SessionID() string {
	return t.sessionID
}

// =============================================================================
// MUTATION
// =============================================================================

// Append inserts a message at the end and returns its id.
// It fails only on an invalid role.
func (t *Transcript) Append(msg *Message) (string, error) {
	if !msg.Role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, msg.Role)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = append(t.messages, msg)
	t.updatedAt = time.Now()
	t.updateTitleLocked()
	t.updateTokenEstimateLocked()
	t.pruneLocked()
	return msg.ID, nil
}

// Update shallow-merges the patch into the message with the given id.
// A missing id is a logged no-op; this tolerates late streaming events that
// arrive after a message has been deleted.
func (t *Transcript) Update(id string, p Patch) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg := t.findLocked(id)
	if msg == nil {
		log.Printf("transcript: update for absent message %s dropped", id)
		return false
	}

	if p.Content != nil {
		msg.Content = *p.Content
	}
	if p.RawContent != nil {
		msg.RawContent = *p.RawContent
	}
	if p.Loading != nil {
		msg.Loading = *p.Loading
	}
	if p.Error != nil {
		msg.Error = *p.Error
	}
	if p.FinishReason != nil {
		msg.FinishReason = *p.FinishReason
	}

	t.updatedAt = time.Now()
	t.updateTokenEstimateLocked()
	return true
}

// Remove deletes exactly the message with the given id. It does not cascade;
// cascading deletion is a caller-level policy built on RemoveFrom.
func (t *Transcript) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, msg := range t.messages {
		if msg.ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			t.updatedAt = time.Now()
			t.updateTokenEstimateLocked()
			return true
		}
	}
	return false
}

// RemoveFunc deletes every message the predicate matches and returns the
// number removed.
func (t *Transcript) RemoveFunc(pred func(*Message) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.messages[:0]
	removed := 0
	for _, msg := range t.messages {
		if pred(msg) {
			removed++
			continue
		}
		kept = append(kept, msg)
	}
	t.messages = kept
	if removed > 0 {
		t.updatedAt = time.Now()
		t.updateTokenEstimateLocked()
	}
	return removed
}

// RemoveFrom deletes the message with the given id and everything after it,
// returning the number removed. This is the cascade used by resend.
func (t *Transcript) RemoveFrom(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, msg := range t.messages {
		if msg.ID == id {
			removed := len(t.messages) - i
			t.messages = t.messages[:i]
			t.updatedAt = time.Now()
			t.updateTokenEstimateLocked()
			return removed
		}
	}
	return 0
}

// Clear removes all messages.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = make([]*Message, 0)
	t.tokensUsed = 0
	t.title = ""
	t.updatedAt = time.Now()
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Get returns a copy of the message with the given id.
func (t *Transcript) Get(id string) (*Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msg := t.findLocked(id); msg != nil {
		return msg.Clone(), true
	}
	return nil, false
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// IsEmpty returns true if there are no messages.
func (t *Transcript) IsEmpty() bool {
	return t.Len() == 0
}

// Messages returns a snapshot of the transcript in order. The returned
// messages are copies.
func (t *Transcript) Messages() []*Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Message, len(t.messages))
	for i, msg := range t.messages {
		out[i] = msg.Clone()
	}
	return out
}

// All returns a lazy, restartable sequence over a snapshot of the transcript
// in order. Ranging over it twice yields the same messages.
func (t *Transcript) All() iter.Seq[*Message] {
	snapshot := t.Messages()
	return func(yield func(*Message) bool) {
		for _, msg := range snapshot {
			if !yield(msg) {
				return
			}
		}
	}
}

// Loading returns a copy of the currently-loading message, if any. At most
// one message is loading at a time.
func (t *Transcript) Loading() (*Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Loading {
			return t.messages[i].Clone(), true
		}
	}
	return nil, false
}

// PrecedingUser returns a copy of the nearest user message strictly before
// the message with the given id. Used by resend of an assistant message.
func (t *Transcript) PrecedingUser(id string) (*Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := -1
	for i, msg := range t.messages {
		if msg.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	for i := idx - 1; i >= 0; i-- {
		if t.messages[i].Role == RoleUser {
			return t.messages[i].Clone(), true
		}
	}
	return nil, false
}

// =============================================================================
// TOKEN TRACKING
// =============================================================================

// EstimateTokens estimates the total token count of the transcript.
func (t *Transcript) EstimateTokens() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimateTokensLocked()
}

func (t *Transcript) estimateTokensLocked() int {
	total := 0
	for _, msg := range t.messages {
		total += msg.EstimateTokens()
		// Overhead for message structure (~4 tokens per message)
		total += 4
	}
	return total
}

func (t *Transcript) updateTokenEstimateLocked() {
	t.tokensUsed = t.estimateTokensLocked()
}

// ContextPercent returns the percentage of the context window used.
func (t *Transcript) ContextPercent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxTokens <= 0 {
		return 0
	}
	return float64(t.tokensUsed) / float64(t.maxTokens) * 100
}

// SetMaxTokens updates the context window used for percentage tracking.
func (t *Transcript) SetMaxTokens(max int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maxTokens = max
}

// =============================================================================
// TITLE
// =============================================================================

// Title returns the transcript title, derived from the first user message.
func (t *Transcript) Title() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.title != "" {
		return t.title
	}
	return "New Conversation"
}

func (t *Transcript) updateTitleLocked() {
	if t.title != "" {
		return
	}
	for _, msg := range t.messages {
		if msg.Role == RoleUser {
			t.title = msg.Preview(50)
			return
		}
	}
}

// =============================================================================
// INTERNALS
// =============================================================================

func (t *Transcript) findLocked(id string) *Message {
	for _, msg := range t.messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// pruneLocked removes old messages when the transcript exceeds MaxMessages,
// keeping system messages and the most recent non-system messages.
func (t *Transcript) pruneLocked() {
	if len(t.messages) <= MaxMessages {
		return
	}

	var system []*Message
	var other []*Message
	for _, msg := range t.messages {
		if msg.Role == RoleSystem {
			system = append(system, msg)
		} else {
			other = append(other, msg)
		}
	}

	if len(other) > MaxMessages {
		other = other[len(other)-MaxMessages:]
	}

	t.messages = make([]*Message, 0, len(system)+len(other))
	t.messages = append(t.messages, system...)
	t.messages = append(t.messages, other...)
}
