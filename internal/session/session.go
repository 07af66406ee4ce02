// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/parley/internal/model"
)

// =============================================================================
// SESSION FACADE
// =============================================================================

// Session is the public surface consumed by the front ends. Each instance
// is keyed by a chat id; callers that have no natural id (widget-style
// embeds) get a generated one at construction.
type Session struct {
	id       string
	ctrl     *Controller
	feedback *FeedbackClient
}

// Option configures a Session.
type Option func(*Session)

// WithFeedback attaches the fire-and-forget rating side channel.
func WithFeedback(fc *FeedbackClient) Option {
	return func(s *Session) {
		s.feedback = fc
	}
}

// New creates a session facade. An empty id generates a fresh session id,
// which also scopes a fresh, disjoint transcript.
func New(id string, tr Transport, cfg Config, opts ...Option) *Session {
	if id == "" {
		id = "chat_" + uuid.NewString()
	}

	transcript := model.NewTranscript(id)
	s := &Session{
		id:   id,
		ctrl: NewController(id, tr, cfg, transcript),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Submit sends a prompt and starts streaming the reply.
func (s *Session) Submit(ctx context.Context, text string, opts SubmitOptions) error {
	return s.ctrl.Submit(ctx, text, opts)
}

// Cancel stops the in-flight generation, keeping partial output.
func (s *Session) Cancel() {
	s.ctrl.Cancel()
}

// Edit replaces a message's content in place.
func (s *Session) Edit(id, content string) error {
	return s.ctrl.Edit(id, content)
}

// Resend regenerates from the given message.
func (s *Session) Resend(ctx context.Context, id string, opts ResendOptions) error {
	return s.ctrl.Resend(ctx, id, opts)
}

// Delete removes exactly one message.
func (s *Session) Delete(id string) bool {
	return s.ctrl.Delete(id)
}

// Clear cancels any in-flight generation and empties the transcript. It is
// the only operation that changes the retained set without per-id
// addressing.
func (s *Session) Clear() {
	s.ctrl.Clear()
}

// =============================================================================
// READ SURFACE
// =============================================================================

// Transcript returns an ordered snapshot of the session messages.
func (s *Session) Transcript() []*model.Message {
	return s.ctrl.Transcript().Messages()
}

// Store returns the underlying transcript store, for callers that want the
// lazy sequence or token accounting.
func (s *Session) Store() *model.Transcript {
	return s.ctrl.Transcript()
}

// Processing reports whether a generation is in flight.
func (s *Session) Processing() bool {
	return s.ctrl.Processing()
}

// State returns the controller state, for status display.
func (s *Session) State() State {
	return s.ctrl.State()
}

// LastError returns the error behind the most recent failed generation.
func (s *Session) LastError() error {
	return s.ctrl.LastError()
}

// SetConfig replaces the generation parameters for subsequent requests.
// Used when the configuration file is hot-reloaded.
func (s *Session) SetConfig(cfg Config) {
	s.ctrl.SetConfig(cfg)
}

// =============================================================================
// FEEDBACK
// =============================================================================

// Rate submits a rating for a finished assistant message. It is
// fire-and-forget: failures are logged, never surfaced, and nothing feeds
// back into the session state machine.
func (s *Session) Rate(messageID string, rating Rating) {
	if s.feedback == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.feedback.Submit(ctx, s.id, messageID, rating); err != nil {
			log.Printf("session: feedback for %s dropped: %v", messageID, err)
		}
	}()
}
