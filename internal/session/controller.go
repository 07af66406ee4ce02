// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/parley/internal/model"
	"github.com/jeranaias/parley/internal/transport"
)

// =============================================================================
// TRANSPORT BOUNDARY
// =============================================================================

// Stream is one open push connection delivering decoded events until a
// terminal event, after which the channel is closed. Close is idempotent.
type Stream interface {
	Events() <-chan transport.Event
	Close()
}

// Transport opens streams and performs the side-channel send that triggers
// generation. The controller is tested against synthetic implementations of
// this interface; the HTTP client in internal/transport is the real one.
type Transport interface {
	Open(ctx context.Context, chatID string) (Stream, error)
	Send(ctx context.Context, chatID string, req transport.Request) error
}

// clientTransport adapts *transport.Client to the Transport interface.
type clientTransport struct {
	c *transport.Client
}

func (t clientTransport) Open(ctx context.Context, chatID string) (Stream, error) {
	h, err := t.c.Open(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (t clientTransport) Send(ctx context.Context, chatID string, req transport.Request) error {
	return t.c.Send(ctx, chatID, req)
}

// NewClientTransport wraps the HTTP transport client for use by sessions.
func NewClientTransport(c *transport.Client) Transport {
	return clientTransport{c: c}
}

// =============================================================================
// CONTROLLER STATE
// =============================================================================

// State is the generation controller state.
type State int

const (
	// StateIdle means no generation is in flight.
	StateIdle State = iota
	// StateConnecting means the stream is open but no chunk has arrived.
	StateConnecting
	// StateStreaming means chunks are being applied to the transcript.
	StateStreaming
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Error variables for controller operations.
var (
	// ErrBusy is returned when submit or resend is called while a
	// generation is already in flight.
	ErrBusy = errors.New("a generation is already in flight")

	// ErrNotFound is returned when an operation addresses an absent id.
	ErrNotFound = errors.New("message not found")

	// ErrNoUserMessage is returned by resend of an assistant message that
	// has no preceding user message. The transcript is left untouched.
	ErrNoUserMessage = errors.New("no user message to resend")

	// ErrNotResendable is returned by resend of a system or error message.
	ErrNotResendable = errors.New("message is not resendable")
)

// =============================================================================
// GENERATION CONFIG
// =============================================================================

// Config holds the per-session generation parameters forwarded on every
// request.
type Config struct {
	ModelID      string
	Style        string
	Temperature  float64
	OutputFormat string
	Language     string

	// MaxTokens is the default token limit; 0 lets the backend decide.
	MaxTokens int

	// MaxTokensBoost is the limit used for retry-after-truncation. When
	// zero, four times MaxTokens is used.
	MaxTokensBoost int

	SendChatHistory bool
	SystemPrompt    string
}

// boostTokens returns the enlarged token limit for the truncation recovery
// path.
func (c Config) boostTokens() int {
	if c.MaxTokensBoost > 0 {
		return c.MaxTokensBoost
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens * 4
	}
	return 0
}

// =============================================================================
// OPERATION OPTIONS
// =============================================================================

// SubmitOptions carries the optional side payloads of one submit.
type SubmitOptions struct {
	// Raw is the pre-formatting user text preserved for resend. Empty
	// means the submitted text is its own raw form.
	Raw string

	Variables map[string]string
	Images    []model.Attachment
	Files     []model.Attachment

	// MaxTokens overrides the configured limit for this request only.
	MaxTokens int
}

// ResendOptions controls resend behavior.
type ResendOptions struct {
	// Override replaces the resent message's raw content.
	Override string

	// UseMaxTokens forwards the boosted token limit, for the recovery case
	// where the prior response was truncated.
	UseMaxTokens bool
}

// =============================================================================
// GENERATION CONTROLLER
// =============================================================================

// Controller owns the "at most one active generation" invariant for one
// session and wires stream events into transcript mutations.
//
// Every incoming event is checked against the current generation attempt
// token before being applied, so events from closed or superseded streams
// are dropped even if the network layer delivers them late.
type Controller struct {
	mu sync.Mutex

	chatID     string
	transcript *model.Transcript
	transport  Transport
	cfg        Config

	state        State
	attempt      string
	stream       Stream
	assistantID  string
	pending      transport.Request
	cancelStream context.CancelFunc
	lastErr      error
}

// NewController creates a controller for one session transcript.
func NewController(chatID string, tr Transport, cfg Config, transcript *model.Transcript) *Controller {
	return &Controller{
		chatID:     chatID,
		transcript: transcript,
		transport:  tr,
		cfg:        cfg,
	}
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Processing reports whether a generation is in flight.
func (c *Controller) Processing() bool {
	return c.State() != StateIdle
}

// LastError returns the error behind the most recent failed generation, or
// nil. It is informational; the authoritative failure state lives on the
// message.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Transcript returns the underlying transcript store.
func (c *Controller) Transcript() *model.Transcript {
	return c.transcript
}

// SetConfig replaces the generation parameters used by subsequent requests.
// A generation already in flight keeps the payload it was started with.
func (c *Controller) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit starts one generation: it appends the user message and an empty
// assistant placeholder, opens the stream, and triggers generation once the
// stream reports connected.
//
// Submit is allowed only from idle; a re-entrant call returns ErrBusy.
// Transport failures after this point are not returned — they resolve to
// message-level error state.
func (c *Controller) Submit(ctx context.Context, text string, opts SubmitOptions) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}

	raw := opts.Raw
	if raw == "" {
		raw = text
	}

	// The payload is assembled from the transcript as it stands, before
	// the new pair is appended, so assembly stays deterministic.
	assembler := Assembler{
		SendChatHistory: c.cfg.SendChatHistory,
		SystemPrompt:    c.cfg.SystemPrompt,
	}
	next := transport.ChatMessage{Role: "user", Content: text}
	payload := assembler.Assemble(c.transcript.Messages(), next)

	maxTokens := c.cfg.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	req := transport.Request{
		Messages:     payload,
		ModelID:      c.cfg.ModelID,
		Style:        c.cfg.Style,
		Temperature:  c.cfg.Temperature,
		OutputFormat: c.cfg.OutputFormat,
		Language:     c.cfg.Language,
		MaxTokens:    maxTokens,
	}

	user := model.NewUserMessage(text, raw)
	user.Variables = opts.Variables
	user.Images = opts.Images
	user.Files = opts.Files
	if _, err := c.transcript.Append(user); err != nil {
		c.mu.Unlock()
		return err
	}

	asst := model.NewAssistantMessage()
	if _, err := c.transcript.Append(asst); err != nil {
		c.mu.Unlock()
		return err
	}

	attempt := uuid.NewString()
	genCtx, cancel := context.WithCancel(ctx)

	c.state = StateConnecting
	c.attempt = attempt
	c.assistantID = asst.ID
	c.pending = req
	c.cancelStream = cancel
	c.lastErr = nil
	c.mu.Unlock()

	stream, err := c.transport.Open(genCtx, c.chatID)

	c.mu.Lock()
	if c.attempt != attempt {
		// Cancelled while the connection was being opened.
		c.mu.Unlock()
		if stream != nil {
			stream.Close()
		}
		cancel()
		return nil
	}
	if err != nil {
		c.failLocked(err)
		c.mu.Unlock()
		return nil
	}
	c.stream = stream
	c.mu.Unlock()

	go c.consume(genCtx, attempt, stream)
	return nil
}

// consume drains one stream, applying events that still belong to the
// current attempt.
func (c *Controller) consume(ctx context.Context, attempt string, stream Stream) {
	for ev := range stream.Events() {
		switch ev.Kind {
		case transport.EventConnected:
			c.mu.Lock()
			if c.attempt != attempt {
				c.mu.Unlock()
				return
			}
			req := c.pending
			c.mu.Unlock()

			// Two-phase handshake: the stream is connected, now trigger
			// generation over the side channel.
			if err := c.transport.Send(ctx, c.chatID, req); err != nil {
				c.fail(attempt, err)
				return
			}

		case transport.EventChunk:
			c.applyChunk(attempt, ev.Content)

		case transport.EventDone:
			c.finish(attempt, ev.Content, model.ParseFinishReason(ev.FinishReason))
			return

		case transport.EventError:
			c.fail(attempt, ev.Err)
			return
		}
	}
}

// applyChunk applies one cumulative chunk to the assistant placeholder.
func (c *Controller) applyChunk(attempt, cumulative string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt != attempt {
		log.Printf("session: dropping stale chunk for attempt %s", attempt)
		return
	}

	c.state = StateStreaming

	// Content only ever grows while loading; a shorter cumulative text
	// would violate the monotonic-growth invariant and is ignored.
	if current, ok := c.transcript.Get(c.assistantID); ok {
		if len(cumulative) < len(current.Content) {
			return
		}
	}
	c.transcript.Update(c.assistantID, model.PatchContent(cumulative))
}

// finish applies graceful completion and returns the controller to idle.
func (c *Controller) finish(attempt, final string, reason model.FinishReason) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt != attempt {
		return
	}

	c.transcript.Update(c.assistantID, model.PatchFinished(final, reason, false))
	c.teardownLocked()
}

// fail converts a transport-level failure into message-level state.
func (c *Controller) fail(attempt string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != attempt {
		return
	}
	c.failLocked(err)
}

func (c *Controller) failLocked(err error) {
	reason := model.FinishError
	if transport.IsConnectionDrop(err) {
		reason = model.FinishConnectionClosed
	}

	loading := false
	failed := true
	c.transcript.Update(c.assistantID, model.Patch{
		Loading:      &loading,
		Error:        &failed,
		FinishReason: &reason,
	})
	c.lastErr = err
	c.teardownLocked()
}

// teardownLocked closes the current stream and returns to idle. Clearing
// the attempt token is what makes any still-buffered events stale.
func (c *Controller) teardownLocked() {
	if c.stream != nil {
		c.stream.Close()
		c.stream = nil
	}
	if c.cancelStream != nil {
		c.cancelStream()
		c.cancelStream = nil
	}
	c.state = StateIdle
	c.attempt = ""
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel stops the in-flight generation, if any. The assistant message
// keeps whatever content was received so far — partial answers are useful.
// Calling Cancel with nothing in flight is a no-op, so a second call in a
// row changes nothing.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return
	}

	loading := false
	reason := model.FinishCancelled
	c.transcript.Update(c.assistantID, model.Patch{
		Loading:      &loading,
		FinishReason: &reason,
	})
	c.teardownLocked()
}

// =============================================================================
// EDIT / RESEND / DELETE
// =============================================================================

// Edit replaces a message's content in place. For user messages the raw
// content is replaced too, so a subsequent resend submits the edited text.
// Edit is allowed in any state.
func (c *Controller) Edit(id, content string) error {
	msg, ok := c.transcript.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	patch := model.PatchContent(content)
	if msg.Role == model.RoleUser {
		patch.RawContent = &content
	}
	c.transcript.Update(id, patch)
	return nil
}

// Resend regenerates from an earlier point in the transcript.
//
// For an assistant message, the nearest preceding user message is located,
// that user message and everything after it are removed, and its raw
// content (or the override) is resubmitted. For a user message, the message
// itself and everything after it are removed and resubmitted the same way.
//
// Resend is allowed only from idle.
func (c *Controller) Resend(ctx context.Context, id string, opts ResendOptions) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}

	msg, ok := c.transcript.Get(id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var user *model.Message
	switch msg.Role {
	case model.RoleUser:
		user = msg
	case model.RoleAssistant:
		prev, found := c.transcript.PrecedingUser(id)
		if !found {
			c.mu.Unlock()
			return ErrNoUserMessage
		}
		user = prev
	default:
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotResendable, msg.Role)
	}

	text := user.ResendText()
	if opts.Override != "" {
		text = opts.Override
	}

	sopts := SubmitOptions{
		Raw:       text,
		Variables: user.Variables,
		Images:    user.Images,
		Files:     user.Files,
	}
	if opts.UseMaxTokens {
		sopts.MaxTokens = c.cfg.boostTokens()
	}

	// Cascade: the user message and everything after it, including the
	// assistant reply being regenerated, are removed before resubmitting.
	c.transcript.RemoveFrom(user.ID)
	c.mu.Unlock()

	return c.Submit(ctx, text, sopts)
}

// Delete removes exactly one message, without cascading. Deleting the
// currently-loading assistant message implicitly cancels its generation
// first.
func (c *Controller) Delete(id string) bool {
	c.mu.Lock()
	if id == c.assistantID && c.state != StateIdle {
		loading := false
		reason := model.FinishCancelled
		c.transcript.Update(c.assistantID, model.Patch{
			Loading:      &loading,
			FinishReason: &reason,
		})
		c.teardownLocked()
	}
	c.mu.Unlock()

	return c.transcript.Remove(id)
}

// Clear cancels any in-flight generation and empties the transcript.
func (c *Controller) Clear() {
	c.Cancel()
	c.transcript.Clear()
}
