// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Configuration constants for the chat backend.
const (
	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size for
	// non-streaming requests.
	MaxResponseSize = 2 * 1024 * 1024
)

var (
	// Shared HTTP client with connection pooling for side-channel requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for the push stream. No timeout; the
	// connection lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one chat backend, addressed by {appID, chatID} pairs.
type Client struct {
	baseURL string
	appID   string
	apiKey  string

	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a transport client for the given backend and app.
func NewClient(baseURL, appID, apiKey string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		appID:        appID,
		apiKey:       apiKey,
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
	}
}

// WithHTTPClient overrides both HTTP clients. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamClient = hc
	return c
}

// IsConfigured reports whether the client can reach a backend.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.appID != ""
}

func (c *Client) streamURL(chatID string) string {
	return fmt.Sprintf("%s/v1/apps/%s/chats/%s/stream",
		c.baseURL, url.PathEscape(c.appID), url.PathEscape(chatID))
}

func (c *Client) messagesURL(chatID string) string {
	return fmt.Sprintf("%s/v1/apps/%s/chats/%s/messages",
		c.baseURL, url.PathEscape(c.appID), url.PathEscape(chatID))
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", "parley")
}

// =============================================================================
// STREAM OPEN
// =============================================================================

// Open opens the push stream for a chat and returns a handle delivering
// decoded events. Each handle owns exactly one connection; to start a new
// generation the caller closes the previous handle and opens a new one.
//
// The returned handle's Close is idempotent and safe to call after done or
// error events have already fired.
func (c *Client) Open(ctx context.Context, chatID string) (*Handle, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.streamURL(chatID), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, &ConnectionError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		cancel()
		return nil, decodeHTTPError(resp.StatusCode, body)
	}

	h := &Handle{
		events: make(chan Event, 64),
		cancel: cancel,
		body:   resp.Body,
	}
	go h.read()
	return h, nil
}

// =============================================================================
// STREAM HANDLE
// =============================================================================

// Handle is one open stream connection. Events are delivered on Events()
// until a terminal event (done or error) fires, after which the channel is
// closed.
type Handle struct {
	events    chan Event
	cancel    context.CancelFunc
	body      io.ReadCloser
	closeOnce sync.Once
}

// Events returns the decoded event channel for this connection.
func (h *Handle) Events() <-chan Event {
	return h.events
}

// Close tears the connection down. It is idempotent and safe to call after
// the stream has already terminated.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.cancel()
		h.body.Close()
	})
}

// read decodes the SSE stream into events. It accumulates chunk deltas so
// every chunk event carries the cumulative text.
func (h *Handle) read() {
	defer close(h.events)
	defer h.Close()

	reader := NewSSEReader(h.body)
	var accumulated strings.Builder
	connected := false

	for {
		eventType, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF && !connected {
				// Stream ended before it ever connected.
				h.events <- Event{Kind: EventError, Err: &ConnectionError{Err: io.ErrUnexpectedEOF}}
				return
			}
			h.events <- Event{Kind: EventError, Err: &ConnectionError{Err: err}}
			return
		}

		switch eventType {
		case "connected":
			connected = true
			h.events <- Event{Kind: EventConnected}

		case "chunk":
			var payload chunkPayload
			if jsonErr := json.Unmarshal(data, &payload); jsonErr != nil {
				// Skip malformed chunks
				continue
			}
			accumulated.WriteString(payload.Content)
			h.events <- Event{Kind: EventChunk, Content: accumulated.String()}

		case "done":
			var payload donePayload
			if jsonErr := json.Unmarshal(data, &payload); jsonErr != nil {
				h.events <- Event{Kind: EventError, Err: &ConnectionError{Err: jsonErr}}
				return
			}
			final := payload.Content
			if final == "" {
				final = accumulated.String()
			}
			h.events <- Event{
				Kind:         EventDone,
				Content:      final,
				FinishReason: payload.FinishReason,
			}
			return

		case "error":
			var payload errorPayload
			_ = json.Unmarshal(data, &payload)
			h.events <- Event{Kind: EventError, Err: &BackendError{
				Code:    payload.Code,
				Message: payload.Message,
			}}
			return
		}
		// Unknown event types are ignored for forward compatibility.
	}
}

// =============================================================================
// SIDE-CHANNEL SEND
// =============================================================================

// Send performs the side-channel request that triggers generation on an
// already-open stream.
func (c *Client) Send(ctx context.Context, chatID string, req Request) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(chatID), bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return decodeHTTPError(resp.StatusCode, body)
	}
	return nil
}

// =============================================================================
// ERROR DECODING
// =============================================================================

// apiErrorResponse is the error envelope the backend uses for non-200
// responses.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeHTTPError maps a non-200 response onto the error taxonomy.
func decodeHTTPError(status int, body []byte) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ErrAuthRequired
	}

	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &BackendError{
			Status:  status,
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &BackendError{Status: status, Message: msg}
}
