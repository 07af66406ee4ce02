// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// FEEDBACK SIDE CHANNEL
// =============================================================================

// Rating is a user verdict on an assistant message.
type Rating int

const (
	RatingUp   Rating = 1
	RatingDown Rating = -1
)

// ErrFeedbackThrottled is returned when ratings are submitted faster than
// the side channel allows. Fire-and-forget callers drop it.
var ErrFeedbackThrottled = errors.New("feedback throttled")

// FeedbackClient posts ratings keyed by message id. Submissions are rate
// limited locally; a burst of repeated clicks never floods the backend.
type FeedbackClient struct {
	baseURL    string
	appID      string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFeedbackClient creates a feedback client for the given backend.
func NewFeedbackClient(baseURL, appID, apiKey string) *FeedbackClient {
	return &FeedbackClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      appID,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 5),
	}
}

// feedbackPayload is the wire body of a rating submission.
type feedbackPayload struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	Rating    int    `json:"rating"`
}

// Submit posts one rating. The call does not retry and does not feed back
// into session state.
func (f *FeedbackClient) Submit(ctx context.Context, chatID, messageID string, rating Rating) error {
	if !f.limiter.Allow() {
		return ErrFeedbackThrottled
	}

	body, err := json.Marshal(feedbackPayload{
		ChatID:    chatID,
		MessageID: messageID,
		Rating:    int(rating),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/apps/%s/feedback", f.baseURL, url.PathEscape(f.appID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create feedback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("feedback rejected: HTTP %d", resp.StatusCode)
	}
	return nil
}
