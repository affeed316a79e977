// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/damazzy/mira-chatbot/internal/model"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the base URL for the Mira backend.
	DefaultBaseURL = "https://api-test.mirahr.ai"

	// DefaultTimeout is the timeout for non-streaming API requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps response bodies read into memory.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

var (
	// sharedHTTPClient pools connections for all non-streaming requests.
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

	// sharedStreamingClient is used for streaming requests. No client
	// timeout; the overall turn deadline is carried by the context.
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

// Error variables for common backend errors.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrServerError indicates a 5xx response from the backend.
	ErrServerError = errors.New("server error")
)

// APIError represents a normalized error response from the backend.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("api error (HTTP %d)", e.Status)
}

// Is allows APIError to be compared against the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrServerError:
		return e.Status >= 500
	}
	return false
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is the typed gateway to the Mira backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streaming  *http.Client
}

// NewClient creates a gateway client for the given base URL with
// DefaultTimeout for non-streaming calls. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, DefaultTimeout)
}

// NewClientWithTimeout creates a gateway client with a configured
// request timeout. Streaming requests stay unbounded here; the overall
// turn deadline is carried by the caller's context.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := sharedHTTPClient
	if timeout != DefaultTimeout && timeout > 0 {
		httpClient = &http.Client{
			Transport: sharedHTTPClient.Transport,
			Timeout:   timeout,
		}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		streaming:  sharedStreamingClient,
	}
}

// BaseURL returns the backend base URL this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// doJSON issues a request with an optional JSON body and decodes a JSON
// response into out (skipped when out is nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return normalizeError(resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// normalizeError converts a non-2xx response into an *APIError, parsing
// `{"detail": ...}` bodies when present.
func normalizeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err == nil && len(body) > 0 {
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
			apiErr.Detail = payload.Detail
		}
	}
	return apiErr
}

// =============================================================================
// MODELS
// =============================================================================

// ModelInfo describes one entry of the model catalog.
type ModelInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Provider       string `json:"provider"`
	Description    string `json:"description"`
	ContextWindow  int    `json:"context_window"`
	SupportsVision bool   `json:"supports_vision"`
	SupportsTools  bool   `json:"supports_tools"`
	IsDefault      bool   `json:"is_default"`
}

// ModelsList is the model catalog with the server's default selection.
type ModelsList struct {
	Models       []ModelInfo `json:"models"`
	DefaultModel string      `json:"default_model"`
}

// Models fetches the supported model catalog.
func (c *Client) Models(ctx context.Context) (*ModelsList, error) {
	var out ModelsList
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/models", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSessionRequest is the body for session creation.
type CreateSessionRequest struct {
	UserID       string   `json:"user_id"`
	Model        *string  `json:"model,omitempty"`
	Title        *string  `json:"title,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
}

// UpdateSessionRequest is the body for a partial session update.
type UpdateSessionRequest struct {
	Title        *string  `json:"title,omitempty"`
	Model        *string  `json:"model,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	MaxTokens    *int     `json:"max_tokens,omitempty"`
	SystemPrompt *string  `json:"system_prompt,omitempty"`
}

// CreateSession creates a new conversation for a user.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat/sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions lists a user's conversations, most recent first.
func (c *Client) Sessions(ctx context.Context, userID string, limit, offset int) ([]model.Summary, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out []model.Summary
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/sessions?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Session fetches one conversation by ID.
func (c *Client) Session(ctx context.Context, sessionID string) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/sessions/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSession applies a partial update to a conversation.
func (c *Client) UpdateSession(ctx context.Context, sessionID string, req UpdateSessionRequest) (*model.Conversation, error) {
	var out model.Conversation
	if err := c.doJSON(ctx, http.MethodPatch, "/api/chat/sessions/"+url.PathEscape(sessionID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession deletes a conversation.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/chat/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// =============================================================================
// MESSAGES
// =============================================================================

// MessageRecord is the wire shape of a persisted message. Content is flat
// text; Message converts it into the client's part-based representation.
type MessageRecord struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	SequenceNumber int       `json:"sequence_number"`
	InputTokens    int       `json:"input_tokens"`
	OutputTokens   int       `json:"output_tokens"`
	TotalTokens    int       `json:"total_tokens"`
	CreatedAt      time.Time `json:"created_at"`
}

// Message converts the record to the client's domain shape, with the flat
// content string becoming a single text part.
func (r MessageRecord) Message() *model.Message {
	return &model.Message{
		ID:             r.ID,
		SessionID:      r.SessionID,
		Role:           model.Role(r.Role),
		CreatedAt:      r.CreatedAt,
		Parts:          []model.Part{{Kind: model.PartText, Content: r.Content}},
		SequenceNumber: r.SequenceNumber,
		InputTokens:    r.InputTokens,
		OutputTokens:   r.OutputTokens,
		TotalTokens:    r.TotalTokens,
	}
}

// Messages fetches a conversation's message history in sequence order.
func (c *Client) Messages(ctx context.Context, sessionID string, limit, offset int) ([]MessageRecord, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	path := "/api/chat/sessions/" + url.PathEscape(sessionID) + "/messages?" + q.Encode()
	var out []MessageRecord
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// STREAMING TURN
// =============================================================================

// TurnMessage is one message of the turn request payload.
type TurnMessage struct {
	ID    string       `json:"id"`
	Role  string       `json:"role"`
	Parts []model.Part `json:"parts"`
}

// TurnRequest is the body posted to the streaming turn endpoint. The
// WebSearch flag is forwarded verbatim; the backend interprets it.
type TurnRequest struct {
	Messages    []TurnMessage `json:"messages"`
	Model       string        `json:"model"`
	WebSearch   bool          `json:"webSearch"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// StreamTurn opens the streaming turn request and returns the response for
// incremental consumption. A non-2xx status is normalized and the body is
// closed before returning; on success the caller owns the body.
func (c *Client) StreamTurn(ctx context.Context, req TurnRequest) (*http.Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streaming.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := normalizeError(resp)
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// =============================================================================
// USERS
// =============================================================================

// User is a backend user record.
type User struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              *string   `json:"name,omitempty"`
	PreferredLanguage *string   `json:"preferred_language,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UserStats aggregates a user's token usage.
type UserStats struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              *string   `json:"name,omitempty"`
	TotalMessages     int       `json:"total_messages"`
	TotalInputTokens  int       `json:"total_input_tokens"`
	TotalOutputTokens int       `json:"total_output_tokens"`
	TotalTokens       int       `json:"total_tokens"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateUser creates a user record.
func (c *Client) CreateUser(ctx context.Context, email, name string) (*User, error) {
	q := url.Values{}
	q.Set("email", email)
	if name != "" {
		q.Set("name", name)
	}

	var out User
	if err := c.doJSON(ctx, http.MethodPost, "/api/users/?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserByID fetches a user record.
func (c *Client) UserByID(ctx context.Context, userID string) (*User, error) {
	var out User
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches a user's usage statistics.
func (c *Client) Stats(ctx context.Context, userID string) (*UserStats, error) {
	var out UserStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health is the backend health report.
type Health struct {
	Status    string    `json:"status"`
	Database  bool      `json:"database"`
	Timestamp time.Time `json:"timestamp"`
	Version   *string   `json:"version,omitempty"`
}

// HealthCheck pings the backend.
func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
