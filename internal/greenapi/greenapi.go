// Package greenapi wraps the Green API REST endpoints used for WhatsApp
// messaging in LeadPipe.
//
// It provides methods for sending plain text messages and interactive
// button messages to a chat.
package greenapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/arenaleads/leadpipe/internal/models"
)

// Constants for Green API client configuration
const (
	// DefaultBaseURL is the public Green API endpoint
	DefaultBaseURL = "https://api.green-api.com"
	// DefaultRequestTimeout bounds a single API call
	DefaultRequestTimeout = 30 * time.Second
)

// Sender is an interface for sending messages through Green API
// (for production and testing).
type Sender interface {
	SendMessage(ctx context.Context, chatID string, text string) error
	SendButtons(ctx context.Context, chatID string, text string, buttons []models.Button) error
}

// Opts holds configuration options for the Green API client.
type Opts struct {
	InstanceID string
	APIToken   string
	BaseURL    string
	HTTPClient *http.Client
}

// Option defines a configuration option for the Green API client.
type Option func(*Opts)

// WithInstanceID sets the Green API instance identifier.
func WithInstanceID(id string) Option {
	return func(o *Opts) {
		o.InstanceID = id
	}
}

// WithAPIToken sets the Green API instance token.
func WithAPIToken(token string) Option {
	return func(o *Opts) {
		o.APIToken = token
	}
}

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(url string) Option {
	return func(o *Opts) {
		o.BaseURL = url
	}
}

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = client
	}
}

// Client calls the Green API instance endpoints over HTTP.
type Client struct {
	instanceID string
	apiToken   string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Green API client, applying any provided options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("GreenAPI NewClient options set", "instance_set", cfg.InstanceID != "", "token_set", cfg.APIToken != "", "base_url_set", cfg.BaseURL != "")

	if cfg.InstanceID == "" {
		return nil, fmt.Errorf("green api instance ID not set")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("green api token not set")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	return &Client{
		instanceID: cfg.InstanceID,
		apiToken:   cfg.APIToken,
		baseURL:    baseURL,
		httpClient: httpClient,
	}, nil
}

// sendMessageRequest is the payload for the sendMessage endpoint.
type sendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// sendButtonsRequest is the payload for the sendButtons endpoint.
type sendButtonsRequest struct {
	ChatID  string          `json:"chatId"`
	Message string          `json:"message"`
	Buttons []models.Button `json:"buttons"`
}

// SendMessage sends a plain text message to the given chat.
func (c *Client) SendMessage(ctx context.Context, chatID string, text string) error {
	if chatID == "" {
		return fmt.Errorf("chat ID cannot be empty")
	}
	if text == "" {
		return fmt.Errorf("message text cannot be empty")
	}
	slog.Debug("GreenAPI SendMessage invoked", "chat_id", chatID, "text_length", len(text))
	return c.post(ctx, "sendMessage", sendMessageRequest{ChatID: chatID, Message: text})
}

// SendButtons sends a text message with interactive reply buttons.
// Some WhatsApp clients do not render buttons; callers that need a
// guaranteed rendering should fall back to a numbered list on error.
func (c *Client) SendButtons(ctx context.Context, chatID string, text string, buttons []models.Button) error {
	if chatID == "" {
		return fmt.Errorf("chat ID cannot be empty")
	}
	if len(buttons) == 0 {
		return fmt.Errorf("buttons cannot be empty")
	}
	slog.Debug("GreenAPI SendButtons invoked", "chat_id", chatID, "buttons", len(buttons))
	return c.post(ctx, "sendButtons", sendButtonsRequest{ChatID: chatID, Message: text, Buttons: buttons})
}

// post issues a JSON POST to the named instance method.
func (c *Client) post(ctx context.Context, method string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("GreenAPI request marshal failed", "error", err, "method", method)
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	url := fmt.Sprintf("%s/waInstance%s/%s/%s", c.baseURL, c.instanceID, method, c.apiToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		slog.Error("GreenAPI request build failed", "error", err, "method", method)
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("GreenAPI request failed", "error", err, "method", method)
		return fmt.Errorf("green api %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("GreenAPI request returned error status", "method", method, "status", resp.StatusCode, "body", string(respBody))
		return fmt.Errorf("green api %s returned status %d", method, resp.StatusCode)
	}

	slog.Debug("GreenAPI request succeeded", "method", method, "status", resp.StatusCode)
	return nil
}

// MockClient implements Sender but records messages instead of sending them
// (for tests).
type MockClient struct {
	Messages []MockMessage
	Err      error
}

// MockMessage is a recorded send.
type MockMessage struct {
	ChatID  string
	Text    string
	Buttons []models.Button
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SendMessage(ctx context.Context, chatID string, text string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, MockMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *MockClient) SendButtons(ctx context.Context, chatID string, text string, buttons []models.Button) error {
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, MockMessage{ChatID: chatID, Text: text, Buttons: buttons})
	return nil
}
