package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
)

const (
	defaultBaseURL           = "https://api.anthropic.com"
	defaultModel             = "claude-sonnet-4-20250514"
	defaultMaxTokens         = 1024
	apiVersion               = "2023-06-01"
	errorBodyReadLimit       = 4096
	responseBodyLimit  int64 = 1 << 20
)

var errAPIKeyRequired = errors.New("vision api key is required")

// Client calls the Anthropic Messages API with a single image and prompt.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithModel selects the model used for every request.
func WithModel(model string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			c.model = trimmed
		}
	}
}

// WithMaxTokens caps the length of the model reply.
func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewClient builds the vision client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ImageRequest is one image plus the instruction to apply to it.
type ImageRequest struct {
	MediaType string
	Data      []byte
	Prompt    string
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
}

// DescribeImage sends the image and prompt and returns the text of the reply.
// Non-200 replies become EXTRACTION_FAILED errors carrying the upstream body
// under details.details.
func (c *Client) DescribeImage(ctx context.Context, req ImageRequest) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeExtractionFailed, "Failed to analyze image").
			WithDetails(map[string]any{"details": "vision client not configured"})
	}
	if len(req.Data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "No image provided")
	}

	mediaType := strings.TrimSpace(req.MediaType)
	if mediaType == "" {
		mediaType = "image/jpeg"
	}

	body := messageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      base64.StdEncoding.EncodeToString(req.Data),
				}},
				{Type: "text", Text: req.Prompt},
			},
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal vision request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build vision request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeExtractionFailed, err, "Failed to analyze image").
			WithDetails(map[string]any{"details": err.Error()})
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		detail := strings.TrimSpace(string(msg))
		return "", pkgerrors.Wrap(pkgerrors.CodeExtractionFailed, fmt.Errorf("status %d: %s", resp.StatusCode, detail), "Failed to analyze image").
			WithDetails(map[string]any{"details": detail})
	}

	var apiResp messageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyLimit)).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeExtractionFailed, err, "Failed to analyze image").
			WithDetails(map[string]any{"details": "decode vision response"})
	}

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
