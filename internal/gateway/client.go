// Package gateway talks to the novel persistence backend over HTTP/JSON.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Corphon/NovelBuilder/internal/errors"
	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/utils"
)

const maxErrorBody = 4 << 10

// Client is a persistence gateway client. The zero value is not usable; use
// NewClient.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *utils.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *utils.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  utils.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type resultResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GetNovel fetches a novel for editing.
func (c *Client) GetNovel(ctx context.Context, id int64) (*models.Novel, error) {
	return c.fetchNovel(ctx, "/api/novel/"+strconv.FormatInt(id, 10))
}

// ViewNovel fetches a novel through the reader endpoint.
func (c *Client) ViewNovel(ctx context.Context, id int64) (*models.Novel, error) {
	return c.fetchNovel(ctx, "/api/view/"+strconv.FormatInt(id, 10))
}

func (c *Client) fetchNovel(ctx context.Context, path string) (*models.Novel, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error != "" {
		return nil, apperrors.NewProcessingError(probe.Error, nil)
	}

	novel, err := models.DecodeNovel(body)
	if err != nil {
		return nil, apperrors.NewValidationError("backend returned malformed novel", err)
	}
	return novel, nil
}

// SaveNovel replaces the stored novel with payload.
func (c *Client) SaveNovel(ctx context.Context, id int64, payload models.NovelPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewValidationError("encode novel", err)
	}
	return c.result(ctx, "/api/save_novel/"+strconv.FormatInt(id, 10), data)
}

// PublishNovel marks a stored novel as published.
func (c *Client) PublishNovel(ctx context.Context, id int64) error {
	return c.result(ctx, "/api/publish_novel/"+strconv.FormatInt(id, 10), nil)
}

func (c *Client) result(ctx context.Context, path string, data []byte) error {
	body, err := c.do(ctx, http.MethodPost, path, data)
	if err != nil {
		return err
	}
	var res resultResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return apperrors.NewValidationError("backend returned malformed result", err)
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "request was not accepted"
		}
		return apperrors.NewProcessingError(msg, nil)
	}
	return nil
}

// do performs one request. Transport failures are Unavailable; non-2xx
// statuses carry the backend's error message when it sent one.
func (c *Client) do(ctx context.Context, method, path string, data []byte) ([]byte, error) {
	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperrors.NewValidationError("build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return nil, apperrors.NewUnavailableError("backend unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUnavailableError("read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

func statusError(status int, body []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil {
		msg = payload.Error
		if msg == "" {
			msg = payload.Message
		}
	}
	if msg == "" {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	cause := fmt.Errorf("status %d", status)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NewNotFoundError(msg, cause)
	case status == http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError(msg, cause)
	case status == http.StatusForbidden:
		return apperrors.NewForbiddenError(msg, cause)
	case status == http.StatusConflict:
		return apperrors.NewConflictError(msg, cause)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return apperrors.NewValidationError(msg, cause)
	case status == http.StatusTooManyRequests || status >= 500:
		return apperrors.NewUnavailableError(msg, cause)
	default:
		return apperrors.NewProcessingError(msg, cause)
	}
}
