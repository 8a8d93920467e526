// Package api implements the HTTP client for the charge backend contract:
// fetching a charge by code and requesting its cancellation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/types"
)

// Client is an HTTP client for the charge backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	validate   *validator.Validate
	log        logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAPIKey sets the bearer token sent on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a new backend client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		validate: validator.New(),
		log:      logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// dataEnvelope is the backend's success envelope.
type dataEnvelope struct {
	Data types.Charge `json:"data"`
}

// errorEnvelope is the backend's error envelope.
type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchCharge fetches the authoritative charge snapshot by code. A backend
// in scheduled maintenance fails with a *types.APIError whose
// IsMaintenance() is true.
func (c *Client) FetchCharge(ctx context.Context, code string) (*types.Charge, error) {
	return c.chargeRequest(ctx, http.MethodGet, "/charges/"+code)
}

// CancelCharge asks the backend to cancel the charge and returns the
// resulting snapshot. A charge whose state forbids cancellation fails with a
// 4xx-class *types.APIError.
func (c *Client) CancelCharge(ctx context.Context, code string) (*types.Charge, error) {
	return c.chargeRequest(ctx, http.MethodPost, "/charges/"+code+"/cancel")
}

func (c *Client) chargeRequest(ctx context.Context, method, path string) (*types.Charge, error) {
	body, err := c.doRequest(ctx, method, path, nil)
	if err != nil {
		return nil, err
	}

	var envelope dataEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode charge: %w", err)
	}

	if err := c.validate.Struct(&envelope.Data); err != nil {
		return nil, fmt.Errorf("invalid charge payload: %w", err)
	}

	return &envelope.Data, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &types.APIError{StatusCode: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.Unmarshal(respBody, &envelope); err == nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Message = envelope.Error.Message
		}
		c.log.Debug("backend request failed", map[string]any{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
			"type":   apiErr.Type,
		})
		return nil, apiErr
	}

	return respBody, nil
}
