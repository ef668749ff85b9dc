// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel ClientErrors by Type.
func (e *ClientError) Is(target error) bool {
	var t *ClientError
	if errors.As(target, &t) {
		return t.Type == e.Type && t.Message == ""
	}
	return false
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for errors.Is checks. They match any ClientError of the
// same Type.
var (
	ErrNotRunning      = &ClientError{Type: ErrTypeNotRunning}
	ErrTimeout         = &ClientError{Type: ErrTypeTimeout}
	ErrModelNotFound   = &ClientError{Type: ErrTypeModelNotFound}
	ErrInvalidResponse = &ClientError{Type: ErrTypeInvalidResponse}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	// Explicit IPv4 avoids IPv6 resolution issues on Windows.
	BaseURL string

	// Timeout for short requests such as health checks (default: 10s)
	Timeout time.Duration

	// GenerateTimeout bounds create and generate calls, which may load a
	// model from disk first (default: 5m)
	GenerateTimeout time.Duration

	// KeepAlive is how long the server keeps a model loaded between calls
	KeepAlive string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:         "http://127.0.0.1:11434",
		Timeout:         10 * time.Second,
		GenerateTimeout: 5 * time.Minute,
		KeepAlive:       "5m",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Ollama API.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	client := ollama.NewClientWithConfig(cfg)
//	if err := client.CheckRunning(ctx); err != nil {
//	    return err
//	}
//	resp, err := client.Generate(ctx, "konsulton-qwen", prompt)
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	longClient *http.Client
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new Ollama client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	def := DefaultConfig()

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.GenerateTimeout == 0 {
		config.GenerateTimeout = def.GenerateTimeout
	}
	if config.KeepAlive == "" {
		config.KeepAlive = def.KeepAlive
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		longClient: &http.Client{Timeout: config.GenerateTimeout},
	}
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies that Ollama is reachable and running.
func (c *Client) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: "unexpected status from Ollama: " + resp.Status,
		}
	}
	return nil
}

// =============================================================================
// MODEL OPERATIONS
// =============================================================================

// ListModels retrieves all registered models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var result ListModelsResponse
	if err := c.do(ctx, c.httpClient, http.MethodGet, "/api/tags", nil, &result); err != nil {
		return nil, err
	}
	return result.Models, nil
}

// Create registers a model named name from a Modelfile and waits until the
// server has finished.
func (c *Client) Create(ctx context.Context, name, modelfile string) error {
	req := CreateRequest{Model: name, Name: name, Modelfile: modelfile, Stream: false}
	var result StatusResponse
	if err := c.do(ctx, c.longClient, http.MethodPost, "/api/create", req, &result); err != nil {
		return err
	}
	if result.Status != "" && result.Status != "success" {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "create finished with status " + result.Status}
	}
	return nil
}

// Delete removes a registered model.
func (c *Client) Delete(ctx context.Context, name string) error {
	return c.do(ctx, c.httpClient, http.MethodDelete, "/api/delete", DeleteRequest{Model: name, Name: name}, nil)
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate sends a raw, non-streaming completion request. The prompt is
// passed through without the model's chat template.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts *Options) (*GenerateResponse, error) {
	keepAlive := c.config.KeepAlive
	req := GenerateRequest{
		Model:     model,
		Prompt:    prompt,
		Stream:    false,
		Raw:       true,
		KeepAlive: &keepAlive,
		Options:   opts,
	}

	var result GenerateResponse
	if err := c.do(ctx, c.longClient, http.MethodPost, "/api/generate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Unload asks the server to drop model from memory immediately.
func (c *Client) Unload(ctx context.Context, model string) error {
	zero := "0"
	req := GenerateRequest{Model: model, KeepAlive: &zero}
	return c.do(ctx, c.httpClient, http.MethodPost, "/api/generate", req, nil)
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do sends a JSON request and decodes a JSON response into out when out
// is non-nil.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return &ClientError{Type: ErrTypeModelNotFound, Message: "model not found", Cause: apiError(resp.Body)}
	}
	if resp.StatusCode != http.StatusOK {
		if cause := apiError(resp.Body); cause != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: cause.Error()}
		}
		return &ClientError{Type: ErrTypeInvalidResponse, Message: path + " failed: " + resp.Status}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: err}
}

// apiError reads an {"error": "..."} body, returning nil if there is none.
func apiError(r io.Reader) error {
	var oe OllamaError
	if err := json.NewDecoder(io.LimitReader(r, 64*1024)).Decode(&oe); err != nil || oe.Error == "" {
		return nil
	}
	return errors.New(oe.Error)
}

// =============================================================================
// UTILITY METHODS
// =============================================================================

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// IsNotRunning checks if an error indicates Ollama is not running.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Helper to drain response body
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
