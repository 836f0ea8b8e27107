package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ghana-health/cli/internal/logger"
)

// ErrNotFound indicates the backend returned 404 for the requested resource
var ErrNotFound = errors.New("not found")

// Error is a failed HTTP exchange with the backend. Detail carries the
// server-supplied "detail" string when the error payload had one.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// Message returns the best user-facing text for this error
func (e *Error) Message(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

// UserMessage extracts a user-facing message from any gateway error,
// preferring server-supplied detail over the fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message(fallback)
	}
	return fallback
}

// Client is the consultation gateway: the only component in the program that
// talks to the backend. Operations map one call to one HTTP exchange and are
// never retried here - retry policy belongs to callers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a gateway client for the given API root
func NewClient(baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000/api/v1"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Transcription and summary generation can take a while
			Timeout: 2 * time.Minute,
		},
		log: log,
	}
}

// consultationsURL builds a URL under the consultations base path
func (c *Client) consultationsURL(parts ...string) string {
	url := c.baseURL + "/consultations"
	for _, p := range parts {
		url += "/" + p
	}
	return url
}

// doJSON executes a request and decodes a JSON response into out (out may be
// nil). Non-2xx responses become *Error, with 404 wrapped around ErrNotFound.
func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFromResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorFromResponse reads the error payload and extracts the detail string
func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var payload struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &payload)

	apiErr := &Error{Status: resp.StatusCode, Detail: payload.Detail}
	c.log.Warn("api error", "status", resp.StatusCode, "detail", payload.Detail)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Error())
	}
	return apiErr
}

// getJSON issues a GET and decodes the response
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doJSON(req, out)
}

// sendJSON issues a request with a JSON body and decodes the response
func (c *Client) sendJSON(ctx context.Context, method, url string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doJSON(req, out)
}
