package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// GenerateSummary asks the backend to produce an AI summary for the
// consultation, replacing any prior one.
func (c *Client) GenerateSummary(ctx context.Context, consultationID int64) (*Summary, error) {
	var summary Summary
	u := c.consultationsURL(strconv.FormatInt(consultationID, 10), "summary")
	if err := c.sendJSON(ctx, "POST", u, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// GetSummary fetches the existing summary. Returns an error wrapping
// ErrNotFound when none has been generated yet.
func (c *Client) GetSummary(ctx context.Context, consultationID int64) (*Summary, error) {
	var summary Summary
	u := c.consultationsURL(strconv.FormatInt(consultationID, 10), "summary")
	if err := c.getJSON(ctx, u, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ExportSummary downloads the summary rendered as "pdf" or "txt".
// Returns the raw bytes and the response content type.
func (c *Client) ExportSummary(ctx context.Context, consultationID int64, format string) ([]byte, string, error) {
	u := c.consultationsURL(strconv.FormatInt(consultationID, 10), "summary", "export")
	u += "?format=" + url.QueryEscape(format)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", c.errorFromResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read export body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
