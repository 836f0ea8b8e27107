package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// CreateConsultationRequest is the multipart payload for submitting a new
// consultation. Audio and files are optional; validation of the
// transcript-or-files rule happens in the intake controller, not here.
type CreateConsultationRequest struct {
	Transcript string
	Language   string
	Audio      []byte
	AudioName  string
	Files      []UploadFile
}

// UploadFile is one file part of a multipart request
type UploadFile struct {
	Name string
	Data []byte
}

// ListConsultations fetches all consultations, optionally filtered by status
func (c *Client) ListConsultations(ctx context.Context, status string) ([]Consultation, error) {
	u := c.consultationsURL()
	if status != "" {
		u += "?status=" + url.QueryEscape(status)
	}

	var consultations []Consultation
	if err := c.getJSON(ctx, u, &consultations); err != nil {
		return nil, err
	}
	return consultations, nil
}

// GetConsultation fetches one consultation by id
func (c *Client) GetConsultation(ctx context.Context, id int64) (*Consultation, error) {
	var consultation Consultation
	if err := c.getJSON(ctx, c.consultationsURL(strconv.FormatInt(id, 10)), &consultation); err != nil {
		return nil, err
	}
	return &consultation, nil
}

// CreateConsultation submits a new consultation as one multipart request
func (c *Client) CreateConsultation(ctx context.Context, req CreateConsultationRequest) (*Consultation, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("transcript", req.Transcript); err != nil {
		return nil, fmt.Errorf("failed to write transcript field: %w", err)
	}
	if err := writer.WriteField("language", req.Language); err != nil {
		return nil, fmt.Errorf("failed to write language field: %w", err)
	}

	if len(req.Audio) > 0 {
		name := req.AudioName
		if name == "" {
			name = "consultation.webm"
		}
		part, err := writer.CreateFormFile("audio", name)
		if err != nil {
			return nil, fmt.Errorf("failed to create audio part: %w", err)
		}
		if _, err := part.Write(req.Audio); err != nil {
			return nil, fmt.Errorf("failed to write audio part: %w", err)
		}
	}

	for _, f := range req.Files {
		part, err := writer.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.consultationsURL(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	var consultation Consultation
	if err := c.doJSON(httpReq, &consultation); err != nil {
		return nil, err
	}
	return &consultation, nil
}

// UpdateConsultation applies a partial update to consultation fields.
// Fields maps json field names to new values.
func (c *Client) UpdateConsultation(ctx context.Context, id int64, fields map[string]interface{}) (*Consultation, error) {
	var consultation Consultation
	err := c.sendJSON(ctx, "PUT", c.consultationsURL(strconv.FormatInt(id, 10)), fields, &consultation)
	if err != nil {
		return nil, err
	}
	return &consultation, nil
}
