package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
)

// TranscribeConsultation transcribes the audio already stored against a
// consultation. The caller is responsible for checking an audio reference
// exists first.
func (c *Client) TranscribeConsultation(ctx context.Context, consultationID int64) (*TranscriptionResult, error) {
	var result TranscriptionResult
	u := c.consultationsURL(strconv.FormatInt(consultationID, 10), "transcribe")
	if err := c.sendJSON(ctx, "POST", u, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TranscribeAudio transcribes an ad-hoc audio clip that is not attached to
// any consultation, optionally asking the backend to detect the language.
func (c *Client) TranscribeAudio(ctx context.Context, filename string, audio []byte, detectLanguage bool) (*TranscriptionResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio part: %w", err)
	}
	if err := writer.WriteField("detect_language", strconv.FormatBool(detectLanguage)); err != nil {
		return nil, fmt.Errorf("failed to write detect_language field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/consultations/transcribe", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result TranscriptionResult
	if err := c.doJSON(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
