package speech

import (
	"context"

	"github.com/ghana-health/cli/internal/api"
)

// adHocTranscriber is the slice of the gateway the whisper engine uses
type adHocTranscriber interface {
	TranscribeAudio(ctx context.Context, filename string, audio []byte, detectLanguage bool) (*api.TranscriptionResult, error)
}

// WhisperEngine recognizes speech by sending captured audio through the
// backend's ad-hoc transcription endpoint. Network I/O stays behind the
// gateway; this is only an adapter.
type WhisperEngine struct {
	gateway adHocTranscriber
}

// NewWhisperEngine creates an engine over the consultation gateway
func NewWhisperEngine(gateway adHocTranscriber) *WhisperEngine {
	return &WhisperEngine{gateway: gateway}
}

// Transcribe sends one audio chunk for transcription. Language detection is
// requested whenever the locale fell back to the default, so Twi and Ga
// speakers still get usable text when the hint was wrong.
func (e *WhisperEngine) Transcribe(ctx context.Context, locale string, audio []byte) (string, error) {
	detect := locale == DefaultLocale
	result, err := e.gateway.TranscribeAudio(ctx, "chunk.webm", audio, detect)
	if err != nil {
		return "", err
	}
	return result.Transcript, nil
}
