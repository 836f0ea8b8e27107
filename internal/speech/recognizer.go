package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/ghana-health/cli/internal/capture"
	"github.com/ghana-health/cli/internal/logger"
	"github.com/ghana-health/cli/internal/state"
)

// ErrUnsupported means no speech engine is available at all. It is distinct
// from a runtime recognition error, which stops listening and surfaces on
// the Err observable instead.
var ErrUnsupported = errors.New("speech recognition not supported")

// Engine turns a chunk of captured audio into text for a given locale
type Engine interface {
	Transcribe(ctx context.Context, locale string, audio []byte) (string, error)
}

// chunkSize is how much audio is buffered before each engine call
const defaultChunkSize = 64 * 1024

// Recognizer provides continuous, interim-inclusive transcription over a
// capture device and a speech engine.
//
// Transcript carries the cumulative best-effort text for the current
// utterance - a running concatenation, not a diff. State machine:
// {idle} -> Start -> {listening} -> (error | Stop) -> {idle}.
type Recognizer struct {
	device    Device
	engine    Engine
	log       *logger.Logger
	chunkSize int

	Transcript *state.Value[string]
	Listening  *state.Value[bool]
	Err        *state.Value[string]

	mu      sync.Mutex
	session capture.Session
	cancel  context.CancelFunc
}

// Device is the slice of the capture device contract the recognizer needs
type Device interface {
	Start(ctx context.Context, cfg capture.DeviceConfig) (capture.Session, error)
}

// NewRecognizer creates a recognizer over the given device and engine
func NewRecognizer(device Device, engine Engine, log *logger.Logger) *Recognizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Recognizer{
		device:     device,
		engine:     engine,
		log:        log,
		chunkSize:  defaultChunkSize,
		Transcript: state.NewValue(""),
		Listening:  state.NewValue(false),
		Err:        state.NewValue(""),
	}
}

// Supported reports whether a speech engine is available
func (r *Recognizer) Supported() bool {
	return r.engine != nil && r.device != nil
}

// Start begins continuous transcription for the given language hint.
// Returns ErrUnsupported when no engine is available. Starting while
// already listening is a no-op.
func (r *Recognizer) Start(ctx context.Context, language string) error {
	if !r.Supported() {
		return ErrUnsupported
	}

	r.mu.Lock()
	if r.session != nil {
		r.mu.Unlock()
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	session, err := r.device.Start(runCtx, capture.DeviceConfig{})
	if err != nil {
		cancel()
		r.mu.Unlock()
		r.log.Error("speech capture start failed", "error", err)
		r.Err.Set("Microphone access denied")
		return nil
	}
	r.session = session
	r.cancel = cancel
	r.mu.Unlock()

	locale := Locale(language)
	r.Transcript.Set("")
	r.Err.Set("")
	r.Listening.Set(true)

	go r.listen(runCtx, session, locale)
	return nil
}

// Stop ends transcription; a no-op while idle
func (r *Recognizer) Stop() {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return
	}
	_ = session.Stop()
}

// listen streams audio chunks through the engine until the session ends,
// accumulating the cumulative transcript.
func (r *Recognizer) listen(ctx context.Context, session capture.Session, locale string) {
	defer func() {
		session.Close()
		r.mu.Lock()
		if r.cancel != nil {
			r.cancel()
		}
		r.session = nil
		r.cancel = nil
		r.mu.Unlock()
		r.Listening.Set(false)
	}()

	var parts []string
	buf := make([]byte, r.chunkSize)
	pending := &bytes.Buffer{}

	flush := func() bool {
		if pending.Len() == 0 {
			return true
		}
		text, err := r.engine.Transcribe(ctx, locale, pending.Bytes())
		pending.Reset()
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			r.log.Error("speech recognition failed", "error", err)
			r.Err.Set("Speech recognition error")
			return false
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, strings.TrimSpace(text))
			r.Transcript.Set(strings.Join(parts, " "))
		}
		return true
	}

	for {
		n, err := session.Read(buf)
		if n > 0 {
			pending.Write(buf[:n])
			if pending.Len() >= r.chunkSize {
				if !flush() {
					return
				}
			}
		}
		if err == io.EOF {
			flush()
			return
		}
		if err != nil {
			r.log.Error("speech capture stream failed", "error", err)
			r.Err.Set("Speech recognition error")
			return
		}
	}
}
