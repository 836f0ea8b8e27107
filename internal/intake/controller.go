package intake

import (
	"context"
	"errors"
	"sync"

	"github.com/ghana-health/cli/internal/api"
	"github.com/ghana-health/cli/internal/attach"
	"github.com/ghana-health/cli/internal/capture"
	"github.com/ghana-health/cli/internal/logger"
	"github.com/ghana-health/cli/internal/speech"
	"github.com/ghana-health/cli/internal/state"
	"github.com/google/uuid"
)

// ErrSubmitting means a submission is already in flight; Submit is a no-op
// until it settles.
var ErrSubmitting = errors.New("submission already in progress")

// ErrEmptyDraft means the draft has neither a transcript nor any files.
// This is local validation; no request is issued.
var ErrEmptyDraft = errors.New("draft has no transcript and no files")

// Gateway is the slice of the consultation gateway the intake flow uses
type Gateway interface {
	CreateConsultation(ctx context.Context, req api.CreateConsultationRequest) (*api.Consultation, error)
}

// Controller orchestrates voice capture, speech recognition and file
// selection into a single consultation submission. The draft lives entirely
// here until the gateway assigns an id.
type Controller struct {
	gateway    Gateway
	recorder   *capture.Recorder
	recognizer *speech.Recognizer
	log        *logger.Logger

	Transcript *state.Value[string]
	Language   *state.Value[string]
	Audio      *state.Value[*capture.Clip]
	Files      *state.Value[[]attach.File]
	Submitting *state.Value[bool]
	ErrMsg     *state.Value[string]

	mu         sync.Mutex
	submitting bool
	unsubs     []func()
	clipDone   chan struct{}
	closeOnce  sync.Once
}

// New creates an intake controller. Recorder and recognizer may be nil when
// the platform has no capture capability; manual text and file intake stays
// usable either way.
func New(gateway Gateway, recorder *capture.Recorder, recognizer *speech.Recognizer, language string, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	if language == "" {
		language = "en"
	}

	c := &Controller{
		gateway:    gateway,
		recorder:   recorder,
		recognizer: recognizer,
		log:        log,
		Transcript: state.NewValue(""),
		Language:   state.NewValue(language),
		Audio:      state.NewValue[*capture.Clip](nil),
		Files:      state.NewValue([]attach.File{}),
		Submitting: state.NewValue(false),
		ErrMsg:     state.NewValue(""),
		clipDone:   make(chan struct{}),
	}

	if recognizer != nil {
		c.unsubs = append(c.unsubs, recognizer.Transcript.Subscribe(func(text string) {
			if text != "" {
				c.Transcript.Set(text)
			}
		}))
	}
	if recorder != nil {
		go c.collectClips()
	}

	return c
}

// collectClips moves finalized recordings into the draft
func (c *Controller) collectClips() {
	for {
		select {
		case clip := <-c.recorder.Clips():
			c.Audio.Set(&clip)
		case <-c.clipDone:
			return
		}
	}
}

// VoiceSupported reports whether speech recognition is available
func (c *Controller) VoiceSupported() bool {
	return c.recognizer != nil && c.recognizer.Supported() && c.recorder != nil
}

// StartVoice begins speech recognition and audio recording together, the
// way the voice input control couples them.
func (c *Controller) StartVoice(ctx context.Context) error {
	if !c.VoiceSupported() {
		return speech.ErrUnsupported
	}
	if err := c.recognizer.Start(ctx, c.Language.Get()); err != nil {
		return err
	}
	c.recorder.Start(ctx)
	return nil
}

// StopVoice ends recognition and recording; the finalized clip lands in the
// draft asynchronously.
func (c *Controller) StopVoice() {
	if c.recognizer != nil {
		c.recognizer.Stop()
	}
	if c.recorder != nil {
		c.recorder.Stop()
	}
}

// SetTranscript replaces the draft transcript with manually edited text
func (c *Controller) SetTranscript(text string) {
	c.Transcript.Set(text)
}

// SetLanguage changes the draft language hint
func (c *Controller) SetLanguage(language string) {
	c.Language.Set(language)
}

// AddFile attaches a local file to the draft
func (c *Controller) AddFile(path string) error {
	file, err := attach.FromPath(path)
	if err != nil {
		return err
	}
	c.Files.Update(func(files []attach.File) []attach.File {
		return append(files, file)
	})
	return nil
}

// RemoveFile drops a pending attachment from the draft
func (c *Controller) RemoveFile(id uuid.UUID) {
	c.Files.Update(func(files []attach.File) []attach.File {
		kept := files[:0]
		for _, f := range files {
			if f.ID != id {
				kept = append(kept, f)
			}
		}
		return kept
	})
}

// ReadyToSubmit reports whether the draft passes local validation
func (c *Controller) ReadyToSubmit() bool {
	return c.Transcript.Get() != "" || len(c.Files.Get()) > 0
}

// Submit packages the whole draft into one multipart request. Success clears
// the draft and returns the created consultation; failure keeps the draft
// intact so resubmission needs no re-entry. While a submission is in flight
// further calls return ErrSubmitting.
func (c *Controller) Submit(ctx context.Context) (*api.Consultation, error) {
	if !c.ReadyToSubmit() {
		c.ErrMsg.Set("Please describe your symptoms or attach a file")
		return nil, ErrEmptyDraft
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitting
	}
	c.submitting = true
	c.mu.Unlock()

	c.Submitting.Set(true)
	c.ErrMsg.Set("")
	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
		c.Submitting.Set(false)
	}()

	req := api.CreateConsultationRequest{
		Transcript: c.Transcript.Get(),
		Language:   c.Language.Get(),
	}
	if clip := c.Audio.Get(); clip != nil {
		req.Audio = clip.Data
	}
	for _, f := range c.Files.Get() {
		data, err := f.Read()
		if err != nil {
			c.log.Error("attachment read failed", "file", f.Name, "error", err)
			c.ErrMsg.Set("Could not read " + f.Name)
			return nil, err
		}
		req.Files = append(req.Files, api.UploadFile{Name: f.Name, Data: data})
	}

	consultation, err := c.gateway.CreateConsultation(ctx, req)
	if err != nil {
		c.log.Error("consultation submit failed", "error", err)
		c.ErrMsg.Set(api.UserMessage(err, "Failed to submit consultation"))
		return nil, err
	}

	c.log.Info("consultation created", "id", consultation.ID)
	c.clear()
	return consultation, nil
}

// clear resets all draft state after a successful submission
func (c *Controller) clear() {
	c.Transcript.Set("")
	c.Audio.Set(nil)
	c.Files.Set([]attach.File{})
	c.ErrMsg.Set("")
}

// Close releases capability subscriptions and stops any live capture. Safe
// to call more than once.
func (c *Controller) Close() {
	c.StopVoice()
	c.closeOnce.Do(func() {
		for _, unsub := range c.unsubs {
			unsub()
		}
		close(c.clipDone)
	})
}
