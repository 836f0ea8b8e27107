package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ghana-health/cli/internal/api"
	"github.com/ghana-health/cli/internal/attach"
	"github.com/ghana-health/cli/internal/logger"
	"github.com/ghana-health/cli/internal/state"
)

// DefaultPollInterval is how often the chat log is refreshed
const DefaultPollInterval = 5 * time.Second

var (
	// ErrBusy means the same operation is already in flight for this session
	ErrBusy = errors.New("operation already in progress")
	// ErrEmptyMessage means the chat input had no content; no request is issued
	ErrEmptyMessage = errors.New("message body is empty")
	// ErrNoMessages means summary generation was asked for an empty chat
	ErrNoMessages = errors.New("no chat messages to summarize")
	// ErrNoAudio means transcription was asked but the consultation holds no audio
	ErrNoAudio = errors.New("consultation has no audio recording")
	// ErrClosed means the session was already torn down
	ErrClosed = errors.New("session closed")
)

// Gateway is the slice of the consultation gateway a live session uses
type Gateway interface {
	GetConsultation(ctx context.Context, id int64) (*api.Consultation, error)
	GetChatMessages(ctx context.Context, id int64) ([]api.ChatMessage, error)
	AddChatMessage(ctx context.Context, id int64, sender, message, messageType string) (*api.ChatMessage, error)
	UploadFile(ctx context.Context, id int64, filename string, data []byte) (*api.FileAttachment, error)
	GenerateSummary(ctx context.Context, id int64) (*api.Summary, error)
	GetSummary(ctx context.Context, id int64) (*api.Summary, error)
	ExportSummary(ctx context.Context, id int64, format string) ([]byte, string, error)
	TranscribeConsultation(ctx context.Context, id int64) (*api.TranscriptionResult, error)
	UpdateConsultation(ctx context.Context, id int64, fields map[string]interface{}) (*api.Consultation, error)
}

// Controller is the live, id-bound view of a submitted consultation: it
// keeps the chat log fresh by polling, sends messages, uploads files and
// drives the AI summary lifecycle. One controller owns one session; Close
// cancels the polling loop and every pending fetch as a single unit, after
// which no response may mutate state.
type Controller struct {
	id          int64
	gateway     Gateway
	log         *logger.Logger
	interval    time.Duration
	downloadDir string

	Consultation *state.Value[*api.Consultation]
	Messages     *state.Value[[]api.ChatMessage]
	Summary      *state.Value[*api.Summary]

	Loading           *state.Value[bool]
	Sending           *state.Value[bool]
	Transcribing      *state.Value[bool]
	GeneratingSummary *state.Value[bool]

	ErrMsg           *state.Value[string]
	SummaryErr       *state.Value[string]
	TranscriptionErr *state.Value[string]

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	sending      bool
	transcribing bool
	polling      bool
	issuedSeq    uint64
	appliedSeq   uint64
}

// New creates a session controller for the consultation with the given id.
// Nothing is fetched until Load.
func New(id int64, gateway Gateway, downloadDir string, interval time.Duration, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		id:          id,
		gateway:     gateway,
		log:         log.With("consultation_id", id),
		interval:    interval,
		downloadDir: downloadDir,

		Consultation: state.NewValue[*api.Consultation](nil),
		Messages:     state.NewValue([]api.ChatMessage{}),
		Summary:      state.NewValue[*api.Summary](nil),

		Loading:           state.NewValue(false),
		Sending:           state.NewValue(false),
		Transcribing:      state.NewValue(false),
		GeneratingSummary: state.NewValue(false),

		ErrMsg:           state.NewValue(""),
		SummaryErr:       state.NewValue(""),
		TranscriptionErr: state.NewValue(""),

		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the consultation id this session is bound to
func (c *Controller) ID() int64 {
	return c.id
}

// Close tears down the session. The polling loop and all pending fetches are
// cancelled together; any request resolving after this point is discarded
// without touching state. Safe to call more than once.
func (c *Controller) Close() {
	c.cancel()
}

func (c *Controller) live() bool {
	return c.ctx.Err() == nil
}

// opCtx derives a request context that dies with either the caller's context
// or the session itself.
func (c *Controller) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() { stop(); cancel() }
}

// Load fetches the consultation, loads its chat log and starts polling. On
// failure the error is retryable: state carries the message and polling does
// not start until a Load succeeds. Load also serves as the manual refresh.
func (c *Controller) Load(ctx context.Context) error {
	if !c.live() {
		return ErrClosed
	}
	ctx, done := c.opCtx(ctx)
	defer done()

	c.Loading.Set(true)
	c.ErrMsg.Set("")
	defer c.Loading.Set(false)

	consultation, err := c.gateway.GetConsultation(ctx, c.id)
	if err != nil {
		c.log.Error("consultation load failed", "error", err)
		c.ErrMsg.Set(api.UserMessage(err, "Failed to load consultation"))
		return err
	}
	if !c.live() {
		return ErrClosed
	}
	c.Consultation.Set(consultation)

	c.reloadMessages(ctx)
	c.startPolling()
	return nil
}

// reloadMessages fetches the chat log immediately, outranking any in-flight
// poll responses.
func (c *Controller) reloadMessages(ctx context.Context) {
	seq := c.nextSeq()
	messages, err := c.gateway.GetChatMessages(ctx, c.id)
	if err != nil {
		c.log.Warn("chat load failed", "error", err)
		return
	}
	c.applyMessages(seq, messages, true)
}

// nextSeq hands out the sequence tag for one chat fetch
func (c *Controller) nextSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issuedSeq++
	return c.issuedSeq
}

// applyMessages applies a fetched chat log under the last-write-wins with
// monotonicity discipline: a response lands only while the session is live
// and only when no newer snapshot has been applied, so a stale in-flight
// poll can never regress the visible list. Poll responses (force=false)
// additionally skip the replace when the count is unchanged.
func (c *Controller) applyMessages(seq uint64, messages []api.ChatMessage, force bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return
	}
	if seq <= c.appliedSeq {
		return
	}
	c.appliedSeq = seq

	if !force && len(messages) == len(c.Messages.Get()) {
		return
	}
	c.Messages.Set(messages)
}

// startPolling begins the recurring chat refresh; idempotent
func (c *Controller) startPolling() {
	c.mu.Lock()
	if c.polling {
		c.mu.Unlock()
		return
	}
	c.polling = true
	c.mu.Unlock()

	go c.pollLoop()
}

// pollLoop issues one chat fetch per tick. Ticks do not wait for the
// previous response; races between in-flight responses are settled by the
// sequence check in applyMessages.
func (c *Controller) pollLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			seq := c.nextSeq()
			go func() {
				messages, err := c.gateway.GetChatMessages(c.ctx, c.id)
				if err != nil {
					if c.live() {
						c.log.Warn("chat poll failed", "error", err)
					}
					return
				}
				c.applyMessages(seq, messages, false)
			}()
		}
	}
}

// SendMessage posts one patient chat message. Empty input fails locally;
// concurrent sends are rejected with ErrBusy. Success forces an immediate
// chat reload instead of waiting for the next poll tick; failure leaves the
// session state intact for retry.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if !c.live() {
		return ErrClosed
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.sending = true
	c.mu.Unlock()

	c.Sending.Set(true)
	c.ErrMsg.Set("")
	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
		c.Sending.Set(false)
	}()

	ctx, done := c.opCtx(ctx)
	defer done()

	if _, err := c.gateway.AddChatMessage(ctx, c.id, api.SenderPatient, text, api.MessageTypeText); err != nil {
		c.log.Error("send message failed", "error", err)
		c.ErrMsg.Set(api.UserMessage(err, "Failed to send message"))
		return err
	}

	c.reloadMessages(ctx)
	return nil
}

// UploadFile attaches a local file to the consultation. Success reloads the
// full consultation so the new attachment list shows up.
func (c *Controller) UploadFile(ctx context.Context, path string) error {
	if !c.live() {
		return ErrClosed
	}

	file, err := attach.FromPath(path)
	if err != nil {
		c.ErrMsg.Set("Could not read " + filepath.Base(path))
		return err
	}
	data, err := file.Read()
	if err != nil {
		c.ErrMsg.Set("Could not read " + file.Name)
		return err
	}

	ctx, done := c.opCtx(ctx)
	defer done()

	if _, err := c.gateway.UploadFile(ctx, c.id, file.Name, data); err != nil {
		c.log.Error("file upload failed", "file", file.Name, "error", err)
		c.ErrMsg.Set(api.UserMessage(err, "Failed to upload file"))
		return err
	}

	c.reloadConsultation(ctx)
	return nil
}

// reloadConsultation refreshes the consultation record after a mutation
func (c *Controller) reloadConsultation(ctx context.Context) {
	consultation, err := c.gateway.GetConsultation(ctx, c.id)
	if err != nil {
		c.log.Warn("consultation refresh failed", "error", err)
		return
	}
	if !c.live() {
		return
	}
	c.Consultation.Set(consultation)
}

// LoadSummary fetches an existing summary as a best-effort background
// operation: "not found" is the expected empty state and every other
// failure stays silent.
func (c *Controller) LoadSummary(ctx context.Context) {
	if !c.live() {
		return
	}
	ctx, done := c.opCtx(ctx)
	defer done()

	summary, err := c.gateway.GetSummary(ctx, c.id)
	if err != nil {
		if !errors.Is(err, api.ErrNotFound) {
			c.log.Debug("summary fetch failed", "error", err)
		}
		return
	}
	if !c.live() {
		return
	}
	c.Summary.Set(summary)
}

// GenerateSummary asks the backend for a fresh AI summary. At least one
// chat message must exist; otherwise this fails locally with no request.
// A success replaces any prior summary in place.
func (c *Controller) GenerateSummary(ctx context.Context) error {
	if !c.live() {
		return ErrClosed
	}
	if len(c.Messages.Get()) == 0 {
		c.SummaryErr.Set("No messages to summarize. Start a conversation first.")
		return ErrNoMessages
	}

	c.GeneratingSummary.Set(true)
	c.SummaryErr.Set("")
	defer c.GeneratingSummary.Set(false)

	ctx, done := c.opCtx(ctx)
	defer done()

	summary, err := c.gateway.GenerateSummary(ctx, c.id)
	if err != nil {
		c.log.Error("summary generation failed", "error", err)
		c.SummaryErr.Set(api.UserMessage(err, "Failed to generate summary. Please try again."))
		return err
	}
	if !c.live() {
		return ErrClosed
	}
	c.Summary.Set(summary)
	return nil
}

// ExportSummary downloads the summary in the given format ("pdf" or "txt")
// and writes it into the download directory as
// consultation-{id}-summary.{format}. Returns the written path.
func (c *Controller) ExportSummary(ctx context.Context, format string) (string, error) {
	if !c.live() {
		return "", ErrClosed
	}
	ctx, done := c.opCtx(ctx)
	defer done()

	data, _, err := c.gateway.ExportSummary(ctx, c.id, format)
	if err != nil {
		c.log.Error("summary export failed", "format", format, "error", err)
		c.SummaryErr.Set(api.UserMessage(err, "Failed to download summary. Please try again."))
		return "", err
	}

	if err := os.MkdirAll(c.downloadDir, 0755); err != nil {
		c.SummaryErr.Set("Failed to save summary")
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	path := filepath.Join(c.downloadDir, fmt.Sprintf("consultation-%d-summary.%s", c.id, format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		c.SummaryErr.Set("Failed to save summary")
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	c.log.Info("summary exported", "path", path)
	return path, nil
}

// TranscribeAudio transcribes the consultation's stored recording. The
// consultation must carry an audio reference, and only one transcription
// may run at a time. Success reloads the consultation so the updated
// transcript is visible.
func (c *Controller) TranscribeAudio(ctx context.Context) error {
	if !c.live() {
		return ErrClosed
	}

	consultation := c.Consultation.Get()
	if consultation == nil || consultation.AudioURL == "" {
		c.TranscriptionErr.Set("No audio recording available for transcription")
		return ErrNoAudio
	}

	c.mu.Lock()
	if c.transcribing {
		c.mu.Unlock()
		return ErrBusy
	}
	c.transcribing = true
	c.mu.Unlock()

	c.Transcribing.Set(true)
	c.TranscriptionErr.Set("")
	defer func() {
		c.mu.Lock()
		c.transcribing = false
		c.mu.Unlock()
		c.Transcribing.Set(false)
	}()

	ctx, done := c.opCtx(ctx)
	defer done()

	if _, err := c.gateway.TranscribeConsultation(ctx, c.id); err != nil {
		c.log.Error("transcription failed", "error", err)
		c.TranscriptionErr.Set(api.UserMessage(err, "Failed to transcribe audio. Please try again."))
		return err
	}

	c.reloadConsultation(ctx)
	return nil
}

// CancelConsultation marks the consultation cancelled on the backend
func (c *Controller) CancelConsultation(ctx context.Context) error {
	if !c.live() {
		return ErrClosed
	}
	ctx, done := c.opCtx(ctx)
	defer done()

	consultation, err := c.gateway.UpdateConsultation(ctx, c.id, map[string]interface{}{
		"status": api.StatusCancelled,
	})
	if err != nil {
		c.log.Error("cancel failed", "error", err)
		c.ErrMsg.Set(api.UserMessage(err, "Failed to cancel consultation"))
		return err
	}
	if !c.live() {
		return ErrClosed
	}
	c.Consultation.Set(consultation)
	return nil
}
