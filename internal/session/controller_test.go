package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ghana-health/cli/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu sync.Mutex

	consultation     *api.Consultation
	consultationErr  error
	consultationGets int

	messages  []api.ChatMessage
	chatErr   error
	chatGets  int
	chatBlock chan struct{}

	addCalls int
	addErr   error
	addBlock chan struct{}

	summary       *api.Summary
	getSummaryErr error
	genCalls      int
	genErr        error

	exportData []byte
	exportErr  error

	uploadCalls     int
	uploadErr       error
	transcribeCalls int
	transcribeErr   error
	transcribeBlock chan struct{}

	updateCalls int
}

func (g *fakeGateway) GetConsultation(ctx context.Context, id int64) (*api.Consultation, error) {
	g.mu.Lock()
	g.consultationGets++
	consultation, err := g.consultation, g.consultationErr
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	copied := *consultation
	return &copied, nil
}

func (g *fakeGateway) GetChatMessages(ctx context.Context, id int64) ([]api.ChatMessage, error) {
	g.mu.Lock()
	g.chatGets++
	block := g.chatBlock
	messages, err := g.messages, g.chatErr
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		// Re-read after unblocking so tests can swap the payload
		g.mu.Lock()
		messages, err = g.messages, g.chatErr
		g.mu.Unlock()
	}
	if err != nil {
		return nil, err
	}
	return append([]api.ChatMessage(nil), messages...), nil
}

func (g *fakeGateway) AddChatMessage(ctx context.Context, id int64, sender, message, messageType string) (*api.ChatMessage, error) {
	g.mu.Lock()
	g.addCalls++
	block := g.addBlock
	err := g.addErr
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &api.ChatMessage{ID: 1, ConsultationID: id, Sender: sender, Message: message}, nil
}

func (g *fakeGateway) UploadFile(ctx context.Context, id int64, filename string, data []byte) (*api.FileAttachment, error) {
	g.mu.Lock()
	g.uploadCalls++
	err := g.uploadErr
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &api.FileAttachment{ID: 1, Filename: filename}, nil
}

func (g *fakeGateway) GenerateSummary(ctx context.Context, id int64) (*api.Summary, error) {
	g.mu.Lock()
	g.genCalls++
	summary, err := g.summary, g.genErr
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (g *fakeGateway) GetSummary(ctx context.Context, id int64) (*api.Summary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getSummaryErr != nil {
		return nil, g.getSummaryErr
	}
	return g.summary, nil
}

func (g *fakeGateway) ExportSummary(ctx context.Context, id int64, format string) ([]byte, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.exportErr != nil {
		return nil, "", g.exportErr
	}
	return g.exportData, "application/octet-stream", nil
}

func (g *fakeGateway) TranscribeConsultation(ctx context.Context, id int64) (*api.TranscriptionResult, error) {
	g.mu.Lock()
	g.transcribeCalls++
	block := g.transcribeBlock
	err := g.transcribeErr
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &api.TranscriptionResult{Transcript: "transcribed"}, nil
}

func (g *fakeGateway) UpdateConsultation(ctx context.Context, id int64, fields map[string]interface{}) (*api.Consultation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateCalls++
	copied := *g.consultation
	if status, ok := fields["status"].(string); ok {
		copied.Status = status
	}
	return &copied, nil
}

func (g *fakeGateway) count(field *int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return *field
}

func newTestController(t *testing.T, gateway *fakeGateway, interval time.Duration) *Controller {
	t.Helper()
	c := New(42, gateway, t.TempDir(), interval, nil)
	t.Cleanup(c.Close)
	return c
}

func TestLoadStartsPolling(t *testing.T) {
	gateway := &fakeGateway{
		consultation: &api.Consultation{ID: 42, Status: api.StatusPending},
	}
	c := newTestController(t, gateway, 10*time.Millisecond)

	require.NoError(t, c.Load(context.Background()))
	require.NotNil(t, c.Consultation.Get())
	assert.Equal(t, api.StatusPending, c.Consultation.Get().Status)
	assert.Empty(t, c.Messages.Get())

	// a doctor reply appears; the next poll tick picks it up
	gateway.mu.Lock()
	gateway.messages = []api.ChatMessage{{ID: 1, Sender: api.SenderDoctor, Message: "hello"}}
	gateway.mu.Unlock()

	require.Eventually(t, func() bool {
		return len(c.Messages.Get()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestLoadFailureIsRetryableAndDoesNotPoll(t *testing.T) {
	gateway := &fakeGateway{
		consultationErr: &api.Error{Status: 500, Detail: "db down"},
	}
	c := newTestController(t, gateway, 10*time.Millisecond)

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, "db down", c.ErrMsg.Get())
	assert.False(t, c.Loading.Get())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, gateway.count(&gateway.chatGets), "no polling after a failed load")

	// manual retry succeeds and clears the error
	gateway.mu.Lock()
	gateway.consultationErr = nil
	gateway.consultation = &api.Consultation{ID: 42, Status: api.StatusActive}
	gateway.mu.Unlock()

	require.NoError(t, c.Load(context.Background()))
	assert.Empty(t, c.ErrMsg.Get())
}

func TestStaleResponseNeverRegressesChat(t *testing.T) {
	gateway := &fakeGateway{consultation: &api.Consultation{ID: 42}}
	c := newTestController(t, gateway, time.Hour)

	two := []api.ChatMessage{{ID: 1}, {ID: 2}}
	one := []api.ChatMessage{{ID: 1}}

	first := c.nextSeq()
	second := c.nextSeq()

	// the newer snapshot lands first, the stale one resolves afterwards
	c.applyMessages(second, two, false)
	c.applyMessages(first, one, false)

	assert.Len(t, c.Messages.Get(), 2, "stale in-flight response must not shrink the list")
}

func TestPollSkipsReplaceWhenCountUnchanged(t *testing.T) {
	gateway := &fakeGateway{consultation: &api.Consultation{ID: 42}}
	c := newTestController(t, gateway, time.Hour)

	initial := []api.ChatMessage{{ID: 1, Message: "original"}}
	c.applyMessages(c.nextSeq(), initial, true)

	sameCount := []api.ChatMessage{{ID: 1, Message: "rewritten"}}
	c.applyMessages(c.nextSeq(), sameCount, false)

	assert.Equal(t, "original", c.Messages.Get()[0].Message,
		"poll with unchanged count keeps the current list")

	// a forced reload does replace
	c.applyMessages(c.nextSeq(), sameCount, true)
	assert.Equal(t, "rewritten", c.Messages.Get()[0].Message)
}

func TestCloseDiscardsInFlightPoll(t *testing.T) {
	block := make(chan struct{})
	gateway := &fakeGateway{
		consultation: &api.Consultation{ID: 42},
		chatBlock:    block,
	}
	c := newTestController(t, gateway, time.Hour)

	seq := c.nextSeq()
	resolved := make(chan []api.ChatMessage, 1)
	go func() {
		messages, err := gateway.GetChatMessages(c.ctx, 42)
		if err != nil {
			resolved <- nil
			return
		}
		resolved <- messages
	}()

	c.Close()
	gateway.mu.Lock()
	gateway.messages = []api.ChatMessage{{ID: 9}}
	gateway.mu.Unlock()
	close(block)

	messages := <-resolved
	if messages != nil {
		c.applyMessages(seq, messages, false)
	}
	assert.Empty(t, c.Messages.Get(), "no chat mutation may happen after Close")
}

func TestSendMessageEmptyFailsLocally(t *testing.T) {
	gateway := &fakeGateway{consultation: &api.Consultation{ID: 42}}
	c := newTestController(t, gateway, time.Hour)

	assert.ErrorIs(t, c.SendMessage(context.Background(), "   "), ErrEmptyMessage)
	assert.Equal(t, 0, gateway.count(&gateway.addCalls))
}

func TestSendMessageForcesImmediateReload(t *testing.T) {
	gateway := &fakeGateway{consultation: &api.Consultation{ID: 42}}
	c := newTestController(t, gateway, time.Hour)
	require.NoError(t, c.Load(context.Background()))
	loads := gateway.count(&gateway.chatGets)

	gateway.mu.Lock()
	gateway.messages = []api.ChatMessage{{ID: 1, Message: "hi"}}
	gateway.mu.Unlock()

	require.NoError(t, c.SendMessage(context.Background(), "hi"))

	assert.Equal(t, loads+1, gateway.count(&gateway.chatGets),
		"send must reload chat without waiting for the next tick")
	assert.Len(t, c.Messages.Get(), 1)
}

func TestRapidSendsIssueOnePost(t *testing.T) {
	block := make(chan struct{})
	gateway := &fakeGateway{
		consultation: &api.Consultation{ID: 42},
		addBlock:     block,
	}
	c := newTestController(t, gateway, time.Hour)

	done := make(chan error, 1)
	go func() { done <- c.SendMessage(context.Background(), "hi") }()

	require.Eventually(t, func() bool { return c.Sending.Get() }, time.Second, time.Millisecond)

	assert.ErrorIs(t, c.SendMessage(context.Background(), "hi"), ErrBusy)

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gateway.count(&gateway.addCalls), "exactly one POST for the first send")
}

func TestSendFailureKeepsSessionUsable(t *testing.T) {
	gateway := &fakeGateway{
		consultation: &api.Consultation{ID: 42},
		addErr:       &api.Error{Status: 503, Detail: "try later"},
	}
	c := newTestController(t, gateway, time.Hour)

	err := c.SendMessage(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, "try later", c.ErrMsg.Get())
	assert.False(t, c.Sending.Get())

	gateway.mu.Lock()
	gateway.addErr = nil
	gateway.mu.Unlock()
	assert.NoError(t, c.SendMessage(context.Background(), "hello"))
}

func TestGenerateSummaryRequiresMessages(t *testing.T) {
	gateway := &fakeGateway{consultation: &api.Consultation{ID: 42}}
	c := newTestController(t, gateway, time.Hour)

	assert.ErrorIs(t, c.GenerateSummary(context.Background()), ErrNoMessages)
	assert.Equal(t, 0, gateway.count(&gateway.genCalls), "validation failure issues no request")
	assert.NotEmpty(t, c.SummaryErr.Get())
}

func TestGenerateSummaryIssuesOneRequest(t *testing.T) {
	gateway := &fakeGateway{
		consultation: &api.Consultation{ID: 42},
		summary:      &api.Summary{ConsultationID: 42, SummaryText: "patient reports fever"},
	}
	c := newTestController(t, gateway, time.Hour)
	c.applyMessages(c.nextSeq(), []api.ChatMessage{{ID: 1}}, true)

	require.NoError(t, c.GenerateSummary(context.Background()))
	assert.Equal(t, 1, gateway.count(&gateway.genCalls))
	require.NotNil(t, c.Summary.Get())
	assert.Equal(t, "patient reports fever", c.Summary.Get().SummaryText)
	assert.Empty(t, c.SummaryErr.Get())
}

func TestGenerateSummaryFailureUsesSummaryChannel(t *testing.T) {
	gateway := &fakeGateway{
		consultation: &api.Consultation{ID: 42},
		genErr:       &api.Error{Status: 500, Detail: "model offline"},
	}
	c := newTestController(t, gateway, time.Hour)
	c.applyMessages(c.nextSeq(), []api.ChatMessage{{ID: 1}}, true)

	require.Error(t, c.GenerateSummary(context.Background()))
	assert.Equal(t, "model offline", c.SummaryErr.Get())
	assert.Empty(t, c.ErrMsg.Get(), "summary failures stay off the general error channel")
}

func TestLoadSummaryNotFoundIsEmptyState(t *testing.T) {
	gateway := &fakeGateway{
		consultation:  &api.Consultation{ID: 42},
		getSummaryErr: api.ErrNotFound,
	}
	c := newTestController(t, gateway, time.Hour)

	c.LoadSummary(context.Background())

	assert.Nil(t, c.Summary.Get())
	assert.Empty(t, c.SummaryErr.Get(), "404 means no summary yet, not an error")
}

func TestExportSummaryWritesNamedFile(t *testing.T) {
	gateway := &fakeGateway{
		consultation: &api.Consultation{ID: 42},
		exportData:   []byte("%PDF-1.4 summary"),
	}
	dir := t.TempDir()
	c := New(42, gateway, dir, time.Hour, nil)
	defer c.Close()

	path, err := c.ExportSummary(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "consultation-42-summary.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 summary"), data)
}

func TestExportSummaryFailureUsesSummaryChannel(t *testing.T) {
	gateway := &fakeGateway{
		consultation: &api.Consultation{ID: 42},
		exportErr:    &api.Error{Status: 500, Detail: "render failed"},
	}
	c := newTestController(t, gateway, time.Hour)

	_, err := c.ExportSummary(context.Background(), "txt")
	require.Error(t, err)
	assert.Equal(t, "render failed", c.SummaryErr.Get())
}

func TestTranscribeRequiresAudio(t *testing.T) {
	gateway := &fakeGateway{consultation: &api.Consultation{ID: 42}}
	c := newTestController(t, gateway, time.Hour)
	require.NoError(t, c.Load(context.Background()))

	assert.ErrorIs(t, c.TranscribeAudio(context.Background()), ErrNoAudio)
	assert.Equal(t, 0, gateway.count(&gateway.transcribeCalls))
	assert.NotEmpty(t, c.TranscriptionErr.Get())
}

func TestTranscribeReloadsConsultation(t *testing.T) {
	gateway := &fakeGateway{
		consultation: &api.Consultation{ID: 42, AudioURL: "https://files/42.webm"},
	}
	c := newTestController(t, gateway, time.Hour)
	require.NoError(t, c.Load(context.Background()))
	gets := gateway.count(&gateway.consultationGets)

	require.NoError(t, c.TranscribeAudio(context.Background()))

	assert.Equal(t, 1, gateway.count(&gateway.transcribeCalls))
	assert.Equal(t, gets+1, gateway.count(&gateway.consultationGets),
		"success reloads the consultation for the new transcript")
}

func TestConcurrentTranscribeRejected(t *testing.T) {
	block := make(chan struct{})
	gateway := &fakeGateway{
		consultation:    &api.Consultation{ID: 42, AudioURL: "https://files/42.webm"},
		transcribeBlock: block,
	}
	c := newTestController(t, gateway, time.Hour)
	require.NoError(t, c.Load(context.Background()))

	done := make(chan error, 1)
	go func() { done <- c.TranscribeAudio(context.Background()) }()

	require.Eventually(t, func() bool { return c.Transcribing.Get() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.TranscribeAudio(context.Background()), ErrBusy)

	close(block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gateway.count(&gateway.transcribeCalls))
}

func TestUploadFileReloadsConsultation(t *testing.T) {
	gateway := &fakeGateway{consultation: &api.Consultation{ID: 42}}
	c := newTestController(t, gateway, time.Hour)
	require.NoError(t, c.Load(context.Background()))
	gets := gateway.count(&gateway.consultationGets)

	path := filepath.Join(t.TempDir(), "labs.txt")
	require.NoError(t, os.WriteFile(path, []byte("wbc 12.3"), 0644))

	require.NoError(t, c.UploadFile(context.Background(), path))

	assert.Equal(t, 1, gateway.count(&gateway.uploadCalls))
	assert.Equal(t, gets+1, gateway.count(&gateway.consultationGets))
}

func TestCancelConsultation(t *testing.T) {
	gateway := &fakeGateway{consultation: &api.Consultation{ID: 42, Status: api.StatusPending}}
	c := newTestController(t, gateway, time.Hour)
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.CancelConsultation(context.Background()))
	assert.Equal(t, api.StatusCancelled, c.Consultation.Get().Status)
}

func TestOperationsAfterCloseAreRejected(t *testing.T) {
	gateway := &fakeGateway{consultation: &api.Consultation{ID: 42}}
	c := New(42, gateway, t.TempDir(), time.Hour, nil)
	c.Close()

	assert.ErrorIs(t, c.Load(context.Background()), ErrClosed)
	assert.ErrorIs(t, c.SendMessage(context.Background(), "hi"), ErrClosed)
	assert.ErrorIs(t, c.GenerateSummary(context.Background()), ErrClosed)
}
