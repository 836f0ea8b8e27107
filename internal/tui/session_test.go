package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/ghana-health/cli/config"
	"github.com/ghana-health/cli/internal/api"
	"github.com/ghana-health/cli/internal/logger"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(baseURL string) *App {
	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	return &App{
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		cfg:    cfg,
		log:    logger.Nop(),
		client: api.NewClient(baseURL, nil),
	}
}

func TestSessionReloadKeyRetriesFailedLoad(t *testing.T) {
	var mu sync.Mutex
	failing := true

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		down := failing
		mu.Unlock()

		switch r.URL.Path {
		case "/consultations/42":
			if down {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(api.Consultation{ID: 42, Status: api.StatusActive, Language: "en"})
		case "/consultations/42/chat":
			json.NewEncoder(w).Encode([]api.ChatMessage{})
		case "/consultations/42/summary":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	app := newTestApp(server.URL)
	sv := NewSessionView(app, 42)
	defer sv.Close()

	sv.Start()
	require.Eventually(t, func() bool { return sv.controller.ErrMsg.Get() != "" },
		time.Second, time.Millisecond, "failed load must surface an error")
	assert.Nil(t, sv.controller.Consultation.Get())

	// The backend recovers; the reload key retries without leaving the view
	mu.Lock()
	failing = false
	mu.Unlock()

	capture := sv.input.GetInputCapture()
	require.NotNil(t, capture)
	consumed := capture(tcell.NewEventKey(tcell.KeyCtrlL, 0, tcell.ModCtrl))
	assert.Nil(t, consumed, "reload key must be handled by the view")

	require.Eventually(t, func() bool { return sv.controller.Consultation.Get() != nil },
		time.Second, time.Millisecond)
	assert.Equal(t, int64(42), sv.controller.Consultation.Get().ID)
}
