package tui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/ghana-health/cli/config"
	"github.com/ghana-health/cli/internal/api"
	"github.com/ghana-health/cli/internal/capture"
	"github.com/ghana-health/cli/internal/logger"
	"github.com/ghana-health/cli/internal/speech"
	"github.com/rivo/tview"
)

// App is the main TUI application
type App struct {
	app   *tview.Application
	pages *tview.Pages

	cfg        *config.Config
	log        *logger.Logger
	client     *api.Client
	device     capture.Device
	recorder   *capture.Recorder
	recognizer *speech.Recognizer

	// Views
	dashboardView     *DashboardView
	consultationsView *ConsultationsView
	intakeView        *IntakeView
	settingsView      *SettingsView
	sessionView       *SessionView
}

// NewApp creates the TUI application and wires the gateway and capabilities
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	client := api.NewClient(cfg.API.BaseURL, log)

	device := capture.NewExecDevice(cfg.Capture.Command)
	deviceCfg := capture.DeviceConfig{
		SampleRate:  cfg.Capture.SampleRate,
		Channels:    cfg.Capture.Channels,
		InputFormat: cfg.Capture.InputFormat,
		InputDevice: cfg.Capture.InputDevice,
	}
	recorder := capture.NewRecorder(device, deviceCfg, log)
	recognizer := speech.NewRecognizer(device, speech.NewWhisperEngine(client), log)

	app := &App{
		cfg:        cfg,
		log:        log,
		client:     client,
		device:     device,
		recorder:   recorder,
		recognizer: recognizer,
	}

	app.app = tview.NewApplication()
	app.pages = tview.NewPages()

	app.dashboardView = NewDashboardView(app)
	app.consultationsView = NewConsultationsView(app)
	app.intakeView = NewIntakeView(app)
	app.settingsView = NewSettingsView(app)

	app.pages.AddPage("dashboard", app.dashboardView.GetPrimitive(), true, true)
	app.pages.AddPage("consultations", app.consultationsView.GetPrimitive(), true, false)
	app.pages.AddPage("new", app.intakeView.GetPrimitive(), true, false)
	app.pages.AddPage("settings", app.settingsView.GetPrimitive(), true, false)

	app.app.SetRoot(app.pages, true).SetFocus(app.pages)
	app.setupGlobalKeys()

	return app, nil
}

// pollInterval resolves the configured chat poll interval
func (a *App) pollInterval() time.Duration {
	secs := a.cfg.Consultation.PollIntervalSecs
	if secs <= 0 {
		secs = 5
	}
	return time.Duration(secs) * time.Second
}

// openSession tears down any previous session view and opens the
// consultation with the given id.
func (a *App) openSession(id int64) {
	a.closeSession()
	a.sessionView = NewSessionView(a, id)
	a.pages.AddPage("session", a.sessionView.GetPrimitive(), true, false)
	a.pages.SwitchToPage("session")
	a.sessionView.Start()
}

// closeSession cancels the live session, if any. Polling and pending
// fetches die with it.
func (a *App) closeSession() {
	if a.sessionView != nil {
		a.sessionView.Close()
		a.pages.RemovePage("session")
		a.sessionView = nil
	}
}

// setupGlobalKeys sets up global keyboard shortcuts
func (a *App) setupGlobalKeys() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		name, _ := a.pages.GetFrontPage()

		// Session and intake views own their input handling; only intercept
		// the exit keys there.
		if name == "session" || name == "new" {
			switch event.Key() {
			case tcell.KeyCtrlC:
				a.Stop()
				return nil
			case tcell.KeyEsc:
				if name == "session" {
					a.closeSession()
					a.consultationsView.Reload()
					a.pages.SwitchToPage("consultations")
				} else {
					a.pages.SwitchToPage("dashboard")
				}
				return nil
			}
			return event
		}

		switch event.Key() {
		case tcell.KeyCtrlC:
			a.Stop()
			return nil
		case tcell.KeyEsc:
			if name == "dashboard" {
				a.Stop()
				return nil
			}
			a.pages.SwitchToPage("dashboard")
			return nil
		}

		switch event.Rune() {
		case '0':
			a.pages.SwitchToPage("dashboard")
			return nil
		case '1':
			a.consultationsView.Reload()
			a.pages.SwitchToPage("consultations")
			return nil
		case '2':
			a.pages.SwitchToPage("new")
			return nil
		case '3':
			a.pages.SwitchToPage("settings")
			return nil
		}

		return event
	})
}

// Stop shuts the application down, releasing any live session first
func (a *App) Stop() {
	a.closeSession()
	a.intakeView.Close()
	a.app.Stop()
}

// Run starts the TUI application
func (a *App) Run() error {
	defer a.log.Sync()
	a.log.Info("client started", "api", a.cfg.API.BaseURL)
	if err := a.app.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
