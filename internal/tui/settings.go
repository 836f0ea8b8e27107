package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ghana-health/cli/config"
	"github.com/rivo/tview"
)

// SettingsView displays and allows editing settings using tview
type SettingsView struct {
	app  *App
	flex *tview.Flex
	form *tview.Form
	text *tview.TextView
}

// NewSettingsView creates a new settings view
func NewSettingsView(app *App) *SettingsView {
	sv := &SettingsView{app: app}

	cfg := app.cfg
	sv.form = tview.NewForm().
		AddTextView("Settings", "Changes apply after Save:", 0, 1, false, false).
		AddInputField("API Base URL", cfg.API.BaseURL, 0, nil, func(text string) {
			cfg.API.BaseURL = strings.TrimSpace(text)
		}).
		AddInputField("Language (en/tw/ga)", cfg.Consultation.Language, 0, nil, func(text string) {
			cfg.Consultation.Language = strings.TrimSpace(text)
		}).
		AddInputField("Chat poll interval (seconds)", strconv.Itoa(cfg.Consultation.PollIntervalSecs), 0, nil, func(text string) {
			if secs, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && secs > 0 {
				cfg.Consultation.PollIntervalSecs = secs
			}
		}).
		AddInputField("Recorder command", cfg.Capture.Command, 0, nil, func(text string) {
			cfg.Capture.Command = strings.TrimSpace(text)
		}).
		AddInputField("Input device", cfg.Capture.InputDevice, 0, nil, func(text string) {
			cfg.Capture.InputDevice = strings.TrimSpace(text)
		}).
		AddInputField("Download directory", cfg.Paths.DownloadDir, 0, nil, func(text string) {
			cfg.Paths.DownloadDir = strings.TrimSpace(text)
		}).
		AddButton("Save", func() {
			sv.saveSettings()
		}).
		AddButton("Reset to Defaults", func() {
			sv.resetToDefaults()
		})
	sv.form.SetBorder(true).SetTitle(" Edit Settings ")

	sv.text = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	sv.text.SetBorder(true).SetTitle(" Current Settings ")

	sv.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(
			tview.NewFlex().
				AddItem(sv.form, 0, 1, true).
				AddItem(sv.text, 0, 1, false),
			0, 1, true,
		)

	sv.render()

	return sv
}

// GetPrimitive returns the tview primitive
func (sv *SettingsView) GetPrimitive() tview.Primitive {
	return sv.flex
}

// saveSettings persists the edited configuration
func (sv *SettingsView) saveSettings() {
	if err := sv.app.cfg.Save(); err != nil {
		sv.text.SetText(fmt.Sprintf("[red]Error saving settings: %v", err))
		return
	}
	sv.render()
	sv.text.SetText(sv.text.GetText(false) + "\n[green]Settings saved successfully!")
}

// resetToDefaults restores the default configuration in memory
func (sv *SettingsView) resetToDefaults() {
	*sv.app.cfg = *config.Default()
	sv.render()
	sv.text.SetText(sv.text.GetText(false) + "\n[yellow]Reset to defaults. Press Save to apply.")
}

// render updates the settings display
func (sv *SettingsView) render() {
	cfg := sv.app.cfg

	settingsText := fmt.Sprintf(`[white]API:
  Base URL: [aqua]%s[white]

Consultation:
  Language: [aqua]%s[white]
  Poll Interval: [aqua]%ds[white]

Capture:
  Command: [aqua]%s[white]
  Input Format: [aqua]%s[white]
  Input Device: [aqua]%s[white]
  Sample Rate: [aqua]%d Hz[white]
  Channels: [aqua]%d[white]

Paths:
  Downloads: [aqua]%s[white]
  Log File: [aqua]%s[white]

Logging:
  Mode: [aqua]%s[white]`,
		cfg.API.BaseURL,
		cfg.Consultation.Language,
		cfg.Consultation.PollIntervalSecs,
		cfg.Capture.Command,
		cfg.Capture.InputFormat,
		cfg.Capture.InputDevice,
		cfg.Capture.SampleRate,
		cfg.Capture.Channels,
		cfg.Paths.DownloadDir,
		cfg.Paths.LogFile,
		cfg.Logging.Mode,
	)

	sv.text.SetText(settingsText)
}
