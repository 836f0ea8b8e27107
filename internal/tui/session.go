package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/ghana-health/cli/internal/api"
	"github.com/ghana-health/cli/internal/session"
	"github.com/rivo/tview"
)

// SessionView is the live consultation screen: the chat log with its
// background refresh, message input, file upload and the summary pane.
type SessionView struct {
	app        *App
	controller *session.Controller

	flex       *tview.Flex
	chatBox    *tview.TextView
	input      *tview.InputField
	infoBox    *tview.TextView
	summaryBox *tview.TextView
	statusBar  *tview.TextView
	uploadForm *tview.InputField
}

// NewSessionView creates the session screen bound to one consultation id
func NewSessionView(app *App, id int64) *SessionView {
	sv := &SessionView{app: app}
	sv.controller = session.New(id, app.client, app.cfg.Paths.DownloadDir,
		app.pollInterval(), app.log)

	sv.chatBox = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetScrollable(true)
	sv.chatBox.SetBorder(true).SetTitle(fmt.Sprintf(" Consultation #%d ", id))

	sv.input = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	sv.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			sv.send()
		}
	})

	sv.infoBox = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	sv.infoBox.SetBorder(true).SetTitle(" Details ")

	sv.summaryBox = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetScrollable(true)
	sv.summaryBox.SetBorder(true).SetTitle(" AI Summary ")

	sv.statusBar = tview.NewTextView().SetDynamicColors(true)

	sv.uploadForm = tview.NewInputField().
		SetLabel("Upload file: ").
		SetFieldWidth(0)
	sv.uploadForm.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			sv.upload(strings.TrimSpace(sv.uploadForm.GetText()))
		}
		sv.uploadForm.SetText("")
		sv.app.app.SetFocus(sv.input)
	})

	footer := tview.NewTextView().
		SetText("[yellow]Enter[white]: Send | [yellow]Ctrl+G[white]: Summary | [yellow]Ctrl+P[white]: Export PDF | [yellow]Ctrl+T[white]: Transcribe | [yellow]Ctrl+U[white]: Upload | [yellow]Ctrl+L[white]: Reload | [yellow]Ctrl+X[white]: Cancel | [yellow]Esc[white]: Back").
		SetDynamicColors(true)

	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(sv.chatBox, 0, 1, false).
		AddItem(sv.input, 1, 0, true)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(sv.infoBox, 0, 1, false).
		AddItem(sv.summaryBox, 0, 2, false)

	sv.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(
			tview.NewFlex().
				AddItem(left, 0, 2, true).
				AddItem(right, 0, 1, false),
			0, 1, true,
		).
		AddItem(sv.uploadForm, 1, 0, false).
		AddItem(sv.statusBar, 1, 0, false).
		AddItem(footer, 1, 0, false)

	sv.input.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlG:
			sv.generateSummary()
			return nil
		case tcell.KeyCtrlP:
			sv.export("pdf")
			return nil
		case tcell.KeyCtrlT:
			sv.transcribe()
			return nil
		case tcell.KeyCtrlU:
			sv.app.app.SetFocus(sv.uploadForm)
			return nil
		case tcell.KeyCtrlX:
			sv.cancelConsultation()
			return nil
		case tcell.KeyCtrlL:
			sv.reload()
			return nil
		}
		return event
	})

	sv.subscribe()
	return sv
}

// GetPrimitive returns the tview primitive
func (sv *SessionView) GetPrimitive() tview.Primitive {
	return sv.flex
}

// Start loads the consultation and begins chat polling
func (sv *SessionView) Start() {
	sv.reload()
}

// reload fetches the consultation again; also the retry path after a failed
// load, since Load does not start polling until it succeeds.
func (sv *SessionView) reload() {
	go func() {
		if err := sv.controller.Load(context.Background()); err != nil {
			return
		}
		sv.controller.LoadSummary(context.Background())
	}()
}

// Close cancels the session; polling and in-flight requests die with it
func (sv *SessionView) Close() {
	sv.controller.Close()
}

// subscribe wires controller state into the panes. Callbacks can fire from
// any goroutine, so updates hop through the tview queue.
func (sv *SessionView) subscribe() {
	status := func() {
		go sv.app.app.QueueUpdateDraw(func() {
			sv.renderStatus()
		})
	}

	sv.controller.Messages.Subscribe(func(messages []api.ChatMessage) {
		go sv.app.app.QueueUpdateDraw(func() {
			sv.renderChat(messages)
		})
	})
	sv.controller.Consultation.Subscribe(func(c *api.Consultation) {
		go sv.app.app.QueueUpdateDraw(func() {
			sv.renderInfo(c)
		})
	})
	sv.controller.Summary.Subscribe(func(s *api.Summary) {
		go sv.app.app.QueueUpdateDraw(func() {
			sv.renderSummary(s)
		})
	})

	sv.controller.Loading.Subscribe(func(bool) { status() })
	sv.controller.Sending.Subscribe(func(bool) { status() })
	sv.controller.Transcribing.Subscribe(func(bool) { status() })
	sv.controller.GeneratingSummary.Subscribe(func(bool) { status() })
	sv.controller.ErrMsg.Subscribe(func(string) { status() })
	sv.controller.SummaryErr.Subscribe(func(string) { status() })
	sv.controller.TranscriptionErr.Subscribe(func(string) { status() })
}

// send posts the chat input
func (sv *SessionView) send() {
	text := strings.TrimSpace(sv.input.GetText())
	if text == "" {
		return
	}
	sv.input.SetText("")

	go func() {
		// ErrBusy is dropped silently; the first send is still in flight
		// and the input already reflects the user's intent.
		_ = sv.controller.SendMessage(context.Background(), text)
	}()
}

// upload attaches a local file to the consultation
func (sv *SessionView) upload(path string) {
	if path == "" {
		return
	}
	go func() {
		_ = sv.controller.UploadFile(context.Background(), path)
	}()
}

// generateSummary requests a fresh AI summary
func (sv *SessionView) generateSummary() {
	go func() {
		_ = sv.controller.GenerateSummary(context.Background())
	}()
}

// export downloads the summary and reports where it landed
func (sv *SessionView) export(format string) {
	go func() {
		path, err := sv.controller.ExportSummary(context.Background(), format)
		if err != nil {
			return
		}
		sv.app.app.QueueUpdateDraw(func() {
			sv.statusBar.SetText("[green]Summary saved to " + path)
		})
	}()
}

// transcribe runs server-side transcription of the stored recording
func (sv *SessionView) transcribe() {
	go func() {
		_ = sv.controller.TranscribeAudio(context.Background())
	}()
}

// cancelConsultation marks the consultation cancelled
func (sv *SessionView) cancelConsultation() {
	go func() {
		_ = sv.controller.CancelConsultation(context.Background())
	}()
}

// renderChat paints the chat transcript and keeps it scrolled to the end
func (sv *SessionView) renderChat(messages []api.ChatMessage) {
	if len(messages) == 0 {
		sv.chatBox.SetText("[gray]No messages yet. Say hello to start the conversation.")
		return
	}

	var b strings.Builder
	for _, m := range messages {
		label, color := senderStyle(m.Sender)
		fmt.Fprintf(&b, "[%s]%s[-] [gray]%s[-]\n%s\n\n",
			color, label, formatTime(m.Timestamp), m.Message)
	}
	sv.chatBox.SetText(b.String())
	sv.chatBox.ScrollToEnd()
}

// senderStyle maps a chat sender onto its transcript label and color. Only
// the patient's own messages take the patient styling; everyone else sits on
// the care-team side.
func senderStyle(sender string) (label, color string) {
	switch sender {
	case api.SenderPatient:
		return "You", "aqua"
	case api.SenderDoctor:
		return "Doctor", "yellow"
	case api.SenderAI:
		return "Assistant", "green"
	}
	return sender, "green"
}

// renderInfo paints the consultation detail pane
func (sv *SessionView) renderInfo(c *api.Consultation) {
	if c == nil {
		sv.infoBox.SetText("[gray]Loading...")
		return
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Status: %s%s[-]", statusColor(c.Status), c.Status))
	lines = append(lines, "Language: "+c.Language)
	lines = append(lines, "Created: "+formatDateTime(c.CreatedAt))
	if c.AudioURL != "" {
		lines = append(lines, "[green]Audio recording attached[-]")
	}
	if c.Transcript != "" {
		transcript := c.Transcript
		if len(transcript) > 300 {
			transcript = transcript[:297] + "..."
		}
		lines = append(lines, "", "[white]Transcript:[-]", transcript)
	}
	if len(c.FileAttachments) > 0 {
		lines = append(lines, "", fmt.Sprintf("[white]Files (%d):[-]", len(c.FileAttachments)))
		for _, f := range c.FileAttachments {
			lines = append(lines, fmt.Sprintf("  %s [gray](%s)[-]", f.Filename, formatFileSize(f.Size)))
		}
	}
	sv.infoBox.SetText(strings.Join(lines, "\n"))
}

// renderSummary paints the AI summary pane
func (sv *SessionView) renderSummary(s *api.Summary) {
	if s == nil {
		sv.summaryBox.SetText("[gray]No summary yet. Ctrl+G to generate one.")
		return
	}

	var lines []string
	lines = append(lines, s.SummaryText)
	if len(s.KeyPoints) > 0 {
		lines = append(lines, "", "[white]Key points:[-]")
		for _, p := range s.KeyPoints {
			lines = append(lines, "  - "+p)
		}
	}
	entities := s.MedicalEntities
	if len(entities.Symptoms) > 0 {
		lines = append(lines, "", "[yellow]Symptoms:[-] "+strings.Join(entities.Symptoms, ", "))
	}
	if len(entities.Diagnoses) > 0 {
		lines = append(lines, "[yellow]Diagnoses:[-] "+strings.Join(entities.Diagnoses, ", "))
	}
	if len(entities.Medications) > 0 {
		lines = append(lines, "[yellow]Medications:[-] "+strings.Join(entities.Medications, ", "))
	}
	if s.Sentiment != "" {
		lines = append(lines, "", "[gray]Sentiment: "+s.Sentiment+"[-]")
	}
	lines = append(lines, "", "[gray]Generated "+formatDateTime(s.GeneratedAt)+"[-]")
	sv.summaryBox.SetText(strings.Join(lines, "\n"))
}

// renderStatus paints the one-line status bar from flags and error channels
func (sv *SessionView) renderStatus() {
	var parts []string
	if sv.controller.Loading.Get() {
		parts = append(parts, "[yellow]Loading...[-]")
	}
	if sv.controller.Sending.Get() {
		parts = append(parts, "[yellow]Sending...[-]")
	}
	if sv.controller.GeneratingSummary.Get() {
		parts = append(parts, "[yellow]Generating summary...[-]")
	}
	if sv.controller.Transcribing.Get() {
		parts = append(parts, "[yellow]Transcribing...[-]")
	}
	if msg := sv.controller.ErrMsg.Get(); msg != "" {
		parts = append(parts, "[red]"+msg+"[-]")
	}
	if msg := sv.controller.SummaryErr.Get(); msg != "" {
		parts = append(parts, "[red]"+msg+"[-]")
	}
	if msg := sv.controller.TranscriptionErr.Get(); msg != "" {
		parts = append(parts, "[red]"+msg+"[-]")
	}
	sv.statusBar.SetText(strings.Join(parts, " | "))
}
