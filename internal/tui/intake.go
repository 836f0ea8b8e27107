package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/ghana-health/cli/internal/attach"
	"github.com/ghana-health/cli/internal/intake"
	"github.com/rivo/tview"
)

// languages is the cycle order for the intake language hint
var languages = []string{"en", "tw", "ga"}

// IntakeView is the new-consultation screen: voice input, transcript
// editing, file attachments and submission.
type IntakeView struct {
	app        *App
	controller *intake.Controller

	flex     *tview.Flex
	input    *tview.TextArea
	status   *tview.TextView
	filesBox *tview.TextView
	fileForm *tview.InputField

	langIndex int
}

// NewIntakeView creates the intake screen and its controller
func NewIntakeView(app *App) *IntakeView {
	iv := &IntakeView{app: app}
	iv.controller = intake.New(app.client, app.recorder, app.recognizer,
		app.cfg.Consultation.Language, app.log)

	iv.input = tview.NewTextArea().
		SetPlaceholder("Describe your symptoms... (Ctrl+R to speak, Ctrl+S to submit)").
		SetWrap(true)
	iv.input.SetBorder(true).SetTitle(" Symptoms ")

	iv.status = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	iv.status.SetBorder(true).SetTitle(" Status ")

	iv.filesBox = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	iv.filesBox.SetBorder(true).SetTitle(" Attachments ")

	iv.fileForm = tview.NewInputField().
		SetLabel("File path: ").
		SetFieldWidth(0)
	iv.fileForm.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			iv.addFile(strings.TrimSpace(iv.fileForm.GetText()))
		}
		iv.fileForm.SetText("")
		iv.app.app.SetFocus(iv.input)
	})

	footer := tview.NewTextView().
		SetText("[yellow]Ctrl+R[white]: Record | [yellow]Ctrl+L[white]: Language | [yellow]Ctrl+F[white]: Attach | [yellow]Ctrl+S[white]: Submit | [yellow]Esc[white]: Back").
		SetDynamicColors(true)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(iv.status, 0, 1, false).
		AddItem(iv.filesBox, 0, 1, false)

	iv.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(
			tview.NewFlex().
				AddItem(iv.input, 0, 2, true).
				AddItem(right, 0, 1, false),
			0, 1, true,
		).
		AddItem(iv.fileForm, 1, 0, false).
		AddItem(footer, 1, 0, false)

	iv.input.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlR:
			iv.toggleVoice()
			return nil
		case tcell.KeyCtrlL:
			iv.cycleLanguage()
			return nil
		case tcell.KeyCtrlF:
			iv.app.app.SetFocus(iv.fileForm)
			return nil
		case tcell.KeyCtrlS:
			iv.submit()
			return nil
		}
		return event
	})

	iv.subscribe()
	iv.renderStatus()
	iv.renderFiles()
	return iv
}

// GetPrimitive returns the tview primitive
func (iv *IntakeView) GetPrimitive() tview.Primitive {
	return iv.flex
}

// subscribe wires controller state into the view. Callbacks can fire from
// any goroutine, so updates hop through the tview queue.
func (iv *IntakeView) subscribe() {
	redraw := func() {
		go iv.app.app.QueueUpdateDraw(func() {
			iv.renderStatus()
		})
	}

	iv.controller.Transcript.Subscribe(func(text string) {
		go iv.app.app.QueueUpdateDraw(func() {
			if text != "" && text != iv.input.GetText() {
				iv.input.SetText(text, true)
			}
		})
	})
	iv.controller.Files.Subscribe(func([]attach.File) {
		go iv.app.app.QueueUpdateDraw(func() {
			iv.renderFiles()
		})
	})
	iv.controller.Submitting.Subscribe(func(bool) { redraw() })
	iv.controller.ErrMsg.Subscribe(func(string) { redraw() })
	iv.controller.Language.Subscribe(func(string) { redraw() })
	if iv.app.recorder != nil {
		iv.app.recorder.Recording.Subscribe(func(bool) { redraw() })
		iv.app.recorder.Err.Subscribe(func(string) { redraw() })
	}
	if iv.app.recognizer != nil {
		iv.app.recognizer.Listening.Subscribe(func(bool) { redraw() })
		iv.app.recognizer.Err.Subscribe(func(string) { redraw() })
	}
}

// toggleVoice starts or stops the coupled speech + recording capture
func (iv *IntakeView) toggleVoice() {
	if iv.app.recognizer != nil && iv.app.recognizer.Listening.Get() {
		iv.controller.StopVoice()
		return
	}
	if err := iv.controller.StartVoice(context.Background()); err != nil {
		iv.status.SetText("[red]Speech recognition is not available on this system")
	}
}

// cycleLanguage advances the language hint
func (iv *IntakeView) cycleLanguage() {
	iv.langIndex = (iv.langIndex + 1) % len(languages)
	iv.controller.SetLanguage(languages[iv.langIndex])
}

// addFile attaches a local file to the draft and shows its preview
func (iv *IntakeView) addFile(path string) {
	if path == "" {
		return
	}
	if err := iv.controller.AddFile(path); err != nil {
		iv.status.SetText(fmt.Sprintf("[red]%v", err))
		return
	}
	iv.renderFiles()
}

// submit sends the draft; on success the session view opens for the new id
func (iv *IntakeView) submit() {
	iv.controller.SetTranscript(strings.TrimSpace(iv.input.GetText()))
	iv.controller.StopVoice()

	go func() {
		consultation, err := iv.controller.Submit(context.Background())
		if err != nil {
			// ErrMsg subscription renders the failure
			return
		}
		iv.app.app.QueueUpdateDraw(func() {
			iv.input.SetText("", false)
			iv.app.openSession(consultation.ID)
		})
	}()
}

// renderStatus paints the status pane from controller and capability state
func (iv *IntakeView) renderStatus() {
	var lines []string
	lines = append(lines, fmt.Sprintf("Language: [white]%s[-]", iv.controller.Language.Get()))

	if iv.app.recorder != nil && iv.app.recorder.Recording.Get() {
		lines = append(lines, "[red]* Recording[-]")
	}
	if iv.app.recognizer != nil && iv.app.recognizer.Listening.Get() {
		lines = append(lines, "[green]* Listening...[-]")
	}
	if iv.controller.Submitting.Get() {
		lines = append(lines, "[yellow]Submitting...[-]")
	}
	if iv.controller.Audio.Get() != nil {
		lines = append(lines, "[green]Audio recorded[-]")
	}

	if msg := iv.controller.ErrMsg.Get(); msg != "" {
		lines = append(lines, "[red]"+msg+"[-]")
	}
	if iv.app.recorder != nil {
		if msg := iv.app.recorder.Err.Get(); msg != "" {
			lines = append(lines, "[red]"+msg+"[-]")
		}
	}
	if iv.app.recognizer != nil {
		if msg := iv.app.recognizer.Err.Get(); msg != "" {
			lines = append(lines, "[red]"+msg+"[-]")
		}
	}

	iv.status.SetText(strings.Join(lines, "\n"))
}

// renderFiles paints the attachment pane, including PDF previews
func (iv *IntakeView) renderFiles() {
	files := iv.controller.Files.Get()
	if len(files) == 0 {
		iv.filesBox.SetText("[gray]No files attached. Ctrl+F to add one.")
		return
	}

	var lines []string
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("[white]%s [gray](%s, %s)[-]", f.Name, f.MIMEType, formatFileSize(f.Size)))
		if f.IsPDF() {
			if preview, err := attach.Preview(f.Path); err == nil && preview != "" {
				if len(preview) > 200 {
					preview = preview[:197] + "..."
				}
				lines = append(lines, "[gray]"+preview+"[-]")
			}
		}
	}
	iv.filesBox.SetText(strings.Join(lines, "\n"))
}

// Close stops any live capture owned by the intake controller
func (iv *IntakeView) Close() {
	iv.controller.Close()
}
