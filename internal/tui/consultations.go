package tui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/ghana-health/cli/internal/api"
	"github.com/rivo/tview"
)

// statusFilters is the cycle order for the list filter; empty means all
var statusFilters = []string{"", api.StatusPending, api.StatusActive, api.StatusCompleted, api.StatusCancelled}

// ConsultationsView lists the patient's consultations
type ConsultationsView struct {
	app  *App
	flex *tview.Flex
	list *tview.List
	info *tview.TextView

	consultations []api.Consultation
	filterIndex   int
}

// NewConsultationsView creates the consultation list view
func NewConsultationsView(app *App) *ConsultationsView {
	cv := &ConsultationsView{app: app}

	cv.list = tview.NewList().
		ShowSecondaryText(true).
		SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			cv.openSelected(index)
		}).
		SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			cv.showInfo(index)
		})
	cv.list.SetBorder(true).SetTitle(" Consultations ")

	cv.info = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true)
	cv.info.SetBorder(true).SetTitle(" Details ")

	cv.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(
			tview.NewFlex().
				AddItem(cv.list, 0, 2, true).
				AddItem(cv.info, 0, 1, false),
			0, 1, true,
		).
		AddItem(
			tview.NewTextView().
				SetText("[yellow]Enter[white]: Open | [yellow]n[white]: New | [yellow]f[white]: Filter | [yellow]r[white]: Reload").
				SetDynamicColors(true),
			1, 0, false,
		)

	cv.list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'n', 'N':
			cv.app.pages.SwitchToPage("new")
			return nil
		case 'f', 'F':
			cv.filterIndex = (cv.filterIndex + 1) % len(statusFilters)
			cv.Reload()
			return nil
		case 'r', 'R':
			cv.Reload()
			return nil
		}
		return event
	})

	return cv
}

// GetPrimitive returns the tview primitive
func (cv *ConsultationsView) GetPrimitive() tview.Primitive {
	return cv.flex
}

// Reload refreshes the list with the current status filter
func (cv *ConsultationsView) Reload() {
	filter := statusFilters[cv.filterIndex]
	title := " Consultations "
	if filter != "" {
		title = fmt.Sprintf(" Consultations (%s) ", filter)
	}
	cv.list.SetTitle(title)
	cv.info.SetText("[yellow]Loading...")

	go func() {
		consultations, err := cv.app.client.ListConsultations(context.Background(), filter)
		cv.app.app.QueueUpdateDraw(func() {
			if err != nil {
				cv.info.SetText(fmt.Sprintf("[red]%s\n\n[white]Press r to retry",
					api.UserMessage(err, "Failed to load consultations")))
				return
			}

			cv.consultations = consultations
			cv.list.Clear()
			if len(consultations) == 0 {
				cv.info.SetText("[gray]No consultations yet. Press n to start one.")
				return
			}

			for _, c := range consultations {
				main := fmt.Sprintf("#%d  %s%s[white]", c.ID, statusColor(c.Status), c.Status)
				secondary := formatDate(c.CreatedAt)
				if c.Transcript != "" {
					excerpt := c.Transcript
					if len(excerpt) > 60 {
						excerpt = excerpt[:57] + "..."
					}
					secondary += "  " + excerpt
				}
				cv.list.AddItem(main, secondary, 0, nil)
			}
			cv.showInfo(0)
		})
	}()
}

// openSelected opens the session view for the highlighted consultation
func (cv *ConsultationsView) openSelected(index int) {
	if index < 0 || index >= len(cv.consultations) {
		return
	}
	cv.app.openSession(cv.consultations[index].ID)
}

// showInfo renders the detail pane for the highlighted consultation
func (cv *ConsultationsView) showInfo(index int) {
	if index < 0 || index >= len(cv.consultations) {
		cv.info.SetText("")
		return
	}
	c := cv.consultations[index]

	text := fmt.Sprintf("[white]Consultation #%d\n\n", c.ID)
	text += fmt.Sprintf("Status:   %s%s[white]\n", statusColor(c.Status), c.Status)
	text += fmt.Sprintf("Language: %s\n", c.Language)
	text += fmt.Sprintf("Created:  %s\n", formatDateTime(c.CreatedAt))
	text += fmt.Sprintf("Updated:  %s\n", formatDateTime(c.UpdatedAt))
	if c.AudioURL != "" {
		text += "\n[green]Has audio recording[white]\n"
	}
	if len(c.FileAttachments) > 0 {
		text += fmt.Sprintf("\nAttachments (%d):\n", len(c.FileAttachments))
		for _, f := range c.FileAttachments {
			text += fmt.Sprintf("  [gray]- %s (%s)[white]\n", f.Filename, formatFileSize(f.Size))
		}
	}
	if c.Transcript != "" {
		text += "\n[yellow]Transcript:[white]\n" + c.Transcript
	}
	cv.info.SetText(text)
}
