package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// DashboardView shows overall status and the main menu
type DashboardView struct {
	app    *App
	flex   *tview.Flex
	status *tview.TextView
	menu   *tview.List
}

// NewDashboardView creates the dashboard
func NewDashboardView(app *App) *DashboardView {
	dv := &DashboardView{app: app}

	dv.status = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	dv.status.SetBorder(true).SetTitle(" My Consultations ")

	dv.menu = tview.NewList().
		AddItem("Consultations", "Browse your consultations and open a chat", '1', func() {
			app.consultationsView.Reload()
			app.pages.SwitchToPage("consultations")
		}).
		AddItem("New Consultation", "Describe your symptoms by voice, text or files", '2', func() {
			app.pages.SwitchToPage("new")
		}).
		AddItem("Settings", "View application settings", '3', func() {
			app.pages.SwitchToPage("settings")
		}).
		AddItem("Refresh", "Reload consultation counts", 'r', func() {
			dv.reloadStats()
		}).
		AddItem("Quit", "Press to exit", 'q', func() {
			app.Stop()
		})
	dv.menu.SetBorder(true).SetTitle(" Ghana Health Platform ")

	dv.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(dv.status, 7, 0, false).
		AddItem(dv.menu, 0, 1, true)

	dv.status.SetText("[gray]Press r to load consultation counts")
	return dv
}

// GetPrimitive returns the tview primitive
func (dv *DashboardView) GetPrimitive() tview.Primitive {
	return dv.flex
}

// reloadStats fetches consultations and renders counts by status
func (dv *DashboardView) reloadStats() {
	dv.status.SetText("[yellow]Loading...")
	go func() {
		consultations, err := dv.app.client.ListConsultations(context.Background(), "")
		dv.app.app.QueueUpdateDraw(func() {
			if err != nil {
				dv.status.SetText(fmt.Sprintf("[red]Failed to load consultations: %v", err))
				return
			}

			counts := map[string]int{}
			for _, c := range consultations {
				counts[c.Status]++
			}

			var lines []string
			lines = append(lines, fmt.Sprintf("Total:       [white]%d", len(consultations)))
			lines = append(lines, fmt.Sprintf("Pending:     %s%d[white]", statusColor("pending"), counts["pending"]))
			lines = append(lines, fmt.Sprintf("Active:      %s%d[white]", statusColor("active"), counts["active"]+counts["in_progress"]))
			lines = append(lines, fmt.Sprintf("Completed:   %s%d[white]", statusColor("completed"), counts["completed"]))
			lines = append(lines, fmt.Sprintf("Cancelled:   %s%d[white]", statusColor("cancelled"), counts["cancelled"]))
			dv.status.SetText(strings.Join(lines, "\n"))
		})
	}()
}
