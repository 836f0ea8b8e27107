package tui

import (
	"testing"
	"time"

	"github.com/ghana-health/cli/internal/api"
	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "Today", formatDate(now.Add(-2*time.Hour)))
	assert.Equal(t, "Yesterday", formatDate(now.Add(-30*time.Hour)))
	assert.Equal(t, "3 days ago", formatDate(now.Add(-3*24*time.Hour).Add(-time.Hour)))

	old := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.Local)
	assert.Equal(t, "Mar 15, 2024", formatDate(old))

	assert.Equal(t, "", formatDate(time.Time{}))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "0 Bytes", formatFileSize(0))
	assert.Equal(t, "512 Bytes", formatFileSize(512))
	assert.Equal(t, "1 KB", formatFileSize(1024))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2 MB", formatFileSize(2*1024*1024))
}

func TestSenderStyle(t *testing.T) {
	label, color := senderStyle(api.SenderPatient)
	assert.Equal(t, "You", label)
	assert.Equal(t, "aqua", color)

	label, color = senderStyle(api.SenderDoctor)
	assert.Equal(t, "Doctor", label)
	assert.Equal(t, "yellow", color)

	label, color = senderStyle(api.SenderAI)
	assert.Equal(t, "Assistant", label)
	assert.Equal(t, "green", color)

	// Unknown senders still land on the care-team side, never as the patient
	label, color = senderStyle("nurse")
	assert.Equal(t, "nurse", label)
	assert.NotEqual(t, "aqua", color)
}

func TestStatusColor(t *testing.T) {
	assert.Equal(t, "[yellow]", statusColor("pending"))
	assert.Equal(t, "[blue]", statusColor("active"))
	assert.Equal(t, "[blue]", statusColor("in_progress"))
	assert.Equal(t, "[green]", statusColor("completed"))
	assert.Equal(t, "[red]", statusColor("cancelled"))
	assert.Equal(t, "[yellow]", statusColor("unknown"))
}
