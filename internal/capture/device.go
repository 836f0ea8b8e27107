package capture

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

// DeviceConfig describes how the microphone should be captured
type DeviceConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// Session is a live capture session. Reads return encoded audio until the
// session is stopped, after which Read returns io.EOF once buffered data is
// flushed. Close releases the device handle and must be called on every exit
// path.
type Session interface {
	io.ReadCloser
	Stop() error
}

// Device opens microphone capture sessions
type Device interface {
	Start(ctx context.Context, cfg DeviceConfig) (Session, error)
}

// ExecDevice captures audio by running an external recorder command
// (ffmpeg-style) that writes encoded audio to stdout.
type ExecDevice struct {
	Command string
}

// NewExecDevice creates a device backed by the given command. An empty
// command defaults to ffmpeg.
func NewExecDevice(command string) *ExecDevice {
	if command == "" {
		command = "ffmpeg"
	}
	return &ExecDevice{Command: command}
}

// Start launches the recorder process and returns a session reading its
// stdout
func (d *ExecDevice) Start(ctx context.Context, cfg DeviceConfig) (Session, error) {
	args := buildRecorderArgs(cfg)
	cmd := exec.CommandContext(ctx, d.Command, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open recorder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start recorder: %w", err)
	}

	return &execSession{cmd: cmd, stdout: stdout}, nil
}

// buildRecorderArgs maps a DeviceConfig onto ffmpeg arguments
func buildRecorderArgs(cfg DeviceConfig) []string {
	format := cfg.InputFormat
	if format == "" {
		format = "pulse"
	}
	device := cfg.InputDevice
	if device == "" {
		device = "default"
	}
	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	channels := cfg.Channels
	if channels == 0 {
		channels = 1
	}

	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format,
		"-i", device,
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-f", "webm",
		"-",
	}
}

type execSession struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (s *execSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Stop asks the recorder to finish; ffmpeg flushes and exits on SIGINT,
// which lets the drain loop see EOF with a complete container.
func (s *execSession) Stop() error {
	if s.cmd.Process == nil {
		return nil
	}
	return s.cmd.Process.Signal(syscall.SIGINT)
}

// Close reaps the process and releases the device
func (s *execSession) Close() error {
	_ = s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}
