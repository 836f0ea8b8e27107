package capture

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/ghana-health/cli/internal/logger"
	"github.com/ghana-health/cli/internal/state"
)

// Clip is one finalized recording
type Clip struct {
	Data     []byte
	MIMEType string
}

// clipMIMEType matches the container the recorder pipeline always emits.
// DeviceConfig.InputFormat selects the capture source, not the output.
const clipMIMEType = "audio/webm"

// Recorder drives one capture session at a time. It owns the device handle
// for the duration of a recording and releases it on every exit path,
// including drain errors.
//
// Observables: Recording flips on start/stop, Err carries capability errors
// (permission denied, device busy) as user-facing text. Exactly one Clip is
// delivered on Clips() per successful recording, after the stop flush.
type Recorder struct {
	device Device
	cfg    DeviceConfig
	log    *logger.Logger

	Recording *state.Value[bool]
	Err       *state.Value[string]

	mu      sync.Mutex
	session Session
	clips   chan Clip
}

// NewRecorder creates a recorder over the given device
func NewRecorder(device Device, cfg DeviceConfig, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{
		device:    device,
		cfg:       cfg,
		log:       log,
		Recording: state.NewValue(false),
		Err:       state.NewValue(""),
		clips:     make(chan Clip, 1),
	}
}

// Clips delivers finalized recordings
func (r *Recorder) Clips() <-chan Clip {
	return r.clips
}

// Start begins capture. A device error surfaces on Err instead of a state
// transition; no retry is attempted. Starting while already recording is a
// no-op.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	if r.session != nil {
		r.mu.Unlock()
		return
	}

	session, err := r.device.Start(ctx, r.cfg)
	if err != nil {
		r.mu.Unlock()
		r.log.Error("microphone start failed", "error", err)
		r.Err.Set("Microphone access denied")
		return
	}
	r.session = session
	r.mu.Unlock()

	r.Err.Set("")
	r.Recording.Set(true)
	go r.drain(session)
}

// Stop finalizes the current recording; a no-op when idle. The clip arrives
// on Clips() asynchronously once the drain loop flushes.
func (r *Recorder) Stop() {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return
	}

	if err := session.Stop(); err != nil {
		r.log.Warn("recorder stop failed", "error", err)
	}
	r.Recording.Set(false)
}

// drain buffers session audio until EOF, then delivers the clip and releases
// the device.
func (r *Recorder) drain(session Session) {
	defer func() {
		session.Close()
		r.mu.Lock()
		r.session = nil
		r.mu.Unlock()
	}()

	var buf bytes.Buffer
	_, err := io.Copy(&buf, session)
	if err != nil {
		r.log.Error("recording stream failed", "error", err)
		r.Err.Set("Recording failed")
		r.Recording.Set(false)
		return
	}

	if buf.Len() == 0 {
		return
	}

	clip := Clip{Data: buf.Bytes(), MIMEType: clipMIMEType}
	select {
	case r.clips <- clip:
	default:
		// Previous clip was never consumed; replace it
		select {
		case <-r.clips:
		default:
		}
		r.clips <- clip
	}
}

