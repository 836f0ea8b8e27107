package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession feeds canned audio and tracks device release
type fakeSession struct {
	mu      sync.Mutex
	data    []byte
	stopped bool
	closed  bool
	readErr error
}

func (s *fakeSession) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return 0, s.readErr
	}
	if len(s.data) > 0 {
		n := copy(p, s.data)
		s.data = s.data[n:]
		return n, nil
	}
	if s.stopped {
		return 0, io.EOF
	}
	// Simulate waiting on the device between chunks
	s.mu.Unlock()
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	return 0, nil
}

func (s *fakeSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDevice struct {
	session  *fakeSession
	startErr error
}

func (d *fakeDevice) Start(ctx context.Context, cfg DeviceConfig) (Session, error) {
	if d.startErr != nil {
		return nil, d.startErr
	}
	return d.session, nil
}

func TestRecorderDeliversOneClipOnStop(t *testing.T) {
	session := &fakeSession{data: []byte("audio-bytes")}
	recorder := NewRecorder(&fakeDevice{session: session}, DeviceConfig{}, nil)

	recorder.Start(context.Background())
	assert.True(t, recorder.Recording.Get())

	recorder.Stop()
	assert.False(t, recorder.Recording.Get())

	select {
	case clip := <-recorder.Clips():
		assert.Equal(t, []byte("audio-bytes"), clip.Data)
		assert.Equal(t, "audio/webm", clip.MIMEType)
	case <-time.After(time.Second):
		t.Fatal("no clip delivered after stop")
	}

	require.Eventually(t, session.isClosed, time.Second, time.Millisecond,
		"device handle must be released after stop")
}

func TestRecorderDeniedSurfacesErrorNotState(t *testing.T) {
	recorder := NewRecorder(&fakeDevice{startErr: errors.New("permission denied")}, DeviceConfig{}, nil)

	recorder.Start(context.Background())

	assert.False(t, recorder.Recording.Get())
	assert.Equal(t, "Microphone access denied", recorder.Err.Get())
}

func TestRecorderReleasesDeviceOnStreamError(t *testing.T) {
	session := &fakeSession{readErr: errors.New("device yanked")}
	recorder := NewRecorder(&fakeDevice{session: session}, DeviceConfig{}, nil)

	recorder.Start(context.Background())

	require.Eventually(t, session.isClosed, time.Second, time.Millisecond,
		"device handle must be released on the error path")
	require.Eventually(t, func() bool { return recorder.Err.Get() != "" },
		time.Second, time.Millisecond)
	assert.False(t, recorder.Recording.Get())
}

func TestRecorderStopWhileIdleIsNoOp(t *testing.T) {
	recorder := NewRecorder(&fakeDevice{session: &fakeSession{}}, DeviceConfig{}, nil)
	recorder.Stop()
	assert.False(t, recorder.Recording.Get())
}

func TestRecorderStartWhileRecordingIsNoOp(t *testing.T) {
	session := &fakeSession{data: []byte("x")}
	device := &fakeDevice{session: session}
	recorder := NewRecorder(device, DeviceConfig{}, nil)

	recorder.Start(context.Background())
	device.startErr = errors.New("would fail if called again")
	recorder.Start(context.Background())

	assert.True(t, recorder.Recording.Get())
	assert.Empty(t, recorder.Err.Get())
	recorder.Stop()
}

func TestRecorderClipMIMEIgnoresInputFormat(t *testing.T) {
	// The input format selects the capture demuxer; the encoded output is
	// always a webm container and the clip label must say so.
	session := &fakeSession{data: []byte("x")}
	recorder := NewRecorder(&fakeDevice{session: session}, DeviceConfig{InputFormat: "wav"}, nil)

	recorder.Start(context.Background())
	recorder.Stop()

	select {
	case clip := <-recorder.Clips():
		assert.Equal(t, "audio/webm", clip.MIMEType)
	case <-time.After(time.Second):
		t.Fatal("no clip delivered after stop")
	}
}
