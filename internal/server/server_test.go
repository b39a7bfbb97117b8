package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomcast/loomcast/internal/config"
	"github.com/loomcast/loomcast/internal/host"
	"github.com/loomcast/loomcast/internal/hwaccel"
	"github.com/loomcast/loomcast/internal/media"
	"github.com/loomcast/loomcast/internal/prefs"
	"github.com/loomcast/loomcast/internal/recorder"
	"github.com/loomcast/loomcast/internal/session"
	"github.com/loomcast/loomcast/internal/transcode"
)

type fakeLister struct{ sources []media.CaptureSource }

func (f *fakeLister) ListDesktopSources(ctx context.Context) ([]media.CaptureSource, error) {
	return f.sources, nil
}

type fakeEnumerator struct{ devices []media.Device }

func (f *fakeEnumerator) WarmUpPermissions(ctx context.Context) {}
func (f *fakeEnumerator) EnumerateDevices(ctx context.Context) ([]media.Device, error) {
	return f.devices, nil
}

type fakeStream struct {
	id      string
	stopped bool
	mu      sync.Mutex
	data    []byte
}

func (f *fakeStream) ID() string                       { return f.id }
func (f *fakeStream) Settings() session.StreamSettings { return session.StreamSettings{DeviceID: f.id} }
func (f *fakeStream) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeStream) NewEncodedReader(codec string) (io.ReadCloser, error) {
	if codec != "vp8" && codec != "opus" {
		return nil, fmt.Errorf("codec %s not supported", codec)
	}
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

type fakeBackend struct{}

func (fakeBackend) Acquire(ctx context.Context, kind session.Kind, deviceID string) (session.Stream, error) {
	return &fakeStream{id: deviceID, data: []byte("encoded-" + deviceID)}, nil
}

const testEncoder = `#!/bin/sh
out=""
for a in "$@"; do out="$a"; done
printf 'Duration: 00:00:10.00\n' >&2
printf 'frame=200 time=00:00:10.00\n' >&2
printf 'encoded' > "$out"
exit 0
`

type fixture struct {
	server *Server
	sess   *session.Session
	rec    *recorder.Recorder
	outDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := hclog.NewNullLogger()

	registry := media.NewRegistry(logger,
		&fakeLister{sources: []media.CaptureSource{{ID: "screen:0", Name: "Entire Screen"}}},
		&fakeEnumerator{devices: []media.Device{{DeviceID: "mic-1", Label: "USB Mic", Kind: media.AudioInput}}},
	)

	hub := NewHub(logger)
	sess := session.New(logger, fakeBackend{}, hub)

	encoderPath := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(encoderPath, []byte(testEncoder), 0o755))
	detector := hwaccel.NewDetector(logger, "/nonexistent/ffmpeg")
	pipeline := transcode.NewPipeline(logger, config.TranscodeConfig{
		FFmpegPath:  encoderPath,
		FFprobePath: "/nonexistent/ffprobe",
		TempDir:     t.TempDir(),
	}, detector)
	worker := transcode.NewWorker(logger, pipeline, detector, transcode.DefaultSettings())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go worker.Run(ctx)

	outDir := t.TempDir()
	saver := host.NewTranscodeSaver(logger, worker, &host.TimestampPathChooser{Dir: outDir}, nil)

	rec := recorder.New(logger, saver, config.RecordingConfig{
		ChunkInterval:  10 * time.Millisecond,
		DurationSample: 5 * time.Millisecond,
	})

	store, err := prefs.Open(logger, filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)

	bounds := host.NewStaticBoundsProvider(host.Bounds{Width: 1920, Height: 1080})
	identity := host.Identity{Hostname: "test-host", MachineID: "machine-1"}

	srv := New(logger, config.ServerConfig{Host: "127.0.0.1", Port: 0},
		registry, sess, rec, saver, store, bounds, identity, hub)
	return &fixture{server: srv, sess: sess, rec: rec, outDir: outDir}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.server.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestListSources(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/sources", nil)
	require.Equal(t, http.StatusOK, w.Code)

	sources := decode[media.Sources](t, w)
	require.Len(t, sources.Displays, 1)
	assert.Equal(t, "Main Screen", sources.Displays[0].Name)
	require.Len(t, sources.AudioInputs, 1)
	assert.Equal(t, "USB Mic", sources.AudioInputs[0].Label)
}

func TestSessionSelectAndEnable(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/session/select", jsonBody{"kind": "screen", "id": "screen:0"})
	require.Equal(t, http.StatusOK, w.Code)
	sel := decode[session.Selection](t, w)
	assert.Equal(t, "screen:0", sel.SelectedScreenID)
	assert.False(t, sel.ScreenLive, "selection never implicitly enables")

	w = f.do(t, http.MethodPost, "/api/session/enabled", jsonBody{"kind": "screen", "enabled": true})
	require.Equal(t, http.StatusOK, w.Code)
	sel = decode[session.Selection](t, w)
	assert.True(t, sel.ScreenLive)

	w = f.do(t, http.MethodPost, "/api/session/enabled", jsonBody{"kind": "screen", "enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	sel = decode[session.Selection](t, w)
	assert.False(t, sel.ScreenLive)
}

func TestSessionRejectsUnknownKind(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/session/select", jsonBody{"kind": "hologram", "id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartRecordingWithoutVideo(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/recording/start", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordAndSaveFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sess.Select(ctx, session.KindScreen, "screen:0")
	f.sess.SetEnabled(ctx, session.KindScreen, true)
	require.NotNil(t, f.sess.Stream(session.KindScreen))

	w := f.do(t, http.MethodPost, "/api/recording/start", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A second start while recording conflicts.
	w = f.do(t, http.MethodPost, "/api/recording/start", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Saving before stop is a caller error.
	w = f.do(t, http.MethodPost, "/api/recording/save", jsonBody{})
	assert.Equal(t, http.StatusConflict, w.Code)

	require.Eventually(t, func() bool {
		w := f.do(t, http.MethodGet, "/api/recording", nil)
		status := decode[map[string]any](t, w)
		return status["is_recording"] == true
	}, time.Second, 5*time.Millisecond)

	w = f.do(t, http.MethodPost, "/api/recording/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)

	settings := transcode.DefaultSettings()
	settings.Quality = "720p"
	w = f.do(t, http.MethodPost, "/api/recording/save", jsonBody{"settings": settings})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[host.SaveResult](t, w)
	require.True(t, result.Success, result.Error)
	assert.Equal(t, f.outDir, filepath.Dir(result.FilePath))
}

func TestCapabilityEndpoint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/hwaccel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	accel := decode[hwaccel.Acceleration](t, w)
	assert.Equal(t, hwaccel.TypeNone, accel.Type)
	assert.False(t, accel.Available)
}

func TestCameraPosition(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/camera/position", jsonBody{"display_id": "screen:0"})
	require.Equal(t, http.StatusOK, w.Code)
	pos := decode[map[string]int](t, w)
	assert.Equal(t, 1920-cameraWindowWidth-cameraWindowMargin, pos["x"])
	assert.Equal(t, 1080-cameraWindowHeight-cameraWindowMargin, pos["y"])
}

func TestPreferencesRoundTrip(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/preferences", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/preferences", jsonBody{
		"screen_id":       "screen:0",
		"display_enabled": true,
		"quality":         "1080p",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[prefs.DevicePreferences](t, w)
	assert.Equal(t, "screen:0", p.ScreenID)
	assert.Equal(t, "machine-1", p.MachineID)
	assert.Equal(t, "test-host", p.Hostname)
}

// jsonBody is a shorthand for JSON request bodies.
type jsonBody = map[string]any
