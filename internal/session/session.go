package session

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Selection is a snapshot of the session's current choice and enablement per
// source kind, plus the liveness of each stream.
type Selection struct {
	SelectedScreenID string `json:"selected_screen_id"`
	SelectedMicID    string `json:"selected_mic_id"`
	SelectedCameraID string `json:"selected_camera_id"`

	DisplayEnabled bool `json:"display_enabled"`
	MicEnabled     bool `json:"mic_enabled"`
	CameraEnabled  bool `json:"camera_enabled"`

	ScreenLive bool `json:"screen_live"`
	MicLive    bool `json:"mic_live"`
	CameraLive bool `json:"camera_live"`
}

// slot is the per-kind state: what is selected, whether it is enabled, and
// the live stream handle if both hold. generation invalidates in-flight
// acquisitions whenever the desired state changes.
type slot struct {
	selectedID string
	enabled    bool
	stream     Stream
	generation uint64
}

// Session owns the live stream handles for the three source kinds and
// reconciles them whenever selection or enablement changes. Invariant: a
// stream exists if and only if its kind is both selected and enabled.
//
// Stream handles are exclusively owned here; other components interact only
// through the public operations.
type Session struct {
	logger   hclog.Logger
	backend  CaptureBackend
	notifier Notifier

	mu    sync.Mutex
	slots map[Kind]*slot
}

// New creates a media session. All kinds start unselected and disabled.
func New(logger hclog.Logger, backend CaptureBackend, notifier Notifier) *Session {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	slots := make(map[Kind]*slot, 3)
	for _, k := range Kinds() {
		slots[k] = &slot{}
	}
	return &Session{
		logger:   logger.Named("session"),
		backend:  backend,
		notifier: notifier,
		slots:    slots,
	}
}

// Select updates the selected device for a kind. A live stream for that kind
// is torn down unconditionally (stream identity is tied to selection); a new
// stream is acquired only when the kind is enabled and id is non-empty.
// Passing an empty id clears the selection.
func (s *Session) Select(ctx context.Context, kind Kind, id string) {
	s.mu.Lock()
	sl := s.slots[kind]
	sl.generation++
	gen := sl.generation
	cameraStopped := s.teardownLocked(kind, sl)
	sl.selectedID = id
	enabled := sl.enabled
	s.mu.Unlock()

	if cameraStopped {
		s.notifier.Notify(Notification{Type: NotifyHideCameraWindow})
	}

	// Selection never implicitly enables.
	if id != "" && enabled {
		s.acquire(ctx, kind, id, gen)
	}
}

// SetEnabled toggles a kind on or off. Turning off tears down the live
// stream (idempotent if none exists); turning on acquires one if a selection
// exists. Enabling without a selection is a no-op.
func (s *Session) SetEnabled(ctx context.Context, kind Kind, enabled bool) {
	s.mu.Lock()
	sl := s.slots[kind]
	if sl.enabled == enabled {
		s.mu.Unlock()
		return
	}
	sl.enabled = enabled
	sl.generation++
	gen := sl.generation

	if !enabled {
		cameraStopped := s.teardownLocked(kind, sl)
		cameraLive := s.slots[KindCamera].stream != nil
		s.mu.Unlock()
		if cameraStopped {
			s.notifier.Notify(Notification{Type: NotifyHideCameraWindow})
		} else if kind == KindScreen && cameraLive {
			// The preview surface tracks the display toggle to decide
			// where (and whether) to float.
			s.notifyCameraReady()
		}
		return
	}

	id := sl.selectedID
	cameraLive := s.slots[KindCamera].stream != nil
	s.mu.Unlock()

	if kind == KindScreen && cameraLive {
		s.notifyCameraReady()
	}
	if id != "" {
		s.acquire(ctx, kind, id, gen)
	}
}

// Selection returns a consistent snapshot of the current state.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Selection{
		SelectedScreenID: s.slots[KindScreen].selectedID,
		SelectedMicID:    s.slots[KindMicrophone].selectedID,
		SelectedCameraID: s.slots[KindCamera].selectedID,
		DisplayEnabled:   s.slots[KindScreen].enabled,
		MicEnabled:       s.slots[KindMicrophone].enabled,
		CameraEnabled:    s.slots[KindCamera].enabled,
		ScreenLive:       s.slots[KindScreen].stream != nil,
		MicLive:          s.slots[KindMicrophone].stream != nil,
		CameraLive:       s.slots[KindCamera].stream != nil,
	}
}

// Stream returns the live stream for a kind, or nil.
func (s *Session) Stream(kind Kind) Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[kind].stream
}

// StopAll tears down every live stream and disables all kinds, keeping the
// selected-and-enabled invariant intact. Selections are left untouched.
func (s *Session) StopAll() {
	s.mu.Lock()
	var cameraStopped bool
	for kind, sl := range s.slots {
		sl.generation++
		if s.teardownLocked(kind, sl) {
			cameraStopped = true
		}
		sl.enabled = false
	}
	s.mu.Unlock()
	if cameraStopped {
		s.notifier.Notify(Notification{Type: NotifyHideCameraWindow})
	}
}

// acquire requests a capture stream for the selected device. After the
// backend returns, the desired state is re-checked before committing: the
// caller may have re-selected, disabled, or stopped in the meantime, in
// which case the fresh stream is released immediately.
func (s *Session) acquire(ctx context.Context, kind Kind, deviceID string, gen uint64) {
	stream, err := s.backend.Acquire(ctx, kind, deviceID)

	s.mu.Lock()
	sl := s.slots[kind]
	if err != nil {
		// Self-healing: never leave an "enabled but unstreamed" kind.
		if sl.generation == gen {
			sl.enabled = false
		}
		s.mu.Unlock()
		s.logger.Warn("stream acquisition failed, disabling source",
			"kind", kind, "device_id", deviceID, "error", err)
		return
	}

	if sl.generation != gen {
		s.mu.Unlock()
		stream.Stop()
		s.logger.Debug("discarding stale stream", "kind", kind, "device_id", deviceID)
		return
	}

	sl.stream = stream
	s.mu.Unlock()
	s.logger.Info("stream acquired", "kind", kind, "device_id", deviceID, "stream_id", stream.ID())

	if kind == KindCamera {
		s.notifier.Notify(Notification{
			Type:     NotifyCameraStreamReady,
			StreamID: stream.ID(),
			Settings: stream.Settings(),
		})
		s.notifier.Notify(Notification{Type: NotifyShowCameraWindow})
	}
}

// teardownLocked stops and clears the slot's stream. Safe on an empty slot.
// Reports whether a live camera stream was stopped so the caller can notify
// the preview surface outside the lock.
func (s *Session) teardownLocked(kind Kind, sl *slot) bool {
	if sl.stream == nil {
		return false
	}
	sl.stream.Stop()
	sl.stream = nil
	s.logger.Debug("stream stopped", "kind", kind)
	return kind == KindCamera
}

// notifyCameraReady re-announces the live camera stream to the preview
// surface.
func (s *Session) notifyCameraReady() {
	s.mu.Lock()
	stream := s.slots[KindCamera].stream
	s.mu.Unlock()
	if stream == nil {
		return
	}
	s.notifier.Notify(Notification{
		Type:     NotifyCameraStreamReady,
		StreamID: stream.ID(),
		Settings: stream.Settings(),
	})
	s.notifier.Notify(Notification{Type: NotifyShowCameraWindow})
}
