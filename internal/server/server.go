package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/loomcast/loomcast/internal/config"
	"github.com/loomcast/loomcast/internal/host"
	"github.com/loomcast/loomcast/internal/media"
	"github.com/loomcast/loomcast/internal/prefs"
	"github.com/loomcast/loomcast/internal/recorder"
	"github.com/loomcast/loomcast/internal/session"
	"github.com/loomcast/loomcast/internal/transcode"
)

// Floating camera preview geometry, matching the preview surface.
const (
	cameraWindowWidth  = 320
	cameraWindowHeight = 240
	cameraWindowMargin = 20
)

// Server exposes the control API over HTTP and streams events over a
// websocket. It owns no media state; every operation delegates to the
// session, recorder, or saver it was composed with.
type Server struct {
	logger   hclog.Logger
	cfg      config.ServerConfig
	registry *media.Registry
	session  *session.Session
	recorder *recorder.Recorder
	saver    *host.TranscodeSaver
	store    *prefs.Store
	bounds   host.DisplayBoundsProvider
	identity host.Identity
	hub      *Hub

	httpServer *http.Server
}

// New wires the control API. store may be nil when preference persistence is
// disabled.
func New(
	logger hclog.Logger,
	cfg config.ServerConfig,
	registry *media.Registry,
	sess *session.Session,
	rec *recorder.Recorder,
	saver *host.TranscodeSaver,
	store *prefs.Store,
	bounds host.DisplayBoundsProvider,
	identity host.Identity,
	hub *Hub,
) *Server {
	s := &Server{
		logger:   logger.Named("server"),
		cfg:      cfg,
		registry: registry,
		session:  sess,
		recorder: rec,
		saver:    saver,
		store:    store,
		bounds:   bounds,
		identity: identity,
		hub:      hub,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	s.registerRoutes(router)
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: router,
	}
	return s
}

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/ws", s.hub.ServeWS)

	api := router.Group("/api")
	{
		api.GET("/sources", s.handleListSources)
		api.GET("/hwaccel", s.handleCapability)
		api.POST("/settings", s.handleUpdateSettings)

		sess := api.Group("/session")
		{
			sess.GET("", s.handleGetSession)
			sess.POST("/select", s.handleSelect)
			sess.POST("/enabled", s.handleSetEnabled)
			sess.POST("/stop", s.handleStopAll)
		}

		rec := api.Group("/recording")
		{
			rec.GET("", s.handleRecordingStatus)
			rec.POST("/start", s.handleStartRecording)
			rec.POST("/stop", s.handleStopRecording)
			rec.POST("/save", s.handleSaveRecording)
		}

		api.POST("/camera/position", s.handleCameraPosition)

		if s.store != nil {
			api.GET("/preferences", s.handleGetPreferences)
			api.POST("/preferences", s.handleSavePreferences)
		}
	}
}

// Run serves the control API until the context is cancelled, then drains
// connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control API listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleListSources(c *gin.Context) {
	sources, err := s.registry.ListSources(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sources)
}

func (s *Server) handleCapability(c *gin.Context) {
	accel, err := s.saver.Capability(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, accel)
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var settings transcode.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.saver.UpdateSettings(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (s *Server) handleGetSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Selection())
}

type selectRequest struct {
	Kind session.Kind `json:"kind" binding:"required"`
	ID   string       `json:"id"`
}

func (s *Server) handleSelect(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown source kind %q", req.Kind)})
		return
	}
	s.session.Select(c.Request.Context(), req.Kind, req.ID)
	c.JSON(http.StatusOK, s.session.Selection())
}

type enabledRequest struct {
	Kind    session.Kind `json:"kind" binding:"required"`
	Enabled *bool        `json:"enabled" binding:"required"`
}

func (s *Server) handleSetEnabled(c *gin.Context) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown source kind %q", req.Kind)})
		return
	}
	s.session.SetEnabled(c.Request.Context(), req.Kind, *req.Enabled)
	c.JSON(http.StatusOK, s.session.Selection())
}

func (s *Server) handleStopAll(c *gin.Context) {
	s.session.StopAll()
	c.JSON(http.StatusOK, s.session.Selection())
}

func (s *Server) handleRecordingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"is_recording":     s.recorder.IsRecording(),
		"duration_seconds": s.recorder.Duration().Seconds(),
		"mime_type":        s.recorder.MimeType(),
	})
}

func (s *Server) handleStartRecording(c *gin.Context) {
	video := encodedSource(s.session.Stream(session.KindScreen))
	if video == nil {
		video = encodedSource(s.session.Stream(session.KindCamera))
	}
	audio := encodedSource(s.session.Stream(session.KindMicrophone))

	err := s.recorder.Start(video, audio)
	switch {
	case errors.Is(err, recorder.ErrNoVideoStream):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no live video stream to record"})
	case errors.Is(err, recorder.ErrRecorderActive):
		c.JSON(http.StatusConflict, gin.H{"error": "recording already in progress"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		s.hub.Broadcast(RecordingEvent{Type: "recording-state", IsRecording: true})
		c.JSON(http.StatusOK, gin.H{"is_recording": true})
	}
}

func (s *Server) handleStopRecording(c *gin.Context) {
	s.recorder.Stop()
	s.hub.Broadcast(RecordingEvent{
		Type:            "recording-state",
		IsRecording:     false,
		DurationSeconds: s.recorder.Duration().Seconds(),
	})
	c.JSON(http.StatusOK, gin.H{
		"is_recording":     false,
		"duration_seconds": s.recorder.Duration().Seconds(),
	})
}

func (s *Server) handleSaveRecording(c *gin.Context) {
	var opts host.SaveOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.recorder.Save(c.Request.Context(), opts)
	if errors.Is(err, recorder.ErrRecorderActive) {
		c.JSON(http.StatusConflict, gin.H{"error": "stop the recording before saving"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type cameraPositionRequest struct {
	DisplayID string `json:"display_id"`
}

// handleCameraPosition resolves the chosen display's bounds and tells the
// preview surface to float in its bottom-right corner.
func (s *Server) handleCameraPosition(c *gin.Context) {
	var req cameraPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bounds, err := s.bounds.DisplayBounds(req.DisplayID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	x := bounds.X + bounds.Width - cameraWindowWidth - cameraWindowMargin
	y := bounds.Y + bounds.Height - cameraWindowHeight - cameraWindowMargin
	s.hub.Notify(session.Notification{
		Type: session.NotifySetCameraWindowPosition,
		X:    x,
		Y:    y,
	})
	c.JSON(http.StatusOK, gin.H{"x": x, "y": y})
}

func (s *Server) handleGetPreferences(c *gin.Context) {
	p, err := s.store.Load(s.identity.MachineID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no stored preferences"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleSavePreferences(c *gin.Context) {
	var p prefs.DevicePreferences
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p.MachineID = s.identity.MachineID
	p.Hostname = s.identity.Hostname
	if err := s.store.Save(p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func validKind(k session.Kind) bool {
	for _, known := range session.Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// encodedSource exposes a live session stream to the recorder when the
// backend's streams support encoded packet readers.
func encodedSource(stream session.Stream) recorder.EncodedSource {
	if stream == nil {
		return nil
	}
	if src, ok := stream.(recorder.EncodedSource); ok {
		return src
	}
	return nil
}
