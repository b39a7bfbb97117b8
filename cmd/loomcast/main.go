package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"

	"github.com/loomcast/loomcast/internal/config"
	"github.com/loomcast/loomcast/internal/host"
	"github.com/loomcast/loomcast/internal/hwaccel"
	"github.com/loomcast/loomcast/internal/logging"
	"github.com/loomcast/loomcast/internal/media"
	"github.com/loomcast/loomcast/internal/prefs"
	"github.com/loomcast/loomcast/internal/recorder"
	"github.com/loomcast/loomcast/internal/server"
	"github.com/loomcast/loomcast/internal/session"
	"github.com/loomcast/loomcast/internal/transcode"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "loomcast:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The probe runs in the background; until it resolves everything falls
	// back to software encoding.
	detector := hwaccel.NewDetector(logger, cfg.Transcode.FFmpegPath)
	detector.Start(ctx)

	hub := server.NewHub(logger)
	sess := session.New(logger, session.NewMediaDevicesBackend(logger), hub)
	registry := media.NewRegistry(logger,
		media.NewScreenLister(logger),
		media.NewMediaDevicesEnumerator(logger))

	defaults := transcode.DefaultSettings()
	defaults.Quality = cfg.Transcode.DefaultQuality
	defaults.EncoderPreset = cfg.Transcode.EncoderPreset
	defaults.UseHardwareAcceleration = cfg.Transcode.UseHardware

	pipeline := transcode.NewPipeline(logger, cfg.Transcode, detector)
	worker := transcode.NewWorker(logger, pipeline, detector, defaults)
	go worker.Run(ctx)

	chooser := &host.TimestampPathChooser{Dir: cfg.Recording.OutputDir}
	saver := host.NewTranscodeSaver(logger, worker, chooser, func(jobID string, p transcode.Progress) {
		hub.Broadcast(server.ProgressEvent{
			Type:    "transcode-progress",
			JobID:   jobID,
			Percent: p.Percent,
			Time:    p.Time,
		})
	})
	rec := recorder.New(logger, saver, cfg.Recording)

	identity, err := host.ReadIdentity(ctx)
	if err != nil {
		logger.Warn("could not read machine identity, preferences disabled", "error", err)
	}

	var store *prefs.Store
	if identity.MachineID != "" {
		store, err = prefs.Open(logger, cfg.Database.Path)
		if err != nil {
			logger.Warn("could not open preference store, preferences disabled", "error", err)
			store = nil
		} else {
			restorePreferences(ctx, logger, store, identity, sess, saver)
		}
	}

	bounds := host.NewStaticBoundsProvider(host.Bounds{Width: 1920, Height: 1080})
	srv := server.New(logger, cfg.Server, registry, sess, rec, saver, store, bounds, identity, hub)

	err = srv.Run(ctx)

	rec.Stop()
	sess.StopAll()
	return err
}

// restorePreferences replays the machine's last selections into the session
// and reapplies its transcode settings. Selections are restored before
// enablement so enabling acquires the remembered device.
func restorePreferences(
	ctx context.Context,
	logger hclog.Logger,
	store *prefs.Store,
	identity host.Identity,
	sess *session.Session,
	saver *host.TranscodeSaver,
) {
	p, err := store.Load(identity.MachineID)
	if err != nil || p == nil {
		return
	}
	logger.Info("restoring device preferences", "machine_id", identity.MachineID)

	sess.Select(ctx, session.KindScreen, p.ScreenID)
	sess.Select(ctx, session.KindMicrophone, p.MicrophoneID)
	sess.Select(ctx, session.KindCamera, p.CameraID)
	sess.SetEnabled(ctx, session.KindScreen, p.DisplayEnabled)
	sess.SetEnabled(ctx, session.KindMicrophone, p.MicrophoneEnabled)
	sess.SetEnabled(ctx, session.KindCamera, p.CameraEnabled)

	if p.Quality != "" {
		settings := transcode.DefaultSettings()
		settings.Quality = p.Quality
		settings.UseHardwareAcceleration = p.UseHardwareAcceleration
		if err := saver.UpdateSettings(ctx, settings); err != nil {
			return
		}
	}
}
