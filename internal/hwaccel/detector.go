package hwaccel

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// Type identifies a hardware encoder family.
type Type string

const (
	TypeVideoToolbox Type = "videotoolbox"
	TypeNVENC        Type = "nvenc"
	TypeQSV          Type = "qsv"
	TypeAMF          Type = "amf"
	TypeNone         Type = "none"
)

// Acceleration describes the hardware encoding capability of the host.
// The zero value means "software encoding only".
type Acceleration struct {
	Type      Type   `json:"type"`
	Available bool   `json:"available"`
	Name      string `json:"name"`
}

func softwareOnly() Acceleration {
	return Acceleration{Type: TypeNone, Available: false, Name: "Software Encoding"}
}

// Detector probes the installed ffmpeg once for hardware encoders. The
// result is write-once for the process lifetime; readers that arrive before
// the probe resolves get the software-only fallback.
type Detector struct {
	logger     hclog.Logger
	ffmpegPath string
	goos       string

	once  sync.Once
	accel atomic.Pointer[Acceleration]
}

// NewDetector creates a detector. Probing does not start until Start or
// Probe is called.
func NewDetector(logger hclog.Logger, ffmpegPath string) *Detector {
	return &Detector{
		logger:     logger.Named("hwaccel"),
		ffmpegPath: ffmpegPath,
		goos:       runtime.GOOS,
	}
}

// Start kicks off the probe in the background so session startup is not
// blocked on it.
func (d *Detector) Start(ctx context.Context) {
	go d.Probe(ctx)
}

// Probe runs the capability probe exactly once and returns the cached result
// on every subsequent call. It never returns an error: a missing or broken
// ffmpeg degrades to software encoding.
func (d *Detector) Probe(ctx context.Context) Acceleration {
	d.once.Do(func() {
		accel := d.detect(ctx)
		d.accel.Store(&accel)
		d.logger.Info("hardware acceleration probe complete",
			"type", accel.Type, "available", accel.Available, "name", accel.Name)
	})
	return *d.accel.Load()
}

// Accel returns the cached probe result, or the software-only fallback while
// the probe is still pending.
func (d *Detector) Accel() Acceleration {
	if a := d.accel.Load(); a != nil {
		return *a
	}
	return softwareOnly()
}

func (d *Detector) detect(ctx context.Context) Acceleration {
	cmd := exec.CommandContext(ctx, d.ffmpegPath, "-hide_banner", "-encoders")
	output, err := cmd.CombinedOutput()
	if err != nil {
		d.logger.Warn("encoder probe failed, falling back to software encoding", "error", err)
		return softwareOnly()
	}
	return matchEncoders(string(output), d.goos)
}

// matchEncoders picks the best hardware encoder from the ffmpeg encoder
// listing. Priority: VideoToolbox (macOS only), NVENC, Quick Sync, AMF.
func matchEncoders(listing, goos string) Acceleration {
	switch {
	case goos == "darwin" && strings.Contains(listing, "h264_videotoolbox"):
		return Acceleration{Type: TypeVideoToolbox, Available: true, Name: "Apple VideoToolbox"}
	case strings.Contains(listing, "h264_nvenc"):
		return Acceleration{Type: TypeNVENC, Available: true, Name: "NVIDIA NVENC"}
	case strings.Contains(listing, "h264_qsv"):
		return Acceleration{Type: TypeQSV, Available: true, Name: "Intel Quick Sync"}
	case strings.Contains(listing, "h264_amf"):
		return Acceleration{Type: TypeAMF, Available: true, Name: "AMD AMF"}
	default:
		return softwareOnly()
	}
}

// EncoderArgs returns the ffmpeg video encoder flags for the given
// capability. The hardware path is taken only when the caller asked for it
// AND the probe reported an available encoder.
func EncoderArgs(accel Acceleration, useHardware bool) []string {
	if !useHardware || !accel.Available {
		return []string{"-c:v", "libx264"}
	}
	switch accel.Type {
	case TypeVideoToolbox:
		return []string{"-c:v", "h264_videotoolbox"}
	case TypeNVENC:
		return []string{"-c:v", "h264_nvenc", "-preset", "p7", "-tune", "hq"}
	case TypeQSV:
		return []string{"-c:v", "h264_qsv", "-preset", "veryslow"}
	case TypeAMF:
		return []string{"-c:v", "h264_amf", "-quality", "quality"}
	default:
		return []string{"-c:v", "libx264"}
	}
}
