package transcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomcast/loomcast/internal/hwaccel"
)

func countFlag(args []string, flag string) int {
	count := 0
	for _, a := range args {
		if a == flag {
			count++
		}
	}
	return count
}

func flagValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, a := range args {
		if a == flag {
			require.Less(t, i+1, len(args))
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}

func TestBuildArgsQualityPreset(t *testing.T) {
	s := DefaultSettings()
	s.Quality = "720p"
	args := BuildArgs("in.webm", "out.mp4", s, hwaccel.Acceleration{})

	assert.Equal(t, "-y", args[0])
	assert.Equal(t, "in.webm", flagValue(t, args, "-i"))
	assert.Contains(t, flagValue(t, args, "-vf"), "scale=1280:720")
	assert.Equal(t, "5M", flagValue(t, args, "-b:v"))
	assert.Equal(t, "128k", flagValue(t, args, "-b:a"))
	assert.Equal(t, "23", flagValue(t, args, "-crf"))

	// The preset supplies the bitrates; no second custom pair may appear.
	assert.Equal(t, 1, countFlag(args, "-b:v"))
	assert.Equal(t, 1, countFlag(args, "-b:a"))
	assert.Zero(t, countFlag(args, "-maxrate"))
	assert.Equal(t, "out.mp4", args[len(args)-1])
}

func TestBuildArgsSoftwareFallbackWhenProbeReportsNone(t *testing.T) {
	s := DefaultSettings()
	s.UseHardwareAcceleration = true
	accel := hwaccel.Acceleration{Type: hwaccel.TypeNone, Available: false}

	args := BuildArgs("in.webm", "out.mp4", s, accel)

	assert.Equal(t, "libx264", flagValue(t, args, "-c:v"))
	joined := strings.Join(args, " ")
	assert.NotContains(t, joined, "h264_videotoolbox")
	assert.NotContains(t, joined, "h264_nvenc")
	assert.NotContains(t, joined, "h264_qsv")
	assert.NotContains(t, joined, "h264_amf")
}

func TestBuildArgsHardwareEncoder(t *testing.T) {
	s := DefaultSettings()
	accel := hwaccel.Acceleration{Type: hwaccel.TypeNVENC, Available: true}

	args := BuildArgs("in.webm", "out.mp4", s, accel)
	assert.Equal(t, "h264_nvenc", flagValue(t, args, "-c:v"))
}

func TestBuildArgsCustomDimensions(t *testing.T) {
	s := DefaultSettings()
	s.Quality = ""
	s.Width, s.Height = 1000, 600
	s.VideoBitrate = "3M"
	s.AudioBitrate = "96k"

	args := BuildArgs("in.webm", "out.mp4", s, hwaccel.Acceleration{})

	assert.Contains(t, flagValue(t, args, "-vf"), "scale=1000:600")
	assert.Equal(t, "3M", flagValue(t, args, "-b:v"))
	assert.Equal(t, "96k", flagValue(t, args, "-b:a"))
	assert.Equal(t, "5M", flagValue(t, args, "-maxrate"))
	assert.Zero(t, countFlag(args, "-crf"))
}

func TestBuildArgsPresetWinsOverCustomDimensions(t *testing.T) {
	s := DefaultSettings()
	s.Quality = "480p"
	s.Width, s.Height = 1000, 600
	s.VideoBitrate = "3M"

	args := BuildArgs("in.webm", "out.mp4", s, hwaccel.Acceleration{})

	assert.Contains(t, flagValue(t, args, "-vf"), "scale=854:480")
	assert.Equal(t, "2.5M", flagValue(t, args, "-b:v"))
	assert.Equal(t, 1, countFlag(args, "-b:v"))
}

func TestBuildArgsAlwaysNormalizesOutput(t *testing.T) {
	for _, quality := range append(PresetLabels(), "") {
		s := DefaultSettings()
		s.Quality = quality
		args := BuildArgs("in.webm", "out.mp4", s, hwaccel.Acceleration{})

		assert.Equal(t, "48000", flagValue(t, args, "-ar"), quality)
		assert.Equal(t, "2", flagValue(t, args, "-ac"), quality)
		assert.Equal(t, "aac", flagValue(t, args, "-c:a"), quality)
		assert.Equal(t, "+faststart", flagValue(t, args, "-movflags"), quality)
		assert.Equal(t, "yuv420p", flagValue(t, args, "-pix_fmt"), quality)
	}
}

func TestScaleFilterAspectRatio(t *testing.T) {
	assert.Equal(t, "scale=1920:1080:force_original_aspect_ratio=decrease", scaleFilter(1920, 1080, true))
	assert.Equal(t, "scale=1920:1080", scaleFilter(1920, 1080, false))
}
