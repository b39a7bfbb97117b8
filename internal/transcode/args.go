package transcode

import (
	"fmt"
	"strconv"

	"github.com/loomcast/loomcast/internal/hwaccel"
)

// BuildArgs assembles the ffmpeg argument list for one conversion. The
// destination is always overwritten, audio is normalized to 48 kHz stereo
// AAC, fast-start is enabled for immediate playback, and the pixel format is
// forced to the broadly compatible yuv420p.
func BuildArgs(inputPath, outputPath string, s Settings, accel hwaccel.Acceleration) []string {
	args := []string{"-y", "-i", inputPath}

	args = append(args, hwaccel.EncoderArgs(accel, s.UseHardwareAcceleration)...)

	preset, hasPreset := Preset(s.Quality)
	switch {
	case hasPreset:
		args = append(args,
			"-vf", scaleFilter(preset.Width, preset.Height, s.MaintainAspectRatio),
			"-b:v", preset.VideoBitrate,
			"-b:a", preset.AudioBitrate,
			"-crf", strconv.Itoa(preset.CRF),
		)
	case s.Width > 0 && s.Height > 0:
		args = append(args, "-vf", scaleFilter(s.Width, s.Height, s.MaintainAspectRatio))
	}

	args = append(args,
		"-preset", s.EncoderPreset,
		"-c:a", "aac",
		"-q:a", strconv.Itoa(s.AudioQuality),
		"-ar", "48000",
		"-ac", "2",
		"-movflags", "+faststart",
		"-pix_fmt", "yuv420p",
	)

	if !hasPreset {
		if s.MaxBitrate != "" {
			args = append(args, "-maxrate", s.MaxBitrate, "-bufsize", s.MaxBitrate)
		}
		if s.VideoBitrate != "" {
			args = append(args, "-b:v", s.VideoBitrate)
		}
		if s.AudioBitrate != "" {
			args = append(args, "-b:a", s.AudioBitrate)
		}
	}

	return append(args, outputPath)
}

func scaleFilter(width, height int, maintainAspect bool) string {
	filter := fmt.Sprintf("scale=%d:%d", width, height)
	if maintainAspect {
		filter += ":force_original_aspect_ratio=decrease"
	}
	return filter
}
