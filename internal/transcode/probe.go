package transcode

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// MediaInfo is the stream metadata extracted from a probe, used to seed
// conversion defaults when no explicit quality preset is given.
type MediaInfo struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameRate       float64 `json:"frame_rate"`
	VideoCodec      string  `json:"video_codec"`
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

// ProbeFile runs ffprobe against a media file and returns its stream
// metadata.
func (p *Pipeline) ProbeFile(ctx context.Context, path string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return parseProbeOutput(output)
}

func parseProbeOutput(data []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse probe output: %w", err)
	}

	info := &MediaInfo{}
	if out.Format.Duration != "" {
		if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
			info.DurationSeconds = d
		}
	}
	for _, stream := range out.Streams {
		if stream.CodecType != "video" {
			continue
		}
		info.Width = stream.Width
		info.Height = stream.Height
		info.VideoCodec = stream.CodecName
		info.FrameRate = parseFrameRate(stream.AvgFrameRate)
		break
	}
	return info, nil
}

// parseFrameRate converts ffprobe's fractional rate ("30000/1001") to a
// float, returning 0 for unknown or malformed rates.
func parseFrameRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		v, _ := strconv.ParseFloat(rate, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
