package transcode

// QualityPreset bundles the resolution, bitrate and CRF values for a named
// output quality. Adding a preset is a data change only.
type QualityPreset struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	VideoBitrate string `json:"video_bitrate"`
	AudioBitrate string `json:"audio_bitrate"`
	CRF          int    `json:"crf"`
}

var qualityPresets = map[string]QualityPreset{
	"2160p": {Width: 3840, Height: 2160, VideoBitrate: "45M", AudioBitrate: "384k", CRF: 18},
	"1440p": {Width: 2560, Height: 1440, VideoBitrate: "16M", AudioBitrate: "256k", CRF: 20},
	"1080p": {Width: 1920, Height: 1080, VideoBitrate: "8M", AudioBitrate: "192k", CRF: 22},
	"720p":  {Width: 1280, Height: 720, VideoBitrate: "5M", AudioBitrate: "128k", CRF: 23},
	"480p":  {Width: 854, Height: 480, VideoBitrate: "2.5M", AudioBitrate: "96k", CRF: 25},
}

// Preset looks up a quality preset by label.
func Preset(label string) (QualityPreset, bool) {
	p, ok := qualityPresets[label]
	return p, ok
}

// PresetLabels returns the known preset labels.
func PresetLabels() []string {
	labels := make([]string, 0, len(qualityPresets))
	for label := range qualityPresets {
		labels = append(labels, label)
	}
	return labels
}
