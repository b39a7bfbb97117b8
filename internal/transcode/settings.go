package transcode

// Settings configures one conversion. Quality (a preset label) and the
// custom Width/Height/bitrate fields are mutually exclusive; the preset wins
// when both are present.
type Settings struct {
	UseHardwareAcceleration bool   `json:"use_hardware_acceleration"`
	EncoderPreset           string `json:"encoder_preset"`
	Quality                 string `json:"quality,omitempty"`
	Width                   int    `json:"width,omitempty"`
	Height                  int    `json:"height,omitempty"`
	VideoBitrate            string `json:"video_bitrate,omitempty"`
	AudioBitrate            string `json:"audio_bitrate,omitempty"`
	MaxBitrate              string `json:"max_bitrate,omitempty"`
	AudioQuality            int    `json:"audio_quality"`
	MaintainAspectRatio     bool   `json:"maintain_aspect_ratio"`
}

// DefaultSettings mirrors the application defaults: 1080p, hardware
// acceleration when available, medium encoder preset.
func DefaultSettings() Settings {
	return Settings{
		UseHardwareAcceleration: true,
		EncoderPreset:           "medium",
		Quality:                 "1080p",
		MaxBitrate:              "5M",
		AudioQuality:            3,
		MaintainAspectRatio:     true,
	}
}
