package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetLookupIsPureAndTotal(t *testing.T) {
	expected := map[string]QualityPreset{
		"2160p": {Width: 3840, Height: 2160, VideoBitrate: "45M", AudioBitrate: "384k", CRF: 18},
		"1440p": {Width: 2560, Height: 1440, VideoBitrate: "16M", AudioBitrate: "256k", CRF: 20},
		"1080p": {Width: 1920, Height: 1080, VideoBitrate: "8M", AudioBitrate: "192k", CRF: 22},
		"720p":  {Width: 1280, Height: 720, VideoBitrate: "5M", AudioBitrate: "128k", CRF: 23},
		"480p":  {Width: 854, Height: 480, VideoBitrate: "2.5M", AudioBitrate: "96k", CRF: 25},
	}

	for label, want := range expected {
		// Same tuple on every call.
		for i := 0; i < 3; i++ {
			got, ok := Preset(label)
			require.True(t, ok, label)
			assert.Equal(t, want, got, label)
		}
	}

	_, ok := Preset("144p")
	assert.False(t, ok)
	_, ok = Preset("")
	assert.False(t, ok)
}

func TestPresetLabels(t *testing.T) {
	assert.ElementsMatch(t, []string{"2160p", "1440p", "1080p", "720p", "480p"}, PresetLabels())
}
