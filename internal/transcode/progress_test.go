package transcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressParser(t *testing.T) {
	p := &progressParser{}

	// No duration known yet: time markers produce nothing.
	_, ok := p.parseLine("frame=  10 fps=30 time=00:00:01.00 bitrate=1000k")
	assert.False(t, ok)

	_, ok = p.parseLine("  Duration: 00:01:40.00, start: 0.000000, bitrate: 5000 kb/s")
	assert.False(t, ok)
	assert.Equal(t, 100, p.totalSeconds)

	sample, ok := p.parseLine("frame= 300 fps=30 time=00:00:25.00 bitrate=1000k speed=1x")
	require.True(t, ok)
	assert.InDelta(t, 25.0, sample.Percent, 0.01)
	assert.Equal(t, "00:00:25", sample.Time)
}

func TestProgressParserFirstDurationWins(t *testing.T) {
	p := &progressParser{}
	p.parseLine("  Duration: 00:00:50.00")
	p.parseLine("  Duration: 00:10:00.00")
	assert.Equal(t, 50, p.totalSeconds)
}

func TestProgressIsMonotonicAndCapped(t *testing.T) {
	p := &progressParser{}
	p.parseLine("  Duration: 00:00:10.00")

	lines := []string{
		"frame= 10 time=00:00:02.00",
		"frame= 20 time=00:00:05.00",
		"frame= 30 time=00:00:07.00",
		"frame= 40 time=00:00:09.00",
		"frame= 50 time=00:00:10.00",
		"frame= 51 time=00:00:11.00", // encoder can overshoot slightly
	}

	last := -1.0
	for _, line := range lines {
		sample, ok := p.parseLine(line)
		require.True(t, ok, line)
		assert.GreaterOrEqual(t, sample.Percent, last, line)
		last = sample.Percent
	}
	assert.Equal(t, 100.0, last)

	// 100 is reached no earlier than time == duration.
	p2 := &progressParser{}
	p2.parseLine("  Duration: 00:00:10.00")
	sample, ok := p2.parseLine("frame= 40 time=00:00:09.00")
	require.True(t, ok)
	assert.Less(t, sample.Percent, 100.0)
}

func TestHmsToSeconds(t *testing.T) {
	assert.Equal(t, 3661, hmsToSeconds("01", "01", "01"))
	assert.Equal(t, 0, hmsToSeconds("00", "00", "00"))
}
