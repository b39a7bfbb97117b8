package transcode

import (
	"fmt"
	"regexp"
	"strconv"
)

// Progress is one progress sample emitted during a conversion.
type Progress struct {
	Percent float64 `json:"percent"`
	Time    string  `json:"time"`
}

// ProgressFunc receives progress samples. It is called from the conversion
// goroutine and must not block.
type ProgressFunc func(Progress)

var (
	durationRe = regexp.MustCompile(`Duration: (\d{2}):(\d{2}):(\d{2})`)
	timeRe     = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2})`)
)

// progressParser extracts the total source duration (first match only) and
// per-line processed time from ffmpeg's diagnostic stream.
type progressParser struct {
	totalSeconds int
}

// parseLine returns a progress sample when the line carries a time= marker
// and the total duration is already known.
func (p *progressParser) parseLine(line string) (Progress, bool) {
	if p.totalSeconds == 0 {
		if m := durationRe.FindStringSubmatch(line); m != nil {
			p.totalSeconds = hmsToSeconds(m[1], m[2], m[3])
		}
	}

	m := timeRe.FindStringSubmatch(line)
	if m == nil || p.totalSeconds == 0 {
		return Progress{}, false
	}

	processed := hmsToSeconds(m[1], m[2], m[3])
	percent := float64(processed) / float64(p.totalSeconds) * 100
	if percent > 100 {
		percent = 100
	}
	return Progress{
		Percent: percent,
		Time:    fmt.Sprintf("%s:%s:%s", m[1], m[2], m[3]),
	}, true
}

func hmsToSeconds(h, m, s string) int {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	return hours*3600 + minutes*60 + seconds
}
