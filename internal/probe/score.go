package probe

import (
	"math"
	"strconv"
	"strings"
	"time"

	"oriontv/internal/media"
)

// Score computes the composite quality score for one probed source.
// Unavailable sources always score 0. Otherwise the score is the sum of
// four independently capped step components (resolution 40, episode count
// 20, throughput 25, latency 15), rounded to two decimals. The bands are
// policy, not tunable at runtime, so equal inputs always produce equal
// scores.
func Score(p media.ProbeResult, resolution string, episodeCount int) float64 {
	if !p.Available {
		return 0
	}
	s := resolutionScore(resolution) +
		episodeScore(episodeCount) +
		throughputScore(p.ThroughputKBps) +
		latencyScore(p.Latency)
	return math.Round(s*100) / 100
}

// resolutionScore maps a resolution label to its band. Unknown or
// unparsable labels land in the lowest band rather than zero.
func resolutionScore(label string) float64 {
	h := resolutionHeight(label)
	switch {
	case h >= 2160:
		return 40
	case h >= 1440:
		return 35
	case h >= 1080:
		return 30
	case h >= 720:
		return 25
	case h >= 480:
		return 15
	default:
		return 10
	}
}

// resolutionHeight parses labels like "1080p", "2160P", "4K" or "1920x1080"
// into a pixel height. Returns 0 when the label carries no usable height.
func resolutionHeight(label string) int {
	s := strings.ToLower(strings.TrimSpace(label))
	switch s {
	case "8k":
		return 4320
	case "4k", "uhd":
		return 2160
	case "2k", "qhd":
		return 1440
	}
	if i := strings.IndexByte(s, 'x'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, "p")
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 {
		return 0
	}
	return h
}

func episodeScore(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(float64(count)*0.5, 20)
}

func throughputScore(kbps float64) float64 {
	switch {
	case kbps >= 1000:
		return 25
	case kbps >= 500:
		return 20
	case kbps >= 200:
		return 15
	case kbps >= 100:
		return 10
	case kbps >= 50:
		return 5
	default:
		return 0
	}
}

func latencyScore(latency time.Duration) float64 {
	switch {
	case latency <= 100*time.Millisecond:
		return 15
	case latency <= 300*time.Millisecond:
		return 12
	case latency <= 500*time.Millisecond:
		return 8
	case latency <= time.Second:
		return 5
	case latency <= 2*time.Second:
		return 2
	default:
		return 0
	}
}
