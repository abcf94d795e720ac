package probe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"oriontv/internal/media"
)

func TestScoreUnavailableIsZero(t *testing.T) {
	p := media.ProbeResult{Latency: 50 * time.Millisecond, ThroughputKBps: 5000, Available: false}
	assert.Zero(t, Score(p, "2160p", 100))
}

func TestScoreWorkedExample(t *testing.T) {
	// resolution 30 + episodes 12 + throughput 20 + latency 12 = 74.00
	p := media.ProbeResult{
		Latency:        120 * time.Millisecond,
		ThroughputKBps: 450,
		Available:      true,
	}
	assert.Equal(t, 74.00, Score(p, "1080p", 24))
}

func TestScoreBounds(t *testing.T) {
	best := media.ProbeResult{Latency: 10 * time.Millisecond, ThroughputKBps: 9000, Available: true}
	assert.Equal(t, 100.0, Score(best, "4K", 40))

	worst := media.ProbeResult{Latency: 10 * time.Second, ThroughputKBps: 1, Available: true}
	assert.Equal(t, 10.0, Score(worst, "", 0))
}

func TestScoreDeterministic(t *testing.T) {
	p := media.ProbeResult{Latency: 420 * time.Millisecond, ThroughputKBps: 333.33, Available: true}
	first := Score(p, "720p", 13)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(p, "720p", 13))
	}
}

func TestResolutionBands(t *testing.T) {
	tests := []struct {
		label string
		want  float64
	}{
		{"2160p", 40},
		{"4K", 40},
		{"1440p", 35},
		{"1080p", 30},
		{"1920x1080", 30},
		{"720p", 25},
		{"480p", 15},
		{"360p", 10},
		{"", 10},
		{"HD", 10},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, resolutionScore(tt.label))
		})
	}
}

func TestEpisodeScoreCap(t *testing.T) {
	assert.Equal(t, 0.5, episodeScore(1))
	assert.Equal(t, 12.0, episodeScore(24))
	assert.Equal(t, 20.0, episodeScore(40))
	assert.Equal(t, 20.0, episodeScore(500))
	assert.Equal(t, 0.0, episodeScore(-3))
}

func TestThroughputBands(t *testing.T) {
	tests := []struct {
		kbps float64
		want float64
	}{
		{1500, 25}, {1000, 25}, {999.9, 20}, {500, 20},
		{200, 15}, {100, 10}, {50, 5}, {49.9, 0}, {0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, throughputScore(tt.kbps))
	}
}

func TestLatencyBands(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    float64
	}{
		{50 * time.Millisecond, 15},
		{100 * time.Millisecond, 15},
		{300 * time.Millisecond, 12},
		{500 * time.Millisecond, 8},
		{time.Second, 5},
		{2 * time.Second, 2},
		{5 * time.Second, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, latencyScore(tt.latency))
	}
}
