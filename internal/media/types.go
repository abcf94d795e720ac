// Package media defines shared types for the oriontv playback core.
package media

import "time"

// CandidateSource is one streaming source offering a piece of content.
// It is supplied by an external search collaborator and never mutated
// after discovery.
type CandidateSource struct {
	Key        string   `json:"key"`                  // provider-specific source key
	Title      string   `json:"title"`                // display title
	Poster     string   `json:"poster,omitempty"`     // poster image URL
	Resolution string   `json:"resolution,omitempty"` // label like "1080p", empty when unknown
	Episodes   []string `json:"episodes"`             // resolved manifest URL per episode
}

// ProbeURL returns the URL measured when probing this source.
func (s CandidateSource) ProbeURL() string {
	if len(s.Episodes) == 0 {
		return ""
	}
	return s.Episodes[0]
}

// EpisodeCount returns the number of playable episodes.
func (s CandidateSource) EpisodeCount() int {
	return len(s.Episodes)
}

// ProbeResult holds one measurement cycle for a source. Results are
// never mutated after creation, only replaced on the next cycle.
type ProbeResult struct {
	Latency        time.Duration // round-trip time; meaningless when !Available
	ThroughputKBps float64       // 0 when measurement failed or was not applicable
	Available      bool          // latency probe succeeded
}

// ScoredSource is a CandidateSource with its probe result and composite
// score attached. Recomputed every probe cycle.
type ScoredSource struct {
	Source CandidateSource
	Probe  ProbeResult
	Score  float64
}

// Segment is one media chunk referenced by a playlist.
type Segment struct {
	URI      string
	Duration float64 // seconds
	IsAd     bool
}

// FilteredManifest describes the outcome of filtering one playlist.
//
// Invariants: FilteredDurationSec <= TotalDurationSec and
// RemovedSegmentCount = original segment count - surviving segment count.
type FilteredManifest struct {
	OriginalURL         string
	FilteredURL         string
	RemovedSegmentCount int
	TotalDurationSec    float64
	FilteredDurationSec float64
}

// Episode is one playable entry of a multi-episode session.
type Episode struct {
	Index int    // zero-based position in the session
	Title string // optional display title
	URL   string // playable manifest URL
}

// PlayRecord is the persisted resume snapshot for (source, content).
// Zero millisecond values mean the corresponding skip point is unset.
// Writes are full snapshots, last-write-wins.
type PlayRecord struct {
	Title            string
	Poster           string
	EpisodeIndex     int
	TotalEpisodes    int
	PositionSec      float64
	TotalSec         float64
	IntroEndMillis   int64
	OutroStartMillis int64
}
