// Package manifest parses streaming playlists, strips advertisement
// segments using duration and URL-pattern heuristics, and republishes the
// filtered playlist as a fetchable resource. Filtering is a best-effort
// optimization: every failure degrades to passing the original URL
// through, never to a playback-blocking error.
package manifest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"oriontv/internal/cache"
	"oriontv/internal/httputil"
	"oriontv/internal/logging"
	"oriontv/internal/media"
)

const (
	defaultCacheTTL      = 10 * time.Minute
	defaultMinSegmentSec = 3.0
	fetchTimeout         = 10 * time.Second
)

// DefaultAdPatterns are URI substrings (matched case-insensitively) that
// mark a segment as an advertisement.
var DefaultAdPatterns = []string{
	"/ads/",
	"/ad/",
	"advertisement",
	"adjump",
	"adserve",
	"doubleclick",
	"tracking",
}

// Options control one filter pass.
type Options struct {
	RemoveAds          bool
	MinSegmentDuration float64  // seconds; segments shorter than this are ads
	AdURLPatterns      []string // extra patterns, appended to the defaults
}

// DefaultOptions returns the standard filtering policy.
func DefaultOptions() Options {
	return Options{
		RemoveAds:          true,
		MinSegmentDuration: defaultMinSegmentSec,
	}
}

// Config customises a Filter. Zero values fall back to defaults.
type Config struct {
	Client    *http.Client
	Publisher Publisher
	CacheTTL  time.Duration
	Now       func() time.Time
}

// Filter is the manifest segment filter. It holds no state beyond its
// result cache; the output is a pure function of the manifest content.
type Filter struct {
	client *http.Client
	pub    Publisher
	cache  *cache.TTL[media.FilteredManifest]
	log    zerolog.Logger
}

// NewFilter creates a Filter. A nil Publisher disables republishing, so
// filtering degrades to pass-through.
func NewFilter(cfg Config) *Filter {
	client := cfg.Client
	if client == nil {
		client = httputil.NewClient()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Filter{
		client: client,
		pub:    cfg.Publisher,
		cache:  cache.New[media.FilteredManifest](ttl, cfg.Now),
		log:    logging.Component("manifest"),
	}
}

// FilterManifest fetches, filters and republishes the playlist at url.
// Results, including degraded pass-through ones, are cached per manifest
// URL; a fresh attempt happens only after the TTL elapses.
func (f *Filter) FilterManifest(ctx context.Context, url string, opts Options) media.FilteredManifest {
	if cached, ok := f.cache.Get(url); ok {
		return cached
	}
	result := f.filter(ctx, url, opts)
	f.cache.Set(url, result)
	return result
}

func (f *Filter) filter(ctx context.Context, url string, opts Options) media.FilteredManifest {
	passthrough := media.FilteredManifest{OriginalURL: url, FilteredURL: url}

	if !opts.RemoveAds {
		return passthrough
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	text, err := httputil.FetchText(ctx, f.client, url)
	if err != nil {
		f.log.Warn().Str("url", url).Err(err).Msg("manifest fetch failed, passing through")
		return passthrough
	}

	p, err := parsePlaylist(text)
	if err != nil {
		f.log.Warn().Str("url", url).Err(err).Msg("manifest parse failed, passing through")
		return passthrough
	}

	patterns := append(append([]string{}, DefaultAdPatterns...), opts.AdURLPatterns...)

	// Classification and exclusion in one pass: ad segments are dropped,
	// not retained and flagged.
	kept := make([]media.Segment, 0, len(p.segments))
	var totalSec, keptSec float64
	for _, seg := range p.segments {
		totalSec += seg.Duration
		if isAd(seg, opts.MinSegmentDuration, patterns) {
			continue
		}
		kept = append(kept, seg)
		keptSec += seg.Duration
	}

	result := media.FilteredManifest{
		OriginalURL:         url,
		FilteredURL:         url,
		RemovedSegmentCount: len(p.segments) - len(kept),
		TotalDurationSec:    totalSec,
		FilteredDurationSec: keptSec,
	}

	if result.RemovedSegmentCount == 0 {
		return result
	}

	if f.pub == nil {
		f.log.Debug().Str("url", url).Msg("no publisher, passing through")
		passthrough.TotalDurationSec = totalSec
		passthrough.FilteredDurationSec = totalSec
		return passthrough
	}

	filteredURL, err := f.pub.Publish(url, regenerate(p.headers, kept))
	if err != nil {
		f.log.Warn().Str("url", url).Err(err).Msg("publishing filtered manifest failed, passing through")
		passthrough.TotalDurationSec = totalSec
		passthrough.FilteredDurationSec = totalSec
		return passthrough
	}

	result.FilteredURL = filteredURL
	f.log.Info().
		Str("url", url).
		Int("removed", result.RemovedSegmentCount).
		Float64("kept_sec", keptSec).
		Msg("filtered manifest")
	return result
}

// InvalidateCache drops all cached filter results.
func (f *Filter) InvalidateCache() {
	f.cache.Invalidate()
}

// CacheStats reports filter cache contents at call time.
func (f *Filter) CacheStats() cache.Stats {
	return f.cache.Stats()
}

// isAd classifies a segment: too short, or URI matching any ad pattern.
func isAd(seg media.Segment, minDuration float64, patterns []string) bool {
	if seg.Duration < minDuration {
		return true
	}
	uri := strings.ToLower(seg.URI)
	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		if strings.Contains(uri, strings.ToLower(pat)) {
			return true
		}
	}
	return false
}
