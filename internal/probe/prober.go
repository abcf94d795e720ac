package probe

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"oriontv/internal/httputil"
)

// Prober measures a single URL. Unavailability and zero throughput are
// normal outcomes, never errors; the session keeps running with whatever
// subset of measurements succeeded.
type Prober interface {
	// Latency issues a minimal connectivity probe and reports the
	// round-trip time. ok is false on timeout, non-success status or
	// cancellation.
	Latency(ctx context.Context, url string) (latency time.Duration, ok bool)

	// Throughput downloads the resource and reports KB per second.
	// Returns 0 for non-playlist URLs and on any failure; a throughput
	// failure does not imply the source is unavailable.
	Throughput(ctx context.Context, url string) float64
}

// httpProber is the default Prober, measuring against real endpoints.
type httpProber struct {
	client            *http.Client
	latencyTimeout    time.Duration
	throughputTimeout time.Duration
	log               zerolog.Logger
}

func (p *httpProber) Latency(ctx context.Context, rawURL string) (time.Duration, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.latencyTimeout)
	defer cancel()

	start := time.Now()
	resp, err := httputil.Get(ctx, p.client, rawURL)
	if err != nil {
		p.log.Debug().Str("url", rawURL).Err(err).Msg("latency probe failed")
		return 0, false
	}
	// Minimal payload: the round trip is measured on headers alone.
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		p.log.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Msg("latency probe rejected")
		return 0, false
	}
	return time.Since(start), true
}

func (p *httpProber) Throughput(ctx context.Context, rawURL string) float64 {
	if !isPlaylistURL(rawURL) {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, p.throughputTimeout)
	defer cancel()

	start := time.Now()
	resp, err := httputil.Get(ctx, p.client, rawURL)
	if err != nil {
		p.log.Debug().Str("url", rawURL).Err(err).Msg("throughput probe failed")
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0
	}

	n, err := io.Copy(io.Discard, resp.Body)
	elapsed := time.Since(start).Seconds()
	if err != nil || n == 0 || elapsed <= 0 {
		return 0
	}
	return float64(n) / 1024 / elapsed
}

// isPlaylistURL reports whether a URL names a playlist resource, the only
// kind a throughput measurement is meaningful for.
func isPlaylistURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	return strings.HasSuffix(path, ".m3u8") || strings.HasSuffix(path, ".m3u")
}
