package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oriontv/internal/cache"
	"oriontv/internal/media"
)

// fakeProber returns canned measurements per URL and counts calls.
type fakeProber struct {
	mu          sync.Mutex
	latencies   map[string]time.Duration
	throughputs map[string]float64
	calls       int
}

func (f *fakeProber) Latency(_ context.Context, url string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	lat, ok := f.latencies[url]
	return lat, ok
}

func (f *fakeProber) Throughput(_ context.Context, url string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.throughputs[url]
}

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func source(key, url string, episodes int, resolution string) media.CandidateSource {
	urls := make([]string, episodes)
	for i := range urls {
		urls[i] = url
	}
	return media.CandidateSource{Key: key, Title: key, Resolution: resolution, Episodes: urls}
}

func TestProbeSourceCacheHit(t *testing.T) {
	fp := &fakeProber{
		latencies:   map[string]time.Duration{"https://a/index.m3u8": 120 * time.Millisecond},
		throughputs: map[string]float64{"https://a/index.m3u8": 450},
	}
	e := New(Config{Prober: fp})
	src := source("a", "https://a/index.m3u8", 24, "1080p")

	first := e.ProbeSource(context.Background(), src)
	second := e.ProbeSource(context.Background(), src)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fp.callCount(), "second call within TTL must not re-probe")
}

func TestProbeSourceCacheExpiry(t *testing.T) {
	clk := time.Unix(1700000000, 0)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clk
	}

	fp := &fakeProber{
		latencies:   map[string]time.Duration{"https://a/index.m3u8": 80 * time.Millisecond},
		throughputs: map[string]float64{},
	}
	e := New(Config{Prober: fp, Now: now})
	src := source("a", "https://a/index.m3u8", 1, "")

	e.ProbeSource(context.Background(), src)

	mu.Lock()
	clk = clk.Add(11 * time.Minute)
	mu.Unlock()

	e.ProbeSource(context.Background(), src)
	assert.Equal(t, 2, fp.callCount(), "expired entry must trigger a fresh probe")
	assert.Equal(t, cache.Stats{Total: 1, Valid: 1}, e.CacheStats())
}

func TestProbeSourceUnavailable(t *testing.T) {
	fp := &fakeProber{
		latencies:   map[string]time.Duration{}, // no entry => unavailable
		throughputs: map[string]float64{"https://dead/index.m3u8": 900},
	}
	e := New(Config{Prober: fp})

	result := e.ProbeSource(context.Background(), source("dead", "https://dead/index.m3u8", 3, ""))
	assert.False(t, result.Available)
	// Throughput is not an availability signal; it is carried as measured.
	assert.Equal(t, 900.0, result.ThroughputKBps)
}

func TestRankSourcesOrderingAndStability(t *testing.T) {
	fp := &fakeProber{
		latencies: map[string]time.Duration{
			"https://a/index.m3u8": 120 * time.Millisecond,
			"https://b/index.m3u8": 120 * time.Millisecond,
			"https://c/index.m3u8": 50 * time.Millisecond,
		},
		throughputs: map[string]float64{
			"https://a/index.m3u8": 450,
			"https://b/index.m3u8": 450,
			"https://c/index.m3u8": 2000,
		},
	}
	e := New(Config{Prober: fp})

	sources := []media.CandidateSource{
		source("a", "https://a/index.m3u8", 24, "1080p"),
		source("b", "https://b/index.m3u8", 24, "1080p"), // identical to a: tie
		source("c", "https://c/index.m3u8", 24, "2160p"),
		source("dead", "https://dead/index.m3u8", 24, "2160p"),
	}

	ranked := e.RankSources(context.Background(), sources)
	require.Len(t, ranked, 4)

	assert.Equal(t, "c", ranked[0].Source.Key)
	assert.Equal(t, "a", ranked[1].Source.Key, "equal scores keep input order")
	assert.Equal(t, "b", ranked[2].Source.Key)
	assert.Equal(t, "dead", ranked[3].Source.Key, "unavailable sorts last")
	assert.Zero(t, ranked[3].Score)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRankSourcesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	e := New(Config{Client: srv.Client()})
	ranked := e.RankSources(ctx, []media.CandidateSource{
		source("a", srv.URL+"/index.m3u8", 2, ""),
	})

	require.Len(t, ranked, 1)
	assert.False(t, ranked[0].Probe.Available, "cancelled probe reports unavailable")
	assert.Zero(t, ranked[0].Score)
}

func TestHTTPProberAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n#EXTINF:4.0,\nseg1.ts\n"))
	}))
	defer srv.Close()

	e := New(Config{Client: srv.Client()})
	result := e.ProbeSource(context.Background(), source("live", srv.URL+"/index.m3u8", 1, ""))

	assert.True(t, result.Available)
	assert.Greater(t, result.ThroughputKBps, 0.0)
}

func TestThroughputZeroForNonPlaylist(t *testing.T) {
	assert.False(t, isPlaylistURL("https://example.com/video.mp4"))
	assert.False(t, isPlaylistURL("://bad"))
	assert.True(t, isPlaylistURL("https://example.com/live/index.m3u8"))
	assert.True(t, isPlaylistURL("https://example.com/list.M3U"))
}
