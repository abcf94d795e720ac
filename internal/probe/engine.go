// Package probe measures candidate streaming sources and ranks them by a
// deterministic composite score. Probing is the only genuinely parallel
// workload in the core: latency and throughput for one source run
// concurrently, and sources are probed concurrently under a bounded
// fan-out, all sharing one cancellation context per ranking cycle.
package probe

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"oriontv/internal/cache"
	"oriontv/internal/httputil"
	"oriontv/internal/logging"
	"oriontv/internal/media"
)

const (
	defaultLatencyTimeout    = 5 * time.Second
	defaultThroughputTimeout = 8 * time.Second
	defaultCacheTTL          = 10 * time.Minute
	defaultMaxConcurrent     = 8
)

// Detector resolves a resolution label for a manifest URL. Failures yield
// an empty label, scored in the unknown band.
type Detector interface {
	Detect(ctx context.Context, manifestURL string) string
}

// Config customises an Engine. Zero values fall back to defaults.
type Config struct {
	Client        *http.Client
	Prober        Prober // overrides the HTTP prober, mainly for tests
	Detector      Detector
	MaxConcurrent int
	CacheTTL      time.Duration
	Now           func() time.Time
}

// Engine probes and ranks candidate sources. Probe results are cached per
// source URL with a fixed TTL; the cache is owned by the engine instance,
// never global.
type Engine struct {
	prober        Prober
	detector      Detector
	cache         *cache.TTL[media.ProbeResult]
	maxConcurrent int
	log           zerolog.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	log := logging.Component("probe")

	client := cfg.Client
	if client == nil {
		client = httputil.NewClient()
	}
	prober := cfg.Prober
	if prober == nil {
		prober = &httpProber{
			client:            client,
			latencyTimeout:    defaultLatencyTimeout,
			throughputTimeout: defaultThroughputTimeout,
			log:               log,
		}
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	return &Engine{
		prober:        prober,
		detector:      cfg.Detector,
		cache:         cache.New[media.ProbeResult](ttl, cfg.Now),
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// ProbeSource measures one source, serving a cached result when a
// non-expired entry exists. On a miss, latency and throughput are measured
// concurrently and the combined result overwrites any prior entry.
func (e *Engine) ProbeSource(ctx context.Context, src media.CandidateSource) media.ProbeResult {
	url := src.ProbeURL()
	if url == "" {
		return media.ProbeResult{}
	}

	if cached, ok := e.cache.Get(url); ok {
		return cached
	}

	var (
		latency    time.Duration
		available  bool
		throughput float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		latency, available = e.prober.Latency(gctx, url)
		return nil
	})
	g.Go(func() error {
		throughput = e.prober.Throughput(gctx, url)
		return nil
	})
	_ = g.Wait()

	result := media.ProbeResult{
		Latency:        latency,
		ThroughputKBps: throughput,
		Available:      available,
	}
	e.cache.Set(url, result)

	e.log.Debug().
		Str("source", src.Key).
		Dur("latency", latency).
		Float64("kbps", throughput).
		Bool("available", available).
		Msg("probed source")

	return result
}

// RankSources probes every candidate concurrently and returns them sorted
// by descending score, ties broken by input order. A cancelled context
// aborts all in-flight probes; whatever subset completed still yields a
// fully populated ranking, with unreachable sources scored 0 and sorted
// last.
func (e *Engine) RankSources(ctx context.Context, sources []media.CandidateSource) []media.ScoredSource {
	scored := make([]media.ScoredSource, len(sources))

	g := new(errgroup.Group)
	g.SetLimit(e.maxConcurrent)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			result := e.ProbeSource(ctx, src)

			resolution := src.Resolution
			if resolution == "" && e.detector != nil && result.Available {
				resolution = e.detector.Detect(ctx, src.ProbeURL())
			}

			scored[i] = media.ScoredSource{
				Source: src,
				Probe:  result,
				Score:  Score(result, resolution, src.EpisodeCount()),
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// InvalidateCache drops all cached probe results.
func (e *Engine) InvalidateCache() {
	e.cache.Invalidate()
}

// CacheStats reports probe cache contents, judged against the clock at
// call time.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}
