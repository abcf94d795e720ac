package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Publisher mints a fetchable URL for filtered playlist text. A failed
// publish makes the filter fall back to the original URL.
type Publisher interface {
	Publish(originalURL, body string) (string, error)
}

// HTTPPublisher serves filtered playlists over a local HTTP listener.
// Published bodies live as long as the publisher; the set is bounded by
// the number of distinct manifests filtered per run.
type HTTPPublisher struct {
	mu        sync.RWMutex
	manifests map[string]string
	base      string

	srv *http.Server
	ln  net.Listener
}

// NewHTTPPublisher creates an unstarted publisher. Publish fails until
// Listen has been called.
func NewHTTPPublisher() *HTTPPublisher {
	return &HTTPPublisher{manifests: make(map[string]string)}
}

// Handler returns the router serving published playlists.
func (p *HTTPPublisher) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/manifests/{key}.m3u8", func(w http.ResponseWriter, req *http.Request) {
		key := chi.URLParam(req, "key")
		p.mu.RLock()
		body, ok := p.manifests[key]
		p.mu.RUnlock()
		if !ok {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		fmt.Fprint(w, body)
	})
	return r
}

// Listen starts serving on addr ("127.0.0.1:0" picks a free port) and
// returns the bound address. Serving runs until Close.
func (p *HTTPPublisher) Listen(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("publisher listen: %w", err)
	}

	p.mu.Lock()
	p.ln = ln
	p.base = "http://" + ln.Addr().String()
	p.srv = &http.Server{Handler: p.Handler()}
	srv := p.srv
	p.mu.Unlock()

	go func() {
		_ = srv.Serve(ln)
	}()
	return ln.Addr().String(), nil
}

// SetBaseURL points Publish at an externally served Handler, for callers
// that mount the handler on their own server.
func (p *HTTPPublisher) SetBaseURL(base string) {
	p.mu.Lock()
	p.base = base
	p.mu.Unlock()
}

// Publish stores body under a key derived from the original URL and
// returns the minted URL.
func (p *HTTPPublisher) Publish(originalURL, body string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.base == "" {
		return "", fmt.Errorf("publisher is not serving")
	}
	key := manifestKey(originalURL)
	p.manifests[key] = body
	return fmt.Sprintf("%s/manifests/%s.m3u8", p.base, key), nil
}

// Close stops the listener. Safe to call on an unstarted publisher.
func (p *HTTPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.srv == nil {
		return nil
	}
	return p.srv.Close()
}

func manifestKey(originalURL string) string {
	sum := sha256.Sum256([]byte(originalURL))
	return hex.EncodeToString(sum[:8])
}
