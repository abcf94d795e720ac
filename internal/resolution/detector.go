// Package resolution detects the resolution label of an HLS source by
// inspecting its master playlist. Detection is best-effort: every failure
// path yields an empty label, which the scoring function treats as an
// unknown resolution.
package resolution

import (
	"bufio"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"oriontv/internal/httputil"
	"oriontv/internal/logging"
)

const fetchTimeout = 5 * time.Second

// Detector reads RESOLUTION attributes from master playlists.
type Detector struct {
	client *http.Client
	log    zerolog.Logger
}

// NewDetector creates a Detector. client may be nil.
func NewDetector(client *http.Client) *Detector {
	if client == nil {
		client = httputil.NewClient()
	}
	return &Detector{client: client, log: logging.Component("resolution")}
}

// Detect fetches the playlist at manifestURL and returns the label of the
// highest variant found ("2160p", "1080p", ...). Returns "" when the
// playlist has no variants or cannot be fetched.
func (d *Detector) Detect(ctx context.Context, manifestURL string) string {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	text, err := httputil.FetchText(ctx, d.client, manifestURL)
	if err != nil {
		d.log.Debug().Str("url", manifestURL).Err(err).Msg("resolution detection failed")
		return ""
	}
	return LabelFromPlaylist(text)
}

// LabelFromPlaylist scans playlist text for #EXT-X-STREAM-INF lines and
// returns the label of the tallest RESOLUTION attribute, or "".
func LabelFromPlaylist(text string) string {
	best := 0
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			continue
		}
		if h := parseHeight(line); h > best {
			best = h
		}
	}
	if best == 0 {
		return ""
	}
	return strconv.Itoa(best) + "p"
}

// parseHeight extracts the height from a RESOLUTION=WxH attribute.
func parseHeight(line string) int {
	const attr = "RESOLUTION="
	i := strings.Index(line, attr)
	if i < 0 {
		return 0
	}
	rest := line[i+len(attr):]
	if j := strings.IndexByte(rest, ','); j >= 0 {
		rest = rest[:j]
	}
	parts := strings.SplitN(rest, "x", 2)
	if len(parts) != 2 {
		return 0
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || h <= 0 {
		return 0
	}
	return h
}
