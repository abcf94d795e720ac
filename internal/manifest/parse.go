package manifest

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"oriontv/internal/media"
)

const (
	headerTag   = "#EXTM3U"
	durationTag = "#EXTINF:"
	endListTag  = "#EXT-X-ENDLIST"
)

// playlist is the parsed form of a media playlist: the directive header
// lines in original order plus the ordered segment list.
type playlist struct {
	headers  []string
	segments []media.Segment
}

// parsePlaylist scans manifest text line by line. A duration tag sets the
// pending duration for the next non-comment, non-blank line, which is the
// segment URI. Directive lines other than duration tags and the end-of-list
// marker are preserved as headers in original order.
func parsePlaylist(text string) (*playlist, error) {
	if !strings.Contains(text, headerTag) {
		return nil, fmt.Errorf("not a playlist: missing %s", headerTag)
	}

	p := &playlist{}
	var pending float64

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, durationTag):
			dur, err := parseDuration(line)
			if err != nil {
				return nil, err
			}
			pending = dur
		case line == endListTag:
			// Regeneration appends its own end marker.
		case strings.HasPrefix(line, "#EXT"):
			p.headers = append(p.headers, line)
		case strings.HasPrefix(line, "#"):
			// Plain comment, dropped.
		default:
			p.segments = append(p.segments, media.Segment{URI: line, Duration: pending})
			pending = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning playlist: %w", err)
	}
	if len(p.segments) == 0 {
		return nil, fmt.Errorf("playlist has no segments")
	}
	return p, nil
}

// parseDuration extracts the seconds value from "#EXTINF:<dur>,<title>".
func parseDuration(line string) (float64, error) {
	rest := strings.TrimPrefix(line, durationTag)
	if i := strings.IndexByte(rest, ','); i >= 0 {
		rest = rest[:i]
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid segment duration %q: %w", rest, err)
	}
	return dur, nil
}

// regenerate emits a complete, finite playlist: preserved headers, one
// duration tag + URI pair per segment in original relative order, and an
// unconditional end-of-list marker.
func regenerate(headers []string, segments []media.Segment) string {
	var b strings.Builder
	if len(headers) == 0 || headers[0] != headerTag {
		b.WriteString(headerTag)
		b.WriteByte('\n')
	}
	for _, h := range headers {
		b.WriteString(h)
		b.WriteByte('\n')
	}
	for _, seg := range segments {
		fmt.Fprintf(&b, "%s%.3f,\n%s\n", durationTag, seg.Duration, seg.URI)
	}
	b.WriteString(endListTag)
	b.WriteByte('\n')
	return b.String()
}
