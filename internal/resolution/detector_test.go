package resolution

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
low/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720,CODECS="avc1.64001f"
mid/index.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=5000000,RESOLUTION=1920x1080
high/index.m3u8
`

func TestLabelFromPlaylist(t *testing.T) {
	assert.Equal(t, "1080p", LabelFromPlaylist(masterPlaylist))
}

func TestLabelFromPlaylistNoVariants(t *testing.T) {
	assert.Equal(t, "", LabelFromPlaylist("#EXTM3U\n#EXTINF:4.0,\nseg1.ts\n"))
	assert.Equal(t, "", LabelFromPlaylist(""))
}

func TestLabelFromPlaylistMalformedResolution(t *testing.T) {
	assert.Equal(t, "", LabelFromPlaylist("#EXT-X-STREAM-INF:RESOLUTION=oops\nv.m3u8\n"))
}

func TestDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(masterPlaylist))
	}))
	defer srv.Close()

	d := NewDetector(srv.Client())
	assert.Equal(t, "1080p", d.Detect(context.Background(), srv.URL+"/master.m3u8"))
}

func TestDetectFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDetector(srv.Client())
	assert.Equal(t, "", d.Detect(context.Background(), srv.URL+"/master.m3u8"))
}
