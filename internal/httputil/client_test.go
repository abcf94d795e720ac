package httputil

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://example.com/index.m3u8", false},
		{"http", "http://example.com/index.m3u8", false},
		{"no scheme", "example.com/index.m3u8", true},
		{"ftp", "ftp://example.com/file", true},
		{"no host", "https:///path", true},
		{"garbage", "://", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	body, err := FetchText(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "#EXTM3U\n", body)
}

func TestFetchTextOversizeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{'x'}, maxBodyBytes+1))
	}))
	defer srv.Close()

	_, err := FetchText(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err, "a body over the cap must fail, not truncate")
	assert.Contains(t, err.Error(), "exceeds")
}

func TestFetchTextNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchText(context.Background(), srv.Client(), srv.URL)
	assert.Error(t, err)
}
