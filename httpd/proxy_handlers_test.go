package httpd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestProxyStreamsAndStripsHopHeaders(t *testing.T) {
	payload := []byte("fake video bytes")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Range"); got != "bytes=100-" {
			t.Errorf("upstream Range = %q, want bytes=100-", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("upstream request missing User-Agent")
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Encoding", "identity")
		w.Header().Set("Accept-Ranges", "bytes")
		w.WriteHeader(http.StatusPartialContent)
		w.Write(payload)
	}))
	defer upstream.Close()

	router := newTestRouter(t, "http://127.0.0.1:1", "http://127.0.0.1:1")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/video_proxy?url="+url.QueryEscape(upstream.URL+"/v.mp4"), nil)
	req.Header.Set("Range", "bytes=100-")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusPartialContent)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != string(payload) {
		t.Errorf("body = %q, want %q", body, payload)
	}
	if rec.Header().Get("Content-Type") != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Accept-Ranges") != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", rec.Header().Get("Accept-Ranges"))
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Errorf("Content-Encoding should be stripped, got %q", rec.Header().Get("Content-Encoding"))
	}
}

func TestProxyRejectsBadURLs(t *testing.T) {
	router := newTestRouter(t, "http://127.0.0.1:1", "http://127.0.0.1:1")

	tests := []string{
		"/video_proxy",
		"/video_proxy?url=" + url.QueryEscape("ftp://example.com/v.mp4"),
		"/video_proxy?url=" + url.QueryEscape("file:///etc/passwd"),
	}

	for _, path := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestProxyRewritesHLSManifest(t *testing.T) {
	manifest := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		"#EXTINF:4.0,",
		"seg0001.ts",
		"#EXTINF:4.0,",
		"https://cdn.other-host.example/seg0002.ts",
		"",
	}, "\n")

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte(manifest))
	}))
	defer upstream.Close()

	router := newTestRouter(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	manifestURL := upstream.URL + "/hls/index.m3u8"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/video_proxy?url="+url.QueryEscape(manifestURL), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := rec.Body.String()
	lines := strings.Split(body, "\n")

	// Comment and tag lines survive untouched.
	if lines[0] != "#EXTM3U" || lines[1] != "#EXT-X-VERSION:3" {
		t.Errorf("header lines were modified: %q %q", lines[0], lines[1])
	}

	// Relative segment: resolved against the manifest directory, then proxied.
	wantRel := "/video_proxy?url=" + url.QueryEscape(upstream.URL+"/hls/seg0001.ts")
	if lines[3] != wantRel {
		t.Errorf("relative segment = %q, want %q", lines[3], wantRel)
	}

	// Absolute segment on another host: proxied as-is.
	wantAbs := "/video_proxy?url=" + url.QueryEscape("https://cdn.other-host.example/seg0002.ts")
	if lines[5] != wantAbs {
		t.Errorf("absolute segment = %q, want %q", lines[5], wantAbs)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.apple.mpegurl" {
		t.Errorf("Content-Type = %q, want application/vnd.apple.mpegurl", ct)
	}
}
