package httpd

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"kvtube/kvtube-backend/utils"
)

// Headers we never copy back: the body may be re-chunked on the way through.
var excludedProxyHeaders = map[string]bool{
	"Content-Encoding":  true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Connection":        true,
}

// handleVideoProxy streams a remote media resource through this server,
// forwarding the Range header so players can seek. HLS manifests are
// rewritten so every segment URL routes back through the proxy.
func (s *Server) handleVideoProxy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := r.URL.Query().Get("url")
		if rawURL == "" {
			http.Error(w, "No URL provided", http.StatusBadRequest)
			return
		}

		target, err := url.Parse(rawURL)
		if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
			http.Error(w, "Invalid URL", http.StatusBadRequest)
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		req.Header.Set("User-Agent", utils.BrowserUA)
		if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
			req.Header.Set("Range", rangeHeader)
		}

		resp, err := utils.HTTPClient.Do(req)
		if err != nil {
			log.Printf("Proxy Error: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer resp.Body.Close()

		if isHLSManifest(rawURL, resp.Header.Get("Content-Type")) {
			writeRewrittenManifest(w, resp.Body, rawURL)
			return
		}

		for name, values := range resp.Header {
			if excludedProxyHeaders[http.CanonicalHeaderKey(name)] {
				continue
			}
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}
		w.WriteHeader(resp.StatusCode)

		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Printf("Proxy stream interrupted: %v", err)
		}
	}
}

func isHLSManifest(rawURL, contentType string) bool {
	path := strings.SplitN(rawURL, "?", 2)[0]
	ct := strings.ToLower(contentType)
	return strings.HasSuffix(path, ".m3u8") ||
		strings.Contains(ct, "application/x-mpegurl") ||
		strings.Contains(ct, "application/vnd.apple.mpegurl")
}

// writeRewrittenManifest points every segment line of an HLS playlist back
// at /video_proxy. Needed for 1080p+ streams: segments live on other hosts
// the player can't reach directly.
func writeRewrittenManifest(w http.ResponseWriter, body io.Reader, manifestURL string) {
	content, err := io.ReadAll(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	baseURL := manifestURL
	if i := strings.LastIndex(baseURL, "/"); i > 0 {
		baseURL = baseURL[:i]
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		full := trimmed
		if !strings.HasPrefix(full, "http") {
			full = baseURL + "/" + full
		}
		lines[i] = "/video_proxy?url=" + url.QueryEscape(full)
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Write([]byte(strings.Join(lines, "\n")))
}
