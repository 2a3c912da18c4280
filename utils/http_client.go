// Package utils: shared helpers (http client, display formatters)
package utils

import (
	"fmt"
	"net/http"
)

// BrowserUA is sent on upstream media requests so CDNs treat us like a
// regular browser session instead of a bot.
const BrowserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var HTTPClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		fmt.Printf("Redirect to: %s\n", req.URL.String())
		return nil
	},
}
