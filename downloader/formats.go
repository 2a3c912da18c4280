package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"kvtube/kvtube-backend/utils"
)

// FormatFetchError wraps any failure talking to the format resolver. Callers
// that only need a display title recover by falling back to the raw video id.
type FormatFetchError struct {
	VideoID string
	Err     error
}

func (e *FormatFetchError) Error() string {
	return fmt.Sprintf("fetch formats for %s: %v", e.VideoID, e.Err)
}

func (e *FormatFetchError) Unwrap() error { return e.Err }

// FormatClient talks to the upstream format resolver service.
type FormatClient struct {
	BaseURL string
	client  *http.Client
}

func NewFormatClient(baseURL string) *FormatClient {
	return &FormatClient{
		BaseURL: baseURL,
		client:  utils.HTTPClient,
	}
}

// FetchFormats asks the resolver for the title, thumbnail and downloadable
// formats of one video.
func (c *FormatClient) FetchFormats(ctx context.Context, videoID string) (*VideoInfo, error) {
	endpoint := fmt.Sprintf("%s/api/download/formats?v=%s", c.BaseURL, url.QueryEscape(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FormatFetchError{VideoID: videoID, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FormatFetchError{VideoID: videoID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FormatFetchError{VideoID: videoID, Err: fmt.Errorf("resolver returned %s", resp.Status)}
	}

	var info VideoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &FormatFetchError{VideoID: videoID, Err: err}
	}

	if !info.Success {
		msg := info.Error
		if msg == "" {
			msg = "resolver reported failure"
		}
		return nil, &FormatFetchError{VideoID: videoID, Err: fmt.Errorf("%s", msg)}
	}

	return &info, nil
}
