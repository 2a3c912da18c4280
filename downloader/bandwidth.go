package downloader

import (
	"context"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"kvtube/kvtube-backend/utils"
)

const (
	bandwidthCacheTTL = 5 * time.Minute
	fallbackMbps      = 10.0
)

// Estimator measures effective throughput with a one-shot probe and caches
// the result. It is a heuristic for picking a default quality, not a
// guarantee; failures fall back to a fixed value and are never cached.
type Estimator struct {
	ProbeURL string

	mu         sync.Mutex
	cachedMbps float64
	measuredAt time.Time
	client     *http.Client
}

func NewEstimator(probeURL string) *Estimator {
	return &Estimator{
		ProbeURL: probeURL,
		client:   utils.HTTPClient,
	}
}

// Measure returns the connection speed in Mbps, reusing a measurement
// younger than five minutes.
func (e *Estimator) Measure(ctx context.Context) float64 {
	e.mu.Lock()
	if !e.measuredAt.IsZero() && time.Since(e.measuredAt) < bandwidthCacheTTL {
		mbps := e.cachedMbps
		e.mu.Unlock()
		return mbps
	}
	e.mu.Unlock()

	mbps, err := e.probe(ctx)
	if err != nil {
		log.Printf("[Bandwidth] Measurement failed: %v", err)
		return fallbackMbps
	}

	e.mu.Lock()
	e.cachedMbps = mbps
	e.measuredAt = time.Now()
	e.mu.Unlock()

	return mbps
}

func (e *Estimator) probe(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.ProbeURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Cache-Control", "no-store")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	bytes, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 || bytes == 0 {
		return fallbackMbps, nil
	}

	mbps := (float64(bytes) * 8 / elapsed) / 1e6
	return math.Round(mbps*10) / 10, nil
}

type qualityTier struct {
	minMbps   float64
	qualities []string
}

var videoTiers = []qualityTier{
	{25, []string{"2160p", "1440p", "1080p"}},
	{15, []string{"1080p", "720p"}},
	{5, []string{"720p", "480p"}},
	{2, []string{"480p", "360p"}},
	{0, []string{"360p", "240p", "144p"}},
}

var audioTiers = []qualityTier{
	{5, []string{"256kbps", "192kbps", "160kbps"}},
	{2, []string{"192kbps", "160kbps", "128kbps"}},
	{0, []string{"128kbps", "64kbps"}},
}

// Recommendation pairs the suggested video and audio formats for the
// measured bandwidth. Either may be nil when no formats of that kind exist.
type Recommendation struct {
	Video     *Format `json:"video"`
	Audio     *Format `json:"audio"`
	Bandwidth float64 `json:"bandwidth"`
}

// Recommend picks one video and one audio format by walking bandwidth tiers
// top-down: in the best tier the connection qualifies for, the first listed
// quality that substring-matches an available format wins; an empty tier
// falls through to the next. With no tier match at all, the first available
// format of that kind is used.
func Recommend(formats FormatList, mbps float64) Recommendation {
	return Recommendation{
		Video:     pickFormat(formats.Video, videoTiers, mbps),
		Audio:     pickFormat(formats.Audio, audioTiers, mbps),
		Bandwidth: mbps,
	}
}

func pickFormat(formats []Format, tiers []qualityTier, mbps float64) *Format {
	for _, tier := range tiers {
		if mbps < tier.minMbps {
			continue
		}
		for _, quality := range tier.qualities {
			for i := range formats {
				if strings.Contains(strings.ToLower(formats[i].Quality), strings.ToLower(quality)) {
					return &formats[i]
				}
			}
		}
	}

	if len(formats) > 0 {
		return &formats[0]
	}
	return nil
}
