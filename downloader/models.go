package downloader

type DownloadStatus string

const (
	StatusDownloading DownloadStatus = "downloading"
	StatusPaused      DownloadStatus = "paused"
	StatusCompleted   DownloadStatus = "completed"
	StatusError       DownloadStatus = "error"
)

// FormatSpecs carries the technical details of a chosen format. URL is the
// direct media URL and is what the transfer engine fetches (and re-fetches
// on resume).
type FormatSpecs struct {
	Resolution string `json:"resolution,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	VCodec     string `json:"vcodec,omitempty"`
	ACodec     string `json:"acodec,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	URL        string `json:"url"`
}

// Format is one downloadable rendition as reported by the format resolver.
type Format struct {
	Quality    string `json:"quality"`
	Type       string `json:"type"` // video | audio | combined
	Ext        string `json:"ext"`
	Size       string `json:"size"`
	SizeBytes  int64  `json:"size_bytes"`
	URL        string `json:"url"`
	Resolution string `json:"resolution,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	VCodec     string `json:"vcodec,omitempty"`
	ACodec     string `json:"acodec,omitempty"`
	Bitrate    int    `json:"bitrate,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// FormatList groups the resolver's formats by kind.
type FormatList struct {
	Video []Format `json:"video"`
	Audio []Format `json:"audio"`
}

// VideoInfo is the resolver's answer for one video.
type VideoInfo struct {
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
	Title     string     `json:"title"`
	Duration  int64      `json:"duration"`
	Thumbnail string     `json:"thumbnail"`
	Formats   FormatList `json:"formats"`
}

// DownloadItem is the user-facing state of one download. Progress stays in
// [0,100]; byte counters never go backwards within a session.
type DownloadItem struct {
	ID           string         `json:"id"`
	VideoID      string         `json:"videoId"`
	Title        string         `json:"title"`
	Thumbnail    string         `json:"thumbnail"`
	Quality      string         `json:"quality"`
	Type         string         `json:"type"`
	Ext          string         `json:"ext"`
	Size         string         `json:"size"`
	SizeBytes    int64          `json:"size_bytes"`
	Status       DownloadStatus `json:"status"`
	Progress     int            `json:"progress"`
	Speed        float64        `json:"speed"`
	SpeedDisplay string         `json:"speedDisplay"`
	ETA          string         `json:"eta"`
	Specs        FormatSpecs    `json:"specs"`
}
