package store

import (
	"time"

	"kvtube/kvtube-backend/downloader"
)

// LibraryEntry is a completed download as persisted: the item snapshot plus
// the moment it finished.
type LibraryEntry struct {
	downloader.DownloadItem
	DownloadedAt time.Time `json:"downloadedAt"`
}

// HistoryEntry records one watched video.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Uploader  string    `json:"uploader"`
	Thumbnail string    `json:"thumbnail"`
	WatchedAt time.Time `json:"watched_at"`
}

// Subscription records one followed channel.
type Subscription struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Avatar       string    `json:"avatar"`
	SubscribedAt time.Time `json:"subscribed_at"`
}
