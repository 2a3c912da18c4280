// Package downloader : handling all the chunked video/audio downloads
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"kvtube/kvtube-backend/utils"
)

var (
	ErrAlreadyDownloading = errors.New("a download for this video is already active")
	ErrSessionNotFound    = errors.New("download session not found")
	ErrNotDownloading     = errors.New("download is not running")
	ErrNotPaused          = errors.New("download is not paused")
)

// LibraryWriter persists finished downloads. Implemented by the sqlite store.
type LibraryWriter interface {
	AddDownload(ctx context.Context, item DownloadItem) error
}

// session is the transient per-download state. Chunks survive pauses so a
// resume never re-fetches bytes it already holds. gen increments on every
// (re)start of the transfer loop; a loop whose gen is stale must not touch
// the session anymore.
type session struct {
	item      DownloadItem
	ctx       context.Context
	cancel    context.CancelFunc
	chunks    [][]byte
	received  int64
	total     int64
	gen       int
	startTime time.Time
}

// Service is the download session registry and the public entry point for
// all download operations.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*session

	notifier *Notifier
	formats  *FormatClient
	library  LibraryWriter
	client   *http.Client
	dir      string
}

func NewService(notifier *Notifier, formats *FormatClient, library LibraryWriter, downloadDir string) *Service {
	return &Service{
		sessions: make(map[string]*session),
		notifier: notifier,
		formats:  formats,
		library:  library,
		client:   utils.HTTPClient,
		dir:      downloadDir,
	}
}

// StartDownload registers a new session and kicks off its transfer loop. It
// returns as soon as the loop is launched; progress arrives via events.
func (s *Service) StartDownload(ctx context.Context, videoID string, format Format, title string) (DownloadItem, error) {
	if s.IsDownloading(videoID) {
		return DownloadItem{}, ErrAlreadyDownloading
	}

	if title == "" {
		info, err := s.formats.FetchFormats(ctx, videoID)
		if err != nil {
			log.Printf("[Downloader] Could not fetch video info: %v", err)
			title = videoID
		} else {
			title = info.Title
		}
	}
	if title == "" {
		title = "Unknown Video"
	}

	id := fmt.Sprintf("%s_%s_%d", videoID, format.Quality, time.Now().UnixMilli())

	item := DownloadItem{
		ID:        id,
		VideoID:   videoID,
		Title:     title,
		Thumbnail: fmt.Sprintf("https://i.ytimg.com/vi/%s/mqdefault.jpg", videoID),
		Quality:   format.Quality,
		Type:      format.Type,
		Ext:       format.Ext,
		Size:      format.Size,
		SizeBytes: format.SizeBytes,
		Status:    StatusDownloading,
		Progress:  0,
		ETA:       "--:--",
		Specs: FormatSpecs{
			Resolution: format.Resolution,
			Width:      format.Width,
			Height:     format.Height,
			FPS:        format.FPS,
			VCodec:     format.VCodec,
			ACodec:     format.ACodec,
			Bitrate:    format.Bitrate,
			SampleRate: format.SampleRate,
			URL:        format.URL,
		},
	}

	// The session must outlive the HTTP request that started it.
	loopCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	// Re-check under the lock; two racing starts must not both win.
	for _, sess := range s.sessions {
		if sess.item.VideoID == videoID {
			s.mu.Unlock()
			cancel()
			return DownloadItem{}, ErrAlreadyDownloading
		}
	}
	sess := &session{
		item:      item,
		ctx:       loopCtx,
		cancel:    cancel,
		gen:       1,
		startTime: time.Now(),
	}
	s.sessions[id] = sess
	s.publishLocked(Event{Type: EventStart, DownloadID: id, Item: &item})
	s.mu.Unlock()

	log.Printf("[Downloader] Started download %s (%s %s)", id, format.Quality, format.Ext)
	go s.transfer(loopCtx, id, 1)

	return item, nil
}

// Pause aborts the in-flight request but keeps the session and its chunks so
// the download can resume where it stopped.
func (s *Service) Pause(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.item.Status != StatusDownloading {
		return ErrNotDownloading
	}

	sess.item.Status = StatusPaused
	sess.cancel()
	return nil
}

// Resume re-enters the transfer loop with a fresh cancellation handle. The
// Range header picks up at the already-received offset.
func (s *Service) Resume(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.item.Status != StatusPaused {
		return ErrNotPaused
	}

	sess.item.Status = StatusDownloading
	loopCtx, cancel := context.WithCancel(context.Background())
	sess.ctx = loopCtx
	sess.cancel = cancel
	sess.gen++

	log.Printf("[Downloader] Resuming %s at byte %d", id, sess.received)
	go s.transfer(loopCtx, id, sess.gen)
	return nil
}

// Cancel aborts and drops the session in any state. Exactly one cancelled
// event is emitted here; a still-running loop finds its session gone and
// stays silent.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	sess.cancel()
	delete(s.sessions, id)
	s.publishLocked(Event{Type: EventCancelled, DownloadID: id})
	log.Printf("[Downloader] Cancelled %s", id)
	return nil
}

// ActiveDownloads returns a snapshot of every live session's item.
func (s *Service) ActiveDownloads() []DownloadItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// GetDownload returns one live session's item.
func (s *Service) GetDownload(id string) (DownloadItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return DownloadItem{}, ErrSessionNotFound
	}
	return sess.item, nil
}

// IsDownloading reports whether any live session belongs to the given video.
func (s *Service) IsDownloading(videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.item.VideoID == videoID {
			return true
		}
	}
	return false
}

func (s *Service) activeLocked() []DownloadItem {
	items := make([]DownloadItem, 0, len(s.sessions))
	for _, sess := range s.sessions {
		items = append(items, sess.item)
	}
	return items
}

// publishLocked stamps the event with the current registry snapshot. Callers
// must hold s.mu.
func (s *Service) publishLocked(ev Event) {
	ev.ActiveCount = len(s.sessions)
	ev.Downloads = s.activeLocked()
	s.notifier.Publish(ev)
}
