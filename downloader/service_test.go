package downloader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// rangeServer serves a fixed payload with Range support, writing slowly so
// tests get a chance to pause mid-transfer.
type rangeServer struct {
	payload   []byte
	chunkSize int
	delay     time.Duration

	mu            sync.Mutex
	rangeRequests []string
}

func (rs *rangeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		rs.mu.Lock()
		rs.rangeRequests = append(rs.rangeRequests, rangeHeader)
		rs.mu.Unlock()

		spec := strings.TrimPrefix(rangeHeader, "bytes=")
		spec = strings.TrimSuffix(spec, "-")
		n, err := strconv.Atoi(spec)
		if err != nil {
			http.Error(w, "bad range", http.StatusBadRequest)
			return
		}
		offset = n
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, len(rs.payload)-1, len(rs.payload)))
		w.Header().Set("Content-Length", strconv.Itoa(len(rs.payload)-offset))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.Header().Set("Content-Length", strconv.Itoa(len(rs.payload)))
		w.WriteHeader(http.StatusOK)
	}

	flusher, _ := w.(http.Flusher)
	for offset < len(rs.payload) {
		end := offset + rs.chunkSize
		if end > len(rs.payload) {
			end = len(rs.payload)
		}
		if _, err := w.Write(rs.payload[offset:end]); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		offset = end
		time.Sleep(rs.delay)
	}
}

func (rs *rangeServer) sawRange() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.rangeRequests) > 0
}

type fakeLibrary struct {
	mu    sync.Mutex
	items []DownloadItem
}

func (l *fakeLibrary) AddDownload(ctx context.Context, item DownloadItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, item)
	return nil
}

func (l *fakeLibrary) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func testPayload(n int) []byte {
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i * 31)
	}
	return payload
}

func newTestService(t *testing.T) (*Service, *fakeLibrary, <-chan Event, string) {
	t.Helper()

	resolver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"title":"Resolved Title","duration":120,"thumbnail":"","formats":{"video":[],"audio":[]}}`)
	}))
	t.Cleanup(resolver.Close)

	dir := t.TempDir()
	notifier := NewNotifier()
	_, events := notifier.Subscribe()
	lib := &fakeLibrary{}
	svc := NewService(notifier, NewFormatClient(resolver.URL), lib, dir)
	return svc, lib, events, dir
}

func waitForEvent(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed while waiting for %q", want)
			}
			if ev.Type == want {
				return ev
			}
			if ev.Type == EventError && want != EventError {
				t.Fatalf("unexpected error event while waiting for %q: %s", want, ev.Error)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", want)
		}
	}
}

func TestDownloadCompletes(t *testing.T) {
	payload := testPayload(64 * 1024)
	rs := &rangeServer{payload: payload, chunkSize: 16 * 1024, delay: time.Millisecond}
	media := httptest.NewServer(rs)
	defer media.Close()

	svc, lib, events, dir := newTestService(t)

	format := Format{Quality: "720p", Type: "video", Ext: "mp4", URL: media.URL}
	item, err := svc.StartDownload(context.Background(), "vid123", format, "My Video")
	if err != nil {
		t.Fatalf("StartDownload failed: %v", err)
	}
	if !strings.HasPrefix(item.ID, "vid123_720p_") {
		t.Errorf("session id = %q, want video id + quality + timestamp", item.ID)
	}

	waitForEvent(t, events, EventStart)
	done := waitForEvent(t, events, EventComplete)

	if done.Item == nil || done.Item.Status != StatusCompleted {
		t.Fatalf("complete event should carry a completed item, got %+v", done.Item)
	}
	if done.Item.Progress != 100 || done.Item.ETA != "Done" {
		t.Errorf("completed item should be at 100%% / Done, got %d%% / %q", done.Item.Progress, done.Item.ETA)
	}

	saved, err := os.ReadFile(filepath.Join(dir, "My Video_720p.mp4"))
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if !bytes.Equal(saved, payload) {
		t.Errorf("saved file differs from payload: got %d bytes, want %d", len(saved), len(payload))
	}

	if lib.count() != 1 {
		t.Errorf("expected 1 library entry, got %d", lib.count())
	}
	if svc.IsDownloading("vid123") {
		t.Error("session should be gone after completion")
	}
}

func TestPauseResumePreservesBytes(t *testing.T) {
	payload := testPayload(256 * 1024)
	rs := &rangeServer{payload: payload, chunkSize: 8 * 1024, delay: 15 * time.Millisecond}
	media := httptest.NewServer(rs)
	defer media.Close()

	svc, _, events, dir := newTestService(t)

	format := Format{Quality: "1080p", Type: "video", Ext: "mp4", URL: media.URL}
	item, err := svc.StartDownload(context.Background(), "vid456", format, "Pausable")
	if err != nil {
		t.Fatalf("StartDownload failed: %v", err)
	}

	// Let a few chunks land before pausing.
	first := waitForEvent(t, events, EventProgress)
	if first.Received == 0 {
		t.Fatal("progress event should report received bytes")
	}

	if err := svc.Pause(item.ID); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	waitForEvent(t, events, EventPaused)

	got, err := svc.GetDownload(item.ID)
	if err != nil {
		t.Fatalf("paused session must stay registered: %v", err)
	}
	if got.Status != StatusPaused {
		t.Fatalf("expected paused status, got %s", got.Status)
	}

	if err := svc.Resume(item.ID); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	waitForEvent(t, events, EventComplete)

	if !rs.sawRange() {
		t.Error("resume should have issued a Range request")
	}

	saved, err := os.ReadFile(filepath.Join(dir, "Pausable_1080p.mp4"))
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if sha256.Sum256(saved) != sha256.Sum256(payload) {
		t.Errorf("bytes were duplicated or dropped across the pause: got %d bytes, want %d", len(saved), len(payload))
	}
}

func TestDuplicateSourceRejected(t *testing.T) {
	payload := testPayload(128 * 1024)
	rs := &rangeServer{payload: payload, chunkSize: 4 * 1024, delay: 20 * time.Millisecond}
	media := httptest.NewServer(rs)
	defer media.Close()

	svc, _, events, _ := newTestService(t)

	format := Format{Quality: "720p", Type: "video", Ext: "mp4", URL: media.URL}
	if _, err := svc.StartDownload(context.Background(), "dup1", format, "First"); err != nil {
		t.Fatalf("first StartDownload failed: %v", err)
	}
	waitForEvent(t, events, EventStart)

	if _, err := svc.StartDownload(context.Background(), "dup1", format, "Second"); err != ErrAlreadyDownloading {
		t.Fatalf("expected ErrAlreadyDownloading, got %v", err)
	}

	if n := len(svc.ActiveDownloads()); n != 1 {
		t.Errorf("expected exactly 1 live session, got %d", n)
	}
}

func TestCancelPausedEmitsOneCancelledEvent(t *testing.T) {
	payload := testPayload(256 * 1024)
	rs := &rangeServer{payload: payload, chunkSize: 8 * 1024, delay: 15 * time.Millisecond}
	media := httptest.NewServer(rs)
	defer media.Close()

	svc, _, events, _ := newTestService(t)

	format := Format{Quality: "480p", Type: "video", Ext: "mp4", URL: media.URL}
	item, err := svc.StartDownload(context.Background(), "vid789", format, "Cancel Me")
	if err != nil {
		t.Fatalf("StartDownload failed: %v", err)
	}

	waitForEvent(t, events, EventProgress)
	if err := svc.Pause(item.ID); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	waitForEvent(t, events, EventPaused)

	if err := svc.Cancel(item.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	ev := waitForEvent(t, events, EventCancelled)
	if ev.ActiveCount != 0 {
		t.Errorf("cancelled event should report 0 active sessions, got %d", ev.ActiveCount)
	}
	if n := len(svc.ActiveDownloads()); n != 0 {
		t.Errorf("registry should be empty after cancel, got %d entries", n)
	}

	// No second cancelled event may trail in.
	select {
	case ev := <-events:
		if ev.Type == EventCancelled {
			t.Error("got a second cancelled event")
		}
	case <-time.After(300 * time.Millisecond):
	}
}

func TestTransferErrorDropsSession(t *testing.T) {
	// Announce more bytes than we send, then drop the connection.
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "65536")
		w.WriteHeader(http.StatusOK)
		w.Write(testPayload(1024))
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		panic(http.ErrAbortHandler)
	}))
	defer media.Close()

	svc, lib, events, _ := newTestService(t)

	format := Format{Quality: "720p", Type: "video", Ext: "mp4", URL: media.URL}
	if _, err := svc.StartDownload(context.Background(), "broken", format, "Broken"); err != nil {
		t.Fatalf("StartDownload failed: %v", err)
	}

	ev := waitForEvent(t, events, EventError)
	if ev.Error == "" {
		t.Error("error event should carry a message")
	}
	if n := len(svc.ActiveDownloads()); n != 0 {
		t.Errorf("errored session should be dropped, got %d live", n)
	}
	if lib.count() != 0 {
		t.Error("errored download must not reach the library")
	}
}

func TestStartFallsBackToVideoIDTitle(t *testing.T) {
	payload := testPayload(8 * 1024)
	rs := &rangeServer{payload: payload, chunkSize: 8 * 1024, delay: 0}
	media := httptest.NewServer(rs)
	defer media.Close()

	badResolver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer badResolver.Close()

	notifier := NewNotifier()
	_, events := notifier.Subscribe()
	svc := NewService(notifier, NewFormatClient(badResolver.URL), &fakeLibrary{}, t.TempDir())

	format := Format{Quality: "128kbps", Type: "audio", Ext: "m4a", URL: media.URL}
	item, err := svc.StartDownload(context.Background(), "fallback1", format, "")
	if err != nil {
		t.Fatalf("StartDownload failed: %v", err)
	}
	if item.Title != "fallback1" {
		t.Errorf("expected title to fall back to video id, got %q", item.Title)
	}
	waitForEvent(t, events, EventComplete)
}

func TestPauseInvalidStates(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if err := svc.Pause("missing"); err != ErrSessionNotFound {
		t.Errorf("Pause on unknown id: got %v, want ErrSessionNotFound", err)
	}
	if err := svc.Resume("missing"); err != ErrSessionNotFound {
		t.Errorf("Resume on unknown id: got %v, want ErrSessionNotFound", err)
	}
	if err := svc.Cancel("missing"); err != ErrSessionNotFound {
		t.Errorf("Cancel on unknown id: got %v, want ErrSessionNotFound", err)
	}
}
