package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/bogem/id3v2"

	"kvtube/kvtube-backend/utils"
)

const (
	readBufSize      = 32 * 1024
	speedSampleEvery = 500 * time.Millisecond
	speedWindowSize  = 5
)

// errStaleLoop means another loop took over this session (resume happened
// before we noticed the abort). The stale loop must exit without a trace.
var errStaleLoop = errors.New("stale transfer loop")

var contentRangeTotal = regexp.MustCompile(`/(\d+)$`)

// sampler keeps the sliding window of instantaneous speed measurements.
// Speed is recomputed at most once per 500ms so the numbers don't jitter
// with every chunk.
type sampler struct {
	lastTime  time.Time
	lastBytes int64
	samples   []float64
}

func newSampler(received int64) *sampler {
	return &sampler{
		lastTime:  time.Now(),
		lastBytes: received,
	}
}

// tick reports the mean of the sample window, or ok=false when the 500ms
// interval has not elapsed yet.
func (sp *sampler) tick(received int64) (avg float64, ok bool) {
	elapsed := time.Since(sp.lastTime)
	if elapsed < speedSampleEvery {
		return 0, false
	}

	speed := float64(received-sp.lastBytes) / elapsed.Seconds()
	sp.samples = append(sp.samples, speed)
	if len(sp.samples) > speedWindowSize {
		sp.samples = sp.samples[1:]
	}

	var sum float64
	for _, v := range sp.samples {
		sum += v
	}
	sp.lastTime = time.Now()
	sp.lastBytes = received

	return sum / float64(len(sp.samples)), true
}

// transfer is one run of the streaming fetch loop for a session. A paused
// session gets a fresh run on resume, continuing at the received offset.
func (s *Service) transfer(ctx context.Context, id string, gen int) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || sess.gen != gen {
		s.mu.Unlock()
		return
	}
	srcURL := sess.item.Specs.URL
	received := sess.received
	s.mu.Unlock()

	err := s.runTransfer(ctx, id, gen, srcURL, received)
	if err != nil {
		s.classifyFailure(ctx, id, gen, err)
		return
	}
	s.complete(id, gen)
}

func (s *Service) runTransfer(ctx context.Context, id string, gen int, srcURL string, received int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", utils.BrowserUA)
	if received > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", received))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	if err := s.resolveTotal(id, gen, received, resp); err != nil {
		return err
	}

	samp := newSampler(received)
	buf := make([]byte, readBufSize)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if appendErr := s.appendChunk(id, gen, buf[:n], samp); appendErr != nil {
				return appendErr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// resolveTotal pins down the expected byte count on the first response of a
// session: content-range's trailing "/<total>" wins, then content-length
// plus the bytes we already hold, then the size the resolver reported.
func (s *Service) resolveTotal(id string, gen int, received int64, resp *http.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.gen != gen {
		return errStaleLoop
	}
	if sess.total != 0 {
		return nil
	}

	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if m := contentRangeTotal.FindStringSubmatch(cr); m != nil {
			if total, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				sess.total = total
			}
		}
	} else if resp.ContentLength > 0 {
		sess.total = received + resp.ContentLength
	}

	if sess.total == 0 && sess.item.SizeBytes > 0 {
		sess.total = sess.item.SizeBytes
	}
	return nil
}

// appendChunk records one body chunk and publishes a progress event. The
// chunk is copied because the read buffer is reused.
func (s *Service) appendChunk(id string, gen int, data []byte, samp *sampler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.gen != gen {
		return errStaleLoop
	}

	chunk := make([]byte, len(data))
	copy(chunk, data)
	sess.chunks = append(sess.chunks, chunk)
	sess.received += int64(len(chunk))

	if avg, ok := samp.tick(sess.received); ok {
		sess.item.Speed = avg
		sess.item.SpeedDisplay = utils.FormatSpeed(avg)
		if avg > 0 && sess.total > 0 {
			sess.item.ETA = utils.FormatTime(float64(sess.total-sess.received) / avg)
		} else {
			sess.item.ETA = "--:--"
		}
	}

	progress := 0
	if sess.total > 0 {
		progress = int(math.Round(float64(sess.received) / float64(sess.total) * 100))
	}
	sess.item.Progress = progress

	s.publishLocked(Event{
		Type:       EventProgress,
		DownloadID: id,
		Progress:   progress,
		Received:   sess.received,
		Total:      sess.total,
		Speed:      sess.item.Speed,
		ETA:        sess.item.ETA,
	})
	return nil
}

// complete assembles the accumulated chunks into the final file, commits the
// item to the library and drops the session.
func (s *Service) complete(id string, gen int) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || sess.gen != gen {
		s.mu.Unlock()
		return
	}
	chunks := sess.chunks
	item := sess.item
	s.mu.Unlock()

	filename := utils.SanitizeFilename(fmt.Sprintf("%s_%s.%s", item.Title, item.Quality, item.Ext))
	path := filepath.Join(s.dir, filename)

	if err := writeChunks(path, chunks); err != nil {
		s.classifyFailure(context.Background(), id, gen, fmt.Errorf("save file: %w", err))
		return
	}
	s.tagAudio(path, item)

	s.mu.Lock()
	sess, ok = s.sessions[id]
	if !ok || sess.gen != gen {
		s.mu.Unlock()
		return
	}
	sess.item.Status = StatusCompleted
	sess.item.Progress = 100
	sess.item.ETA = "Done"
	item = sess.item
	s.publishLocked(Event{Type: EventComplete, DownloadID: id, Item: &item})
	delete(s.sessions, id)
	s.mu.Unlock()

	if err := s.library.AddDownload(context.Background(), item); err != nil {
		log.Printf("[Downloader] Failed to save %s to library: %v", id, err)
	}
	log.Printf("[Downloader] Completed %s -> %s", id, path)
}

func writeChunks(path string, chunks [][]byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if _, err := f.Write(chunk); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// tagAudio stamps an ID3 title frame on finished mp3 downloads so players
// show something better than the raw filename. Failures only log.
func (s *Service) tagAudio(path string, item DownloadItem) {
	if item.Type != "audio" || item.Ext != "mp3" {
		return
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		log.Printf("[Downloader] Could not open %s for tagging: %v", path, err)
		return
	}
	defer tag.Close()

	tag.SetTitle(item.Title)
	if err := tag.Save(); err != nil {
		log.Printf("[Downloader] Could not tag %s: %v", path, err)
	}
}

// classifyFailure tells apart "stopped because paused", "stopped because
// cancelled" and "stopped because broken". The abort signal itself carries
// no reason, so the decision reads the status recorded on the session.
func (s *Service) classifyFailure(ctx context.Context, id string, gen int, err error) {
	if errors.Is(err, errStaleLoop) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.gen != gen {
		// Cancel already dropped the session and emitted its event.
		return
	}

	aborted := errors.Is(err, context.Canceled) || ctx.Err() != nil
	if aborted {
		if sess.item.Status == StatusPaused {
			log.Printf("[Downloader] Paused %s at byte %d", id, sess.received)
			s.publishLocked(Event{Type: EventPaused, DownloadID: id})
			return
		}
		delete(s.sessions, id)
		s.publishLocked(Event{Type: EventCancelled, DownloadID: id})
		return
	}

	log.Printf("[Downloader] ERROR %s: %v", id, err)
	sess.item.Status = StatusError
	s.publishLocked(Event{Type: EventError, DownloadID: id, Error: err.Error()})
	delete(s.sessions, id)
}
