package downloader

import (
	"sync"

	"github.com/google/uuid"
)

type EventType string

const (
	EventStart     EventType = "start"
	EventProgress  EventType = "progress"
	EventPaused    EventType = "paused"
	EventCancelled EventType = "cancelled"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
)

// Event is one lifecycle announcement. Every event carries a snapshot of all
// active downloads so listeners never have to query back.
type Event struct {
	Type        EventType      `json:"type"`
	DownloadID  string         `json:"downloadId,omitempty"`
	ActiveCount int            `json:"activeCount"`
	Downloads   []DownloadItem `json:"downloads"`
	Item        *DownloadItem  `json:"item,omitempty"`
	Progress    int            `json:"progress,omitempty"`
	Received    int64          `json:"received,omitempty"`
	Total       int64          `json:"total,omitempty"`
	Speed       float64        `json:"speed,omitempty"`
	ETA         string         `json:"eta,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Notifier fans events out to subscribers. Delivery is fire-and-forget: a
// subscriber whose channel is full misses that event, and nothing is
// replayed to late subscribers.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]chan Event
}

func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[string]chan Event),
	}
}

// Subscribe registers a listener and returns its id plus the event channel.
func (n *Notifier) Subscribe() (string, <-chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, 64)
	n.subs[id] = ch
	return id, ch
}

func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
}

func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			// slow listener, drop
		}
	}
}
