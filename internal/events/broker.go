package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const subscriberBufSize = 64

// Feed names published by the resource managers.
const (
	FeedStreamStarted   = "stream.started"
	FeedStreamStopped   = "stream.stopped"
	FeedStreamCrashed   = "stream.crashed"
	FeedBrowserLaunched = "browser.launched"
	FeedBrowserReleased = "browser.released"
)

// Event is one lifecycle notification fanned out to subscribers.
type Event struct {
	Feed    string    `json:"feed"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Broker fans out resource lifecycle events to all subscribed clients.
// Publishing never blocks; slow consumers have events dropped.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      atomic.Int64
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int64]chan Event)}
}

// Subscribe registers a new client and returns its ID and receive channel.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id := b.nextID.Add(1)
	ch := make(chan Event, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers.
func (b *Broker) Publish(feed string, payload any) {
	evt := Event{Feed: feed, At: time.Now(), Payload: payload}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

func marshalEvent(evt Event) ([]byte, bool) {
	data, err := json.Marshal(evt)
	if err != nil {
		slog.Debug("event marshal failed", "feed", evt.Feed, "error", err)
		return nil, false
	}
	return data, true
}
