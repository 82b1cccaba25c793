// Package broadcast fans out pipeline events to downstream collaborators
// (a dashboard, an external API server) without letting a slow or dead
// subscriber block the ingest pipeline.
package broadcast

import (
	"sync"
	"time"

	"github.com/solroute-labs/pricemonitor/internal/models"
	"go.uber.org/atomic"
)

// MessageKind tags the variant carried by a Message, mirroring the
// external API contract's tagged-union wire shape.
type MessageKind string

const (
	KindPriceUpdate   MessageKind = "price"
	KindOpportunity   MessageKind = "opportunity"
	KindSystemMetrics MessageKind = "metrics"
)

// PriceUpdate is the payload for a KindPriceUpdate message.
type PriceUpdate struct {
	Pair  string    `json:"pair"`
	Venue string    `json:"venue"`
	Price float64   `json:"price"`
	Slot  uint64    `json:"slot"`
	At    time.Time `json:"at"`
}

// SystemMetrics is the payload for a KindSystemMetrics message.
type SystemMetrics struct {
	EventsPerSecond uint64 `json:"events_per_second"`
	CacheEntries    int    `json:"cache_entries"`
}

// Message is one envelope on the topic. Exactly one of the payload fields
// is populated, selected by Kind.
type Message struct {
	Kind        MessageKind
	Price       PriceUpdate
	Opportunity models.Opportunity
	Metrics     SystemMetrics
}

// Topic is a lossy, non-blocking multi-producer/multi-consumer fan-out.
// A subscriber that falls behind simply misses messages; it never slows
// down the pipeline that's publishing them.
type Topic struct {
	mu          sync.RWMutex
	subscribers []chan Message

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewTopic creates an empty Topic.
func NewTopic() *Topic {
	return &Topic{}
}

// Subscribe returns a channel that receives future published messages.
// The channel has a small buffer so a subscriber that's briefly slower
// than the publisher doesn't drop its very next message.
func (t *Topic) Subscribe(buffer int) chan Message {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Message, buffer)
	t.mu.Lock()
	t.subscribers = append(t.subscribers, ch)
	t.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (t *Topic) Unsubscribe(ch chan Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, sub := range t.subscribers {
		if sub == ch {
			t.subscribers = append(t.subscribers[:i], t.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish fans msg out to every current subscriber. Publishing never
// blocks: a subscriber whose buffer is full has the message dropped for
// it and the drop counter incremented.
func (t *Topic) Publish(msg Message) {
	t.mu.RLock()
	subs := make([]chan Message, len(t.subscribers))
	copy(subs, t.subscribers)
	t.mu.RUnlock()

	t.published.Inc()
	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			t.dropped.Inc()
		}
	}
}

// PublishPrice is a convenience wrapper for the common price-update case.
func (t *Topic) PublishPrice(pair, venue string, data models.PriceData) {
	t.Publish(Message{
		Kind: KindPriceUpdate,
		Price: PriceUpdate{
			Pair:  pair,
			Venue: venue,
			Price: data.Price,
			Slot:  data.Slot,
			At:    data.ObservedAt,
		},
	})
}

// PublishOpportunity is a convenience wrapper for detector findings.
func (t *Topic) PublishOpportunity(opp models.Opportunity) {
	t.Publish(Message{Kind: KindOpportunity, Opportunity: opp})
}

// PublishMetrics is a convenience wrapper for periodic system metrics.
func (t *Topic) PublishMetrics(m SystemMetrics) {
	t.Publish(Message{Kind: KindSystemMetrics, Metrics: m})
}

// Stats reports lifetime publish/drop counters, for the health snapshot.
func (t *Topic) Stats() (published, dropped uint64) {
	return t.published.Load(), t.dropped.Load()
}

// SubscriberCount returns the current number of live subscribers.
func (t *Topic) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscribers)
}
