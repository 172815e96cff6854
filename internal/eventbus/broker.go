package eventbus

import (
	"context"
	"sync"

	"github.com/Kilat-Pet-Delivery/service-album/internal/kafka"
	"go.uber.org/zap"
)

// Broker fans events out to in-process subscribers such as the server-sent event stream.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]chan kafka.CloudEvent
	nextID int
	closed bool
	logger *zap.Logger
}

func NewBroker(logger *zap.Logger) *Broker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broker{
		subs:   make(map[int]chan kafka.CloudEvent),
		logger: logger.Named("broker"),
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it and closes
// the channel; it is safe to call more than once.
func (b *Broker) Subscribe(buffer int) (<-chan kafka.CloudEvent, func()) {
	ch := make(chan kafka.CloudEvent, max(buffer, 1))

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish implements Publisher.
func (b *Broker) Publish(_ context.Context, _, _ string, evt kafka.CloudEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.logger.Warn("subscriber is lagging, event dropped",
				zap.Int("subscriber", id),
				zap.String("event_type", evt.Type),
			)
		}
	}
	return nil
}

// Subscribers returns the number of registered subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unregisters every subscriber. Later subscriptions receive a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
