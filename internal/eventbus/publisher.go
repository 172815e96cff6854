package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/kafka"
	"go.uber.org/zap"
)

// Publisher delivers an event envelope to a topic. key groups events of one entity.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, evt kafka.CloudEvent) error
}

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// ErrPublishQueueFull is returned when the background writer has fallen behind.
var ErrPublishQueueFull = errors.New("publish queue full")

// EventWriter writes one event to a topic. *kafka.Producer satisfies it.
type EventWriter interface {
	PublishEvent(ctx context.Context, topic, key string, evt kafka.CloudEvent) error
}

// KafkaPublisherConfig tunes the background writer. Zero values take defaults.
type KafkaPublisherConfig struct {
	Topic        string
	QueueSize    int
	WriteTimeout time.Duration
}

type queuedEvent struct {
	topic string
	key   string
	evt   kafka.CloudEvent
}

// KafkaPublisher queues events for a single background writer, so Publish never waits
// on the brokers and events keep their order. Each write is bounded by WriteTimeout.
// A non-empty Topic overrides the one passed to Publish so deployments can rename the
// events topic.
type KafkaPublisher struct {
	writer  EventWriter
	cfg     KafkaPublisherConfig
	logger  *zap.Logger
	queue   chan queuedEvent
	stopped chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewKafkaPublisher(w EventWriter, cfg KafkaPublisherConfig, logger *zap.Logger) *KafkaPublisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &KafkaPublisher{
		writer:  w,
		cfg:     cfg,
		logger:  logger.Named("kafka-publisher"),
		queue:   make(chan queuedEvent, cfg.QueueSize),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues evt. ctx is unused; the write runs under its own deadline.
func (p *KafkaPublisher) Publish(_ context.Context, topic, key string, evt kafka.CloudEvent) error {
	if p.cfg.Topic != "" {
		topic = p.cfg.Topic
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- queuedEvent{topic: topic, key: key, evt: evt}:
		return nil
	default:
		return fmt.Errorf("dropped %s: %w", evt.Type, ErrPublishQueueFull)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.stopped)
	for q := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.WriteTimeout)
		err := p.writer.PublishEvent(ctx, q.topic, q.key, q.evt)
		cancel()
		if err != nil {
			p.logger.Warn("failed to write event",
				zap.String("topic", q.topic),
				zap.String("event_type", q.evt.Type),
				zap.String("event_id", q.evt.ID),
				zap.Error(err),
			)
		}
	}
}

// Close stops accepting events and waits until the queue has been written out.
func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.stopped
}

// MultiPublisher publishes to every wrapped publisher, collecting all failures.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, topic, key string, evt kafka.CloudEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, topic, key, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emitter builds envelopes and publishes them to TopicAlbumEvents. Failures are logged
// and never returned; change events are notifications, not part of the write.
type Emitter struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewEmitter creates an Emitter. A nil publisher discards everything.
func NewEmitter(publisher Publisher, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{publisher: publisher, logger: logger}
}

// Emit publishes data as an event of eventType keyed by key.
func (e *Emitter) Emit(ctx context.Context, eventType, key string, data interface{}) {
	if e == nil || e.publisher == nil {
		return
	}
	evt, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		e.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	evt.Subject = key

	if err := e.publisher.Publish(ctx, TopicAlbumEvents, key, evt); err != nil {
		e.logger.Error("failed to publish event",
			zap.String("topic", TopicAlbumEvents),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
