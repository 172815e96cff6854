package eventbus_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-album/internal/eventbus"
	"github.com/Kilat-Pet-Delivery/service-album/internal/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	topics []string
	keys   []string
	events []kafka.CloudEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, evt kafka.CloudEvent) error {
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	p.events = append(p.events, evt)
	return p.err
}

func newEvent(t *testing.T, eventType string) kafka.CloudEvent {
	t.Helper()
	evt, err := kafka.NewCloudEvent(eventbus.Source, eventType, map[string]string{"k": "v"})
	require.NoError(t, err)
	return evt
}

func TestBroker_FansOutToEverySubscriber(t *testing.T) {
	b := eventbus.NewBroker(zap.NewNop())
	defer b.Close()

	a, cancelA := b.Subscribe(4)
	defer cancelA()
	c, cancelC := b.Subscribe(4)
	defer cancelC()
	assert.Equal(t, 2, b.Subscribers())

	evt := newEvent(t, eventbus.LocationCreated)
	require.NoError(t, b.Publish(context.Background(), eventbus.TopicAlbumEvents, "k", evt))

	assert.Equal(t, evt.ID, (<-a).ID)
	assert.Equal(t, evt.ID, (<-c).ID)
}

func TestBroker_DropsForLaggingSubscriber(t *testing.T) {
	b := eventbus.NewBroker(nil)
	defer b.Close()

	ch, cancel := b.Subscribe(1)
	defer cancel()

	first := newEvent(t, eventbus.PhotoHydrated)
	require.NoError(t, b.Publish(context.Background(), "", "", first))
	require.NoError(t, b.Publish(context.Background(), "", "", newEvent(t, eventbus.PhotoHydrated)))

	assert.Equal(t, first.ID, (<-ch).ID)
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %s", evt.ID)
	default:
	}
}

func TestBroker_CancelAndClose(t *testing.T) {
	b := eventbus.NewBroker(zap.NewNop())

	ch, cancel := b.Subscribe(1)
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, b.Subscribers())

	live, liveCancel := b.Subscribe(1)
	b.Close()
	_, open = <-live
	assert.False(t, open)
	liveCancel()

	late, _ := b.Subscribe(1)
	_, open = <-late
	assert.False(t, open, "subscriptions after close are already closed")
}

func TestMultiPublisher_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: boom}

	err := eventbus.MultiPublisher{failing, ok}.Publish(context.Background(), "t", "k", newEvent(t, eventbus.PhotosRemoved))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.events, 1, "later publishers still run")
	assert.NoError(t, eventbus.MultiPublisher{ok}.Publish(context.Background(), "t", "k", newEvent(t, eventbus.PhotosRemoved)))
}

func TestEmitter_BuildsEnvelope(t *testing.T) {
	rec := &recordingPublisher{}
	e := eventbus.NewEmitter(rec, zap.NewNop())

	locationID := uuid.New()
	e.Emit(context.Background(), eventbus.LocationCreated, locationID.String(), eventbus.LocationCreatedEvent{
		LocationID: locationID,
		Latitude:   1.5,
		Longitude:  2.5,
		OccurredAt: time.Now().UTC(),
	})

	require.Len(t, rec.events, 1)
	assert.Equal(t, eventbus.TopicAlbumEvents, rec.topics[0])
	assert.Equal(t, locationID.String(), rec.keys[0])

	evt := rec.events[0]
	assert.Equal(t, kafka.SpecVersion, evt.SpecVersion)
	assert.Equal(t, eventbus.Source, evt.Source)
	assert.Equal(t, eventbus.LocationCreated, evt.Type)
	assert.Equal(t, locationID.String(), evt.Subject)

	var data eventbus.LocationCreatedEvent
	require.NoError(t, evt.ParseData(&data))
	assert.Equal(t, locationID, data.LocationID)
	assert.Equal(t, 2.5, data.Longitude)
}

func TestEmitter_SwallowsFailures(t *testing.T) {
	e := eventbus.NewEmitter(&recordingPublisher{err: errors.New("down")}, nil)
	assert.NotPanics(t, func() {
		e.Emit(context.Background(), eventbus.ViewportUpdated, "default", struct{}{})
		e.Emit(context.Background(), eventbus.ViewportUpdated, "default", func() {})
	})

	var nilEmitter *eventbus.Emitter
	assert.NotPanics(t, func() {
		nilEmitter.Emit(context.Background(), eventbus.ViewportUpdated, "default", struct{}{})
		eventbus.NewEmitter(nil, nil).Emit(context.Background(), eventbus.ViewportUpdated, "default", struct{}{})
	})
}

// gatedWriter holds every write until release is closed or the write deadline passes.
type gatedWriter struct {
	release chan struct{}

	mu        sync.Mutex
	topics    []string
	ids       []string
	deadlines int
	failures  int
}

func (w *gatedWriter) PublishEvent(ctx context.Context, topic, _ string, evt kafka.CloudEvent) error {
	w.mu.Lock()
	if _, ok := ctx.Deadline(); ok {
		w.deadlines++
	}
	w.mu.Unlock()

	select {
	case <-w.release:
	case <-ctx.Done():
		w.mu.Lock()
		w.failures++
		w.mu.Unlock()
		return ctx.Err()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.topics = append(w.topics, topic)
	w.ids = append(w.ids, evt.ID)
	return nil
}

func TestKafkaPublisher_PublishDoesNotWaitForWriter(t *testing.T) {
	w := &gatedWriter{release: make(chan struct{})}
	p := eventbus.NewKafkaPublisher(w, eventbus.KafkaPublisherConfig{Topic: "album.events.renamed"}, zap.NewNop())

	var want []string
	published := make(chan struct{})
	events := []kafka.CloudEvent{
		newEvent(t, eventbus.PhotosReplaced),
		newEvent(t, eventbus.PhotoHydrated),
		newEvent(t, eventbus.RefreshCompleted),
	}
	go func() {
		defer close(published)
		for _, evt := range events {
			assert.NoError(t, p.Publish(context.Background(), eventbus.TopicAlbumEvents, "loc", evt))
		}
	}()
	for _, evt := range events {
		want = append(want, evt.ID)
	}

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on the writer")
	}

	close(w.release)
	p.Close()

	assert.Equal(t, want, w.ids)
	assert.Equal(t, []string{"album.events.renamed", "album.events.renamed", "album.events.renamed"}, w.topics)
	assert.ErrorIs(t, p.Publish(context.Background(), "t", "k", newEvent(t, eventbus.PhotosReplaced)), eventbus.ErrPublisherClosed)
}

func TestKafkaPublisher_BoundsEachWrite(t *testing.T) {
	w := &gatedWriter{release: make(chan struct{})}
	p := eventbus.NewKafkaPublisher(w, eventbus.KafkaPublisherConfig{WriteTimeout: 20 * time.Millisecond}, nil)

	require.NoError(t, p.Publish(context.Background(), "t", "k", newEvent(t, eventbus.PhotoHydrated)))
	require.NoError(t, p.Publish(context.Background(), "t", "k", newEvent(t, eventbus.PhotoHydrated)))

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close waited on a stuck writer")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Equal(t, 2, w.deadlines)
	assert.Equal(t, 2, w.failures)
	assert.Empty(t, w.ids)
}

func TestKafkaPublisher_DropsWhenQueueIsFull(t *testing.T) {
	w := &gatedWriter{release: make(chan struct{})}
	p := eventbus.NewKafkaPublisher(w, eventbus.KafkaPublisherConfig{QueueSize: 1}, zap.NewNop())

	// At most one event is being written and one is queued.
	var full int
	for i := 0; i < 3; i++ {
		if err := p.Publish(context.Background(), "t", "k", newEvent(t, eventbus.PhotoHydrated)); err != nil {
			assert.ErrorIs(t, err, eventbus.ErrPublishQueueFull)
			full++
		}
	}
	assert.GreaterOrEqual(t, full, 1)

	close(w.release)
	p.Close()
	assert.Len(t, w.ids, 3-full)
}
