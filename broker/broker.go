package broker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/xraph/capture/lifecycle"
)

// Compile-time interface checks.
var (
	_ lifecycle.Hook     = (*Broker)(nil)
	_ lifecycle.Observer = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// Broker is a lifecycle hook that publishes every event to topic
// subscribers.
type Broker struct {
	topics *topicRegistry
	logger *slog.Logger

	subscribers sync.Map // subscriberID → *Subscriber

	totalPublished atomic.Int64
	totalDropped   atomic.Int64

	bufferSize int
}

// Option configures a Broker.
type Option func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// New creates a broker.
func New(logger *slog.Logger, opts ...Option) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broker{
		topics:     newTopicRegistry(),
		logger:     logger,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements lifecycle.Hook.
func (b *Broker) Name() string { return "capture-broker" }

// Subscribe creates a subscriber on topics. An existing subscriber with
// the same ID is replaced and closed.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	sub := newSubscriber(subscriberID, b.bufferSize)
	if prev, loaded := b.subscribers.Swap(subscriberID, sub); loaded {
		b.topics.unsubscribeAll(subscriberID)
		prev.(*Subscriber).close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
	for _, topic := range topics {
		b.topics.subscribe(topic, sub)
	}
	return sub
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.unsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// Stats contains broker counters.
type Stats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
	TotalDropped    int64 `json:"total_dropped"`
}

// Stats returns broker statistics.
func (b *Broker) Stats() Stats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return Stats{
		TopicCount:      b.topics.count(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
		TotalDropped:    b.totalDropped.Load(),
	}
}

// OnEvent implements lifecycle.Observer.
func (b *Broker) OnEvent(_ context.Context, evt lifecycle.Event) error {
	e := newEvent(evt)
	topics := []string{TopicFirehose, StatusTopic(evt.Status), e.Topic}
	delivered, dropped := b.topics.broadcast(topics, e)
	b.totalPublished.Add(int64(delivered))
	b.totalDropped.Add(int64(dropped))
	return nil
}

// Close closes every subscriber. It has the signature of
// store.Store.OnClose callbacks.
func (b *Broker) Close(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		sub := value.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
		b.topics.unsubscribeAll(sub.ID())
		sub.close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("capture broker shut down")
	return nil
}
