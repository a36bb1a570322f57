package broker_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/broker"
	"github.com/xraph/capture/lifecycle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func publish(t *testing.T, b *broker.Broker, status lifecycle.Status, name string, err error) {
	t.Helper()
	evt := lifecycle.Event{Status: status, Action: action.New(name, nil), Err: err}
	if err := b.OnEvent(context.Background(), evt); err != nil {
		t.Fatalf("OnEvent: %v", err)
	}
}

func receive(t *testing.T, sub *broker.Subscriber) *broker.Event {
	t.Helper()
	select {
	case evt := <-sub.C():
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func expectEmpty(t *testing.T, sub *broker.Subscriber) {
	t.Helper()
	select {
	case evt := <-sub.C():
		t.Fatalf("unexpected event %q", evt.Label)
	default:
	}
}

func TestBroker_SubscribeAndPublish(t *testing.T) {
	t.Parallel()

	b := broker.New(testLogger())
	sub := b.Subscribe("sub-1", broker.TopicFirehose)

	publish(t, b, lifecycle.Dispatched, "Load", nil)

	evt := receive(t, sub)
	if evt.Label != "Load (DISPATCHED)" {
		t.Errorf("Label = %q", evt.Label)
	}
	if evt.Topic != broker.ActionTopic("Load") {
		t.Errorf("Topic = %q", evt.Topic)
	}
}

func TestBroker_Topics(t *testing.T) {
	t.Parallel()

	b := broker.New(testLogger())
	firehose := b.Subscribe("firehose", broker.TopicFirehose)
	errored := b.Subscribe("errored", broker.StatusTopic(lifecycle.Errored))
	save := b.Subscribe("save", broker.ActionTopic("Save"))

	publish(t, b, lifecycle.Dispatched, "Load", nil)
	publish(t, b, lifecycle.Errored, "Load", errors.New("boom"))

	if got := receive(t, firehose).Label; got != "Load (DISPATCHED)" {
		t.Errorf("firehose first = %q", got)
	}
	if got := receive(t, firehose).Label; got != "Load (ERRORED)" {
		t.Errorf("firehose second = %q", got)
	}

	evt := receive(t, errored)
	if evt.Error != "boom" || evt.Status != lifecycle.Errored {
		t.Errorf("unexpected errored event %+v", evt)
	}
	expectEmpty(t, errored)
	expectEmpty(t, save)
}

func TestBroker_DeduplicatesAcrossTopics(t *testing.T) {
	t.Parallel()

	b := broker.New(testLogger())
	sub := b.Subscribe("sub", broker.TopicFirehose, broker.ActionTopic("Load"), broker.StatusTopic(lifecycle.Successful))

	publish(t, b, lifecycle.Successful, "Load", nil)

	receive(t, sub)
	expectEmpty(t, sub)
	if got := b.Stats().TotalPublished; got != 1 {
		t.Errorf("TotalPublished = %d, want 1", got)
	}
}

func TestBroker_FullBufferDrops(t *testing.T) {
	t.Parallel()

	b := broker.New(testLogger(), broker.WithBufferSize(1))
	sub := b.Subscribe("slow", broker.TopicFirehose)

	publish(t, b, lifecycle.Dispatched, "Load", nil)
	publish(t, b, lifecycle.Successful, "Load", nil)

	if sub.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", sub.Dropped())
	}
	stats := b.Stats()
	if stats.TotalPublished != 1 || stats.TotalDropped != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if got := receive(t, sub).Label; got != "Load (DISPATCHED)" {
		t.Errorf("kept the wrong event: %q", got)
	}
}

func TestBroker_Filter(t *testing.T) {
	t.Parallel()

	b := broker.New(testLogger())
	sub := b.Subscribe("terminal", broker.TopicFirehose)
	sub.SetFilter(func(e *broker.Event) bool { return e.Status.Terminal() })

	publish(t, b, lifecycle.Dispatched, "Load", nil)
	publish(t, b, lifecycle.Canceled, "Load", nil)

	if got := receive(t, sub).Label; got != "Load (CANCELED)" {
		t.Errorf("got %q", got)
	}
	expectEmpty(t, sub)
}

func TestBroker_UnsubscribeAndRemove(t *testing.T) {
	t.Parallel()

	b := broker.New(testLogger())
	sub := b.Subscribe("sub", broker.TopicFirehose, broker.ActionTopic("Load"))

	b.Unsubscribe("sub", broker.TopicFirehose)
	publish(t, b, lifecycle.Dispatched, "Save", nil)
	expectEmpty(t, sub)

	b.RemoveSubscriber("sub")
	if _, ok := <-sub.C(); ok {
		t.Fatal("expected channel to be closed")
	}
	if s := b.Stats(); s.SubscriberCount != 0 || s.TopicCount != 0 {
		t.Errorf("unexpected stats %+v", s)
	}

	// Publishing after removal must not panic.
	publish(t, b, lifecycle.Dispatched, "Load", nil)
}

func TestBroker_Close(t *testing.T) {
	t.Parallel()

	b := broker.New(testLogger())
	a := b.Subscribe("a", broker.TopicFirehose)
	c := b.Subscribe("c", broker.ActionTopic("Load"))

	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, sub := range []*broker.Subscriber{a, c} {
		if _, ok := <-sub.C(); ok {
			t.Errorf("subscriber %s not closed", sub.ID())
		}
	}
	publish(t, b, lifecycle.Dispatched, "Load", nil)
}

func TestValidateTopic(t *testing.T) {
	tests := []struct {
		topic string
		ok    bool
	}{
		{broker.TopicFirehose, true},
		{broker.ActionTopic("[Countries] Load countries"), true},
		{broker.StatusTopic(lifecycle.Canceled), true},
		{"status:PENDING", false},
		{"action:", false},
		{"job:123", false},
		{"nonsense", false},
	}
	for _, tt := range tests {
		err := broker.ValidateTopic(tt.topic)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateTopic(%q) = %v, want ok=%v", tt.topic, err, tt.ok)
		}
	}
}
