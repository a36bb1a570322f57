package classifier_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/classifier"
	"github.com/xraph/capture/lifecycle"
	"github.com/xraph/capture/stream"
)

// eventLog records emitted lifecycle events.
type eventLog struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (l *eventLog) emit(_ context.Context, evt lifecycle.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
}

func (l *eventLog) statuses() []lifecycle.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]lifecycle.Status, len(l.events))
	for i, e := range l.events {
		out[i] = e.Status
	}
	return out
}

func (l *eventLog) last() lifecycle.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func returning(s stream.Stream) classifier.NextFunc {
	return func(context.Context, any, action.Action) stream.Stream { return s }
}

func assertStatuses(t *testing.T, got []lifecycle.Status, want ...lifecycle.Status) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestHandle_Classification(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		src  stream.Stream
		want lifecycle.Status
	}{
		{"value then complete", stream.Just("s1"), lifecycle.Successful},
		{"complete without value", stream.Empty(), lifecycle.Canceled},
		{"error", stream.Fail(boom), lifecycle.Errored},
		{"value then error", stream.Func(func(o stream.Observer) {
			o.Next("partial")
			o.Error(boom)
		}), lifecycle.Errored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &eventLog{}
			c := classifier.New(log.emit)

			out := c.Handle(context.Background(), nil, action.New("Load", nil), returning(tt.src))
			out.Subscribe(stream.Observer{})

			assertStatuses(t, log.statuses(), lifecycle.Dispatched, tt.want)
		})
	}
}

func TestHandle_SuccessfulCarriesLastValue(t *testing.T) {
	log := &eventLog{}
	c := classifier.New(log.emit)

	src := stream.Func(func(o stream.Observer) {
		o.Next("s1")
		o.Next("s2")
		o.Complete()
	})
	c.Handle(context.Background(), nil, action.New("Load", nil), returning(src)).Subscribe(stream.Observer{})

	if got := log.last().Snapshot; got != "s2" {
		t.Fatalf("expected snapshot s2, got %v", got)
	}
}

func TestHandle_ErroredCarriesError(t *testing.T) {
	log := &eventLog{}
	c := classifier.New(log.emit)
	want := errors.New("handler failed")

	c.Handle(context.Background(), nil, action.New("Load", nil), returning(stream.Fail(want))).
		Subscribe(stream.Observer{})

	evt := log.last()
	if !errors.Is(evt.Err, want) {
		t.Fatalf("expected %v, got %v", want, evt.Err)
	}
	if evt.Snapshot != nil {
		t.Errorf("expected nil snapshot, got %v", evt.Snapshot)
	}
}

func TestHandle_DispatchedBeforeSubscribe(t *testing.T) {
	log := &eventLog{}
	c := classifier.New(log.emit)

	out := c.Handle(context.Background(), "s0", action.New("Load", nil), returning(stream.Never()))
	assertStatuses(t, log.statuses(), lifecycle.Dispatched)

	if log.last().Snapshot != nil {
		t.Error("dispatched event must not carry a snapshot")
	}
	out.Subscribe(stream.Observer{})
	assertStatuses(t, log.statuses(), lifecycle.Dispatched)
}

func TestHandle_DownstreamSeesSignalsUnchanged(t *testing.T) {
	c := classifier.New(nil)
	want := errors.New("boom")

	var got []any
	var gotErr error
	src := stream.Func(func(o stream.Observer) {
		o.Next("a")
		o.Error(want)
	})
	c.Handle(context.Background(), nil, action.New("Load", nil), returning(src)).Subscribe(stream.Observer{
		Next:  func(v any) { got = append(got, v) },
		Error: func(err error) { gotErr = err },
	})

	if len(got) != 1 || got[0] != "a" {
		t.Errorf("expected [a], got %v", got)
	}
	if !errors.Is(gotErr, want) {
		t.Errorf("expected %v, got %v", want, gotErr)
	}
}

func TestHandle_TerminalEventExactlyOnce(t *testing.T) {
	log := &eventLog{}
	c := classifier.New(log.emit)

	// A misbehaving stream that signals two terminals.
	src := stream.Func(func(o stream.Observer) {
		o.Next("s1")
		o.Complete()
		o.Error(errors.New("late"))
		o.Complete()
	})
	out := c.Handle(context.Background(), nil, action.New("Load", nil), returning(src))

	completes := 0
	out.Subscribe(stream.Observer{Complete: func() { completes++ }})
	out.Subscribe(stream.Observer{})

	assertStatuses(t, log.statuses(), lifecycle.Dispatched, lifecycle.Successful)
	if completes != 2 {
		t.Errorf("downstream should still see every signal, got %d completes", completes)
	}
}

func TestHandle_ElapsedMeasuredFromDispatch(t *testing.T) {
	log := &eventLog{}
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	c := classifier.New(log.emit, classifier.WithClock(clock))

	subj := stream.NewSubject()
	out := c.Handle(context.Background(), nil, action.New("Load", nil), returning(subj))
	out.Subscribe(stream.Observer{})

	now = now.Add(250 * time.Millisecond)
	subj.Next("s1")
	subj.Complete()

	if got := log.last().Elapsed; got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", got)
	}
}

func TestHandle_EmitPanicIsContained(t *testing.T) {
	c := classifier.New(func(context.Context, lifecycle.Event) { panic("sink exploded") })

	var completed bool
	out := c.Handle(context.Background(), nil, action.New("Load", nil), returning(stream.Just("s1")))
	out.Subscribe(stream.Observer{Complete: func() { completed = true }})

	if !completed {
		t.Fatal("pipeline stream must complete even when emit panics")
	}
}

func TestHandle_NilStreamReportsErrored(t *testing.T) {
	log := &eventLog{}
	c := classifier.New(log.emit)

	out := c.Handle(context.Background(), nil, action.New("Load", nil), returning(nil))
	if out != nil {
		t.Fatalf("expected nil stream, got %v", out)
	}
	assertStatuses(t, log.statuses(), lifecycle.Dispatched, lifecycle.Errored)
	if err := log.last().Err; !errors.Is(err, classifier.ErrNoResult) {
		t.Errorf("expected ErrNoResult, got %v", err)
	}
}
