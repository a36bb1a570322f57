// Package broker fans lifecycle events out to in-process subscribers by
// topic, for live tails and dashboards.
//
// Every event is published to TopicFirehose, to the topic of its status
// and to the topic of its action name. Subscribers have a bounded buffer;
// an event that does not fit is dropped for that subscriber only.
package broker

import (
	"time"

	"github.com/xraph/capture/lifecycle"
)

// Event is the envelope sent to subscribers.
type Event struct {
	// Label is "<action> (<STATUS>)".
	Label string `json:"label"`

	Status   lifecycle.Status `json:"-"`
	Action   string           `json:"action"`
	ActionID string           `json:"action_id"`

	// Topic is the most specific topic the event was published on.
	Topic string `json:"topic"`

	Timestamp time.Time `json:"ts"`
	ElapsedMs int64     `json:"elapsed_ms,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func newEvent(evt lifecycle.Event) *Event {
	e := &Event{
		Label:     evt.Label(),
		Status:    evt.Status,
		Action:    evt.Action.Name,
		ActionID:  evt.Action.ID.String(),
		Topic:     ActionTopic(evt.Action.Name),
		Timestamp: time.Now().UTC(),
		ElapsedMs: evt.Elapsed.Milliseconds(),
	}
	if evt.Err != nil {
		e.Error = evt.Err.Error()
	}
	return e
}
