package broker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xraph/capture/lifecycle"
)

// Topic names follow a pattern:
//
//	action:<name>    events for one action type
//	status:<STATUS>  events with one lifecycle status
//	firehose         everything
const TopicFirehose = "firehose"

// ActionTopic returns the topic name for an action type.
func ActionTopic(name string) string { return "action:" + name }

// StatusTopic returns the topic name for a lifecycle status.
func StatusTopic(s lifecycle.Status) string { return "status:" + s.String() }

// topicRegistry manages subscriber sets per topic.
type topicRegistry struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscriber // topic → subscriberID → subscriber
}

func newTopicRegistry() *topicRegistry {
	return &topicRegistry{topics: make(map[string]map[string]*Subscriber)}
}

func (tr *topicRegistry) subscribe(topic string, sub *Subscriber) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	subs, ok := tr.topics[topic]
	if !ok {
		subs = make(map[string]*Subscriber)
		tr.topics[topic] = subs
	}
	subs[sub.ID()] = sub
}

func (tr *topicRegistry) unsubscribe(topic, subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	subs, ok := tr.topics[topic]
	if !ok {
		return
	}
	delete(subs, subscriberID)
	if len(subs) == 0 {
		delete(tr.topics, topic)
	}
}

func (tr *topicRegistry) unsubscribeAll(subscriberID string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for topic, subs := range tr.topics {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(tr.topics, topic)
		}
	}
}

// broadcast delivers evt once to every subscriber on any of topics. It
// returns how many accepted it and how many had a full buffer.
func (tr *topicRegistry) broadcast(topics []string, evt *Event) (delivered, dropped int) {
	tr.mu.RLock()
	seen := make(map[string]*Subscriber)
	for _, topic := range topics {
		for id, sub := range tr.topics[topic] {
			seen[id] = sub
		}
	}
	tr.mu.RUnlock()

	for _, sub := range seen {
		ok, full := sub.send(evt)
		switch {
		case ok:
			delivered++
		case full:
			dropped++
		}
	}
	return delivered, dropped
}

func (tr *topicRegistry) count() int {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return len(tr.topics)
}

// ValidateTopic checks whether a topic string is valid.
func ValidateTopic(topic string) error {
	if topic == TopicFirehose {
		return nil
	}

	kind, value, ok := strings.Cut(topic, ":")
	if !ok || value == "" {
		return fmt.Errorf("broker: invalid topic %q", topic)
	}

	switch kind {
	case "action":
		return nil
	case "status":
		for _, s := range lifecycle.AllStatuses() {
			if value == s.String() {
				return nil
			}
		}
		return fmt.Errorf("broker: unknown status %q", value)
	default:
		return fmt.Errorf("broker: unknown topic kind %q", kind)
	}
}
