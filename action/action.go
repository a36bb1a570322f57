// Package action defines the descriptor that flows through the dispatch
// pipeline and is reported to telemetry sinks.
package action

import (
	"maps"
	"time"

	"github.com/xraph/capture/id"
)

// InitType is the name of the action a store dispatches once on start.
const InitType = "@@INIT"

// Action is a dispatched command. It is treated as immutable once
// dispatched: middleware and hooks read it but never modify it.
type Action struct {
	// ID uniquely identifies this dispatch. The store assigns one when empty.
	ID id.ActionID `json:"id"`

	// Name is the action type, e.g. "[Countries] Load countries".
	Name string `json:"type"`

	// Payload is arbitrary data attached at dispatch time.
	Payload any `json:"payload,omitempty"`

	// Meta carries extra descriptor fields. They are part of the
	// fallback payload reported when Payload is nil.
	Meta map[string]any `json:"meta,omitempty"`

	// DispatchedAt is set by the store when the action enters the pipeline.
	DispatchedAt time.Time `json:"dispatched_at"`
}

// New returns an action with the given name and payload.
func New(name string, payload any) Action {
	return Action{Name: name, Payload: payload}
}

// Init returns the store initialization action.
func Init() Action {
	return Action{Name: InitType}
}

// WithMeta returns a copy of a with key set in its Meta map.
func (a Action) WithMeta(key string, value any) Action {
	meta := make(map[string]any, len(a.Meta)+1)
	maps.Copy(meta, a.Meta)
	meta[key] = value
	a.Meta = meta
	return a
}

// Descriptor returns a shallow copy of the action descriptor: its type,
// its id when set, and every Meta entry. Nested values are shared, not
// cloned.
func (a Action) Descriptor() map[string]any {
	d := make(map[string]any, len(a.Meta)+2)
	maps.Copy(d, a.Meta)
	d["type"] = a.Name
	if !a.ID.IsNil() {
		d["id"] = a.ID.String()
	}
	return d
}

// Typer is implemented by action values that carry their own type name,
// so callers can dispatch struct values instead of building an Action.
type Typer interface {
	ActionType() string
}

// From converts v into an Action. Actions are returned unchanged, Typer
// values become an Action named after their type with v as payload.
// ok is false for anything else.
func From(v any) (a Action, ok bool) {
	switch t := v.(type) {
	case Action:
		return t, true
	case *Action:
		if t == nil {
			return Action{}, false
		}
		return *t, true
	case Typer:
		return Action{Name: t.ActionType(), Payload: v}, true
	default:
		return Action{}, false
	}
}
