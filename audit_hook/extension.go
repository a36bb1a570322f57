package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/capture/action"
	"github.com/xraph/capture/lifecycle"
)

// Compile-time interface checks.
var (
	_ lifecycle.Hook             = (*Extension)(nil)
	_ lifecycle.ActionDispatched = (*Extension)(nil)
	_ lifecycle.ActionSuccessful = (*Extension)(nil)
	_ lifecycle.ActionErrored    = (*Extension)(nil)
	_ lifecycle.ActionCanceled   = (*Extension)(nil)
)

// Recorder is the interface audit backends implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit trail entry.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
	OutcomePending  = "pending"
)

// Extension turns lifecycle events into audit events.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through r.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements lifecycle.Hook.
func (e *Extension) Name() string { return "audit-hook" }

// OnActionDispatched implements lifecycle.ActionDispatched.
func (e *Extension) OnActionDispatched(ctx context.Context, a action.Action) error {
	return e.record(ctx, ActionDispatched, SeverityInfo, OutcomePending, a, nil,
		"dispatched_at", a.DispatchedAt,
	)
}

// OnActionSuccessful implements lifecycle.ActionSuccessful.
func (e *Extension) OnActionSuccessful(ctx context.Context, a action.Action, _ any, elapsed time.Duration) error {
	return e.record(ctx, ActionSuccessful, SeverityInfo, OutcomeSuccess, a, nil,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnActionErrored implements lifecycle.ActionErrored.
func (e *Extension) OnActionErrored(ctx context.Context, a action.Action, actionErr error, elapsed time.Duration) error {
	return e.record(ctx, ActionErrored, SeverityCritical, OutcomeFailure, a, actionErr,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnActionCanceled implements lifecycle.ActionCanceled.
func (e *Extension) OnActionCanceled(ctx context.Context, a action.Action, elapsed time.Duration) error {
	return e.record(ctx, ActionCanceled, SeverityWarning, OutcomeCanceled, a, nil,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// record builds and sends an audit event if the audit action is enabled.
// kvPairs are added to Metadata after the action type.
func (e *Extension) record(
	ctx context.Context,
	auditAction, severity, outcome string,
	a action.Action,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[auditAction] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+2)
	meta["action_type"] = a.Name
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     auditAction,
		Resource:   ResourceAction,
		Category:   CategoryAction,
		ResourceID: a.ID.String(),
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", auditAction,
			"resource_id", evt.ResourceID,
			"error", recErr,
		)
	}
	return nil
}
