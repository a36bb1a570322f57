// Package audithook is a lifecycle hook that bridges action outcomes to
// an audit trail backend.
//
// Every lifecycle event becomes a structured AuditEvent passed to the
// [Recorder]. Severity follows the outcome: info for dispatches and
// successes, warning for cancellations, critical for errors.
//
// # Usage
//
//	capture.Install(
//	    capture.WithHook(audithook.New(audithook.RecorderFunc(
//	        func(ctx context.Context, evt *audithook.AuditEvent) error {
//	            return trail.Append(ctx, evt)
//	        },
//	    ))),
//	)
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(audithook.ActionErrored, audithook.ActionCanceled),
//	)
package audithook
