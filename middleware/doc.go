// Package middleware provides composable store plugins for action
// dispatch.
//
// Every plugin has the [store.Plugin] signature: it receives the action
// and the next step of the pipeline and returns the action's result
// stream. Plugins observe the stream with [stream.Tap] and never alter
// its signals. They are applied in the order they are registered, the
// first one outermost:
//
//	// logging → recover → capture → handler
//	s, err := store.New(initial,
//	    store.WithPlugin(middleware.Logging(logger)),
//	    store.WithPlugin(middleware.Recover(logger)),
//	    capture.Install(...),
//	)
//
// # Built-in Plugins
//
//   - [Logging] logs each action's dispatch and outcome
//   - [Recover] turns a panic in the pipeline into an error stream
//   - [Timeout] cancels the handler context after a deadline
//   - [Tracing] wraps each action in an OpenTelemetry span
//   - [Metrics] records per-action duration and outcome counters
//   - [Scope] puts the dispatched action into the handler context
//
// # Outcomes
//
// Plugins that report an outcome use the result stream's shape:
// "ok" for a value followed by completion, "canceled" for completion
// without a value and "error" for an error signal.
package middleware
