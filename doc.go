// Package capture observes the lifecycle of dispatched actions and
// forwards it to a telemetry sink.
//
// Every action that enters a store produces one DISPATCHED event and,
// once its result stream terminates, exactly one of SUCCESSFUL, ERRORED
// or CANCELED. Outcomes are inferred from the shape of the result
// stream: a value followed by completion is a success, completion with
// no value is a cancellation, and an error is a failure.
//
// capture is designed as a library. Install it as the first plugin of a
// store and point it at a sink:
//
//	rec := recorder.New()
//	st, err := store.New(initial,
//	    capture.Install(capture.WithSink(rec.Factory())),
//	    store.WithHandler("[Countries] Load countries", loadCountries),
//	)
//
// # Architecture
//
// The classifier package taps the result stream and emits lifecycle
// events into a lifecycle.Registry. The forwarder package is one hook of
// that registry; it labels each event "<action> (<STATUS>)" and hands it
// to the sink together with a state snapshot. Further hooks, such as
// those in the observability package, can be added with WithHook.
//
// Sink failures are logged and never reach the store.
package capture
