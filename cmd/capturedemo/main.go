// Command capturedemo runs a counter store with capture installed and
// dispatches a steady mix of successful, failing and preempted actions.
//
// The sink is chosen from CAPTURE_* environment variables (see
// capture.Config); a .env file in the working directory is loaded first.
// Without a configured transport, events go to an in-memory recorder
// whose labels are logged on exit.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/xraph/capture"
	"github.com/xraph/capture/action"
	audithook "github.com/xraph/capture/audit_hook"
	"github.com/xraph/capture/broker"
	"github.com/xraph/capture/lifecycle"
	"github.com/xraph/capture/middleware"
	"github.com/xraph/capture/observability"
	"github.com/xraph/capture/sink"
	"github.com/xraph/capture/sink/recorder"
	"github.com/xraph/capture/store"
)

const (
	actionIncrement = "[Counter] Increment"
	actionFail      = "[Counter] Fail"
	actionSlow      = "[Counter] Slow"
)

var errFailRequested = errors.New("counter: failure requested")

func main() {
	interval := flag.Duration("interval", 500*time.Millisecond, "delay between dispatches")
	metricsAddr := flag.String("metrics-addr", ":9090", "address serving /metrics, empty to disable")
	flag.Parse()

	logger := newLogger("capturedemo")
	if err := run(logger, *interval, *metricsAddr); err != nil {
		logger.Error("capturedemo stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(component string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler).With("component", component)
}

func run(logger *slog.Logger, interval time.Duration, metricsAddr string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("dotenv not loaded", slog.String("error", err.Error()))
	}

	cfg, err := capture.LoadConfig()
	if err != nil {
		return err
	}

	var rec *recorder.Recorder
	w, err := capture.OpenWriter(cfg, logger)
	switch {
	case errors.Is(err, capture.ErrNoSink):
		rec = recorder.New(recorder.WithCapacity(1024))
		w = rec
		logger.Info("no sink configured, recording in memory")
	case err != nil:
		return err
	}

	live := broker.New(logger.With("component", "broker"))
	failures := live.Subscribe("failure-log", broker.StatusTopic(lifecycle.Errored))
	audit := audithook.New(auditLog(logger.With("component", "audit")),
		audithook.WithActions(audithook.ActionErrored, audithook.ActionCanceled),
	)

	st, err := store.New(0,
		capture.Install(
			capture.WithConfig(cfg),
			capture.WithLogger(logger.With("component", "capture")),
			capture.WithWriter(w, sink.WithWriteTimeout(cfg.WriteTimeout)),
			capture.WithHook(observability.NewMetricsExtension()),
			capture.WithHook(observability.NewPrometheusExtension(nil)),
			capture.WithHook(live),
			capture.WithHook(audit),
		),
		store.WithPlugin(middleware.Recover(logger)),
		store.WithPlugin(middleware.Logging(logger)),
		store.WithPlugin(middleware.Tracing()),
		store.WithPlugin(middleware.Metrics()),
		store.WithPlugin(middleware.Timeout(2*time.Second, logger)),
		store.WithLogger(logger.With("component", "store")),
		store.WithHandler(actionIncrement, increment),
		store.WithHandler(actionFail, fail),
		store.WithHandler(actionSlow, slow, store.CancelUncompleted()),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st.OnClose(live.Close)
	st.Start(ctx)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return dispatchLoop(ctx, st, interval) })
	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case evt, ok := <-failures.C():
				if !ok {
					return nil
				}
				logger.Warn("action failed", slog.String("label", evt.Label), slog.String("error", evt.Error))
			}
		}
	})
	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: observability.MetricsHandler(), ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown(context.Background())
		})
	}

	runErr := eg.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := st.Close(closeCtx); err != nil {
		logger.Warn("store close failed", slog.String("error", err.Error()))
	}

	if rec != nil {
		logger.Info("recorded events",
			slog.Int("count", rec.Len()),
			slog.Any("labels", rec.Labels()),
		)
	}
	return runErr
}

// dispatchLoop issues increments, with a failure every fifth tick and a
// slow action every third so consecutive slow ones preempt each other.
func dispatchLoop(ctx context.Context, st *store.Store, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		name := actionIncrement
		switch {
		case n%5 == 0:
			name = actionFail
		case n%3 == 0:
			name = actionSlow
		}
		st.Dispatch(ctx, action.New(name, map[string]any{"tick": n}))
	}
}

func auditLog(logger *slog.Logger) audithook.Recorder {
	return audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
		logger.Info("audit",
			slog.String("action", evt.Action),
			slog.String("resource_id", evt.ResourceID),
			slog.String("outcome", evt.Outcome),
			slog.String("severity", evt.Severity),
		)
		return nil
	})
}

func increment(_ context.Context, sc *store.StateContext, _ action.Action) error {
	sc.Patch(func(cur any) any { return cur.(int) + 1 })
	return nil
}

func fail(context.Context, *store.StateContext, action.Action) error {
	return errFailRequested
}

func slow(ctx context.Context, sc *store.StateContext, _ action.Action) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
	}
	sc.Patch(func(cur any) any { return cur.(int) + 10 })
	return nil
}
