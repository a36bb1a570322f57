// Package httpsink delivers records to an ingest endpoint over HTTP.
//
// Each request is a POST whose body is one encoded array of records.
// Without a flush schedule every Write is sent immediately. With one,
// records are buffered and sent when the schedule fires or the batch
// is full:
//
//	s, err := httpsink.New("https://ingest.example.com/v1/events",
//	    httpsink.WithKey(os.Getenv("CAPTURE_KEY")),
//	    httpsink.WithFlushSchedule("@every 2s"),
//	    httpsink.WithRateLimit(10, 5),
//	)
//	defer s.Close()
//	capture.Install(capture.WithSink(sink.FromWriter(s)))
package httpsink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/xraph/capture/sink"
)

// KeyHeader carries the sink key on every request.
const KeyHeader = "X-Capture-Key"

// scheduleParser supports standard 5-field cron and descriptors like "@every 2s".
var scheduleParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

var _ sink.Writer = (*Sink)(nil)

// Sink is a sink.Writer posting batches to an HTTP endpoint.
type Sink struct {
	endpoint string
	key      string
	client   *http.Client
	codec    sink.Codec
	limiter  *rate.Limiter
	logger   *slog.Logger

	scheduleExpr string
	schedule     cronlib.Schedule
	maxBatch     int

	mu     sync.Mutex
	buf    []sink.Record
	closed bool

	stop chan struct{}
	done chan struct{}
}

// New creates a Sink. When a flush schedule is configured a background
// loop is started; Close stops it.
func New(endpoint string, opts ...Option) (*Sink, error) {
	if endpoint == "" {
		return nil, sink.ErrNoEndpoint
	}

	s := &Sink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		codec:    sink.CBORCodec{},
		logger:   slog.Default(),
		maxBatch: 100,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.scheduleExpr != "" {
		sched, err := scheduleParser.Parse(s.scheduleExpr)
		if err != nil {
			return nil, fmt.Errorf("httpsink: parse flush schedule %q: %w", s.scheduleExpr, err)
		}
		s.schedule = sched
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.flushLoop()
	}

	return s, nil
}

// Write sends recs, or buffers them when a flush schedule is set.
func (s *Sink) Write(ctx context.Context, recs ...sink.Record) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sink.ErrClosed
	}
	if s.schedule == nil {
		s.mu.Unlock()
		return s.post(ctx, recs)
	}

	s.buf = append(s.buf, recs...)
	full := len(s.buf) >= s.maxBatch
	s.mu.Unlock()

	if full {
		return s.Flush(ctx)
	}
	return nil
}

// Flush sends every buffered record. Records of a failed request are
// dropped.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.buf
	s.buf = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return s.post(ctx, batch)
}

// Close stops the flush loop and sends what is still buffered.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.stop != nil {
		close(s.stop)
		<-s.done
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()
	return s.Flush(ctx)
}

func (s *Sink) flushLoop() {
	defer close(s.done)

	for {
		now := time.Now()
		timer := time.NewTimer(s.schedule.Next(now).Sub(now))

		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
			if err := s.Flush(ctx); err != nil {
				s.logger.Warn("httpsink: scheduled flush failed",
					slog.String("endpoint", s.endpoint),
					slog.String("error", err.Error()),
				)
			}
			cancel()
		}
	}
}

func (s *Sink) post(ctx context.Context, recs []sink.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("httpsink: rate limit: %w", err)
		}
	}

	body, err := s.codec.EncodeBatch(recs)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httpsink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/"+s.codec.Name())
	if s.key != "" {
		req.Header.Set(KeyHeader, s.key)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpsink: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s returned %d", sink.ErrRejected, s.endpoint, resp.StatusCode)
	}
	return nil
}
