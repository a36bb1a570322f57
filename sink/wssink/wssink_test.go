package wssink_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/capture/sink"
	"github.com/xraph/capture/sink/httpsink"
	"github.com/xraph/capture/sink/wssink"
)

// wsCollector accepts one WebSocket connection and records the labels of
// the binary frames it receives.
type wsCollector struct {
	mu     sync.Mutex
	labels []string
	keys   []string
	ops    []ws.OpCode
	got    chan struct{}
}

func newCollector() *wsCollector {
	return &wsCollector{got: make(chan struct{}, 16)}
}

func (c *wsCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.keys = append(c.keys, r.Header.Get(httpsink.KeyHeader))
	c.mu.Unlock()

	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	go func() {
		defer conn.Close()
		for {
			data, op, err := wsutil.ReadClientData(conn)
			if err != nil {
				return
			}
			rec, err := sink.Decode(data)
			if err != nil {
				continue
			}
			c.mu.Lock()
			c.labels = append(c.labels, rec.Label)
			c.ops = append(c.ops, op)
			c.mu.Unlock()
			c.got <- struct{}{}
		}
	}()
}

func (c *wsCollector) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i+1)
		}
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWrite_BinaryFramePerRecord(t *testing.T) {
	c := newCollector()
	srv := httptest.NewServer(c)
	defer srv.Close()

	s := wssink.New(wsURL(srv), wssink.WithKey("k-1"))
	defer s.Close()

	err := s.Write(context.Background(),
		sink.NewRecord(sink.Event{Label: "Load (DISPATCHED)"}, nil),
		sink.NewRecord(sink.Event{Label: "Load (SUCCESSFUL)"}, nil),
	)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	c.wait(t, 2)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.labels) != 2 || c.labels[0] != "Load (DISPATCHED)" || c.labels[1] != "Load (SUCCESSFUL)" {
		t.Fatalf("unexpected labels: %v", c.labels)
	}
	for _, op := range c.ops {
		if op != ws.OpBinary {
			t.Errorf("expected binary frame, got %v", op)
		}
	}
	if len(c.keys) != 1 || c.keys[0] != "k-1" {
		t.Errorf("handshake keys = %v", c.keys)
	}
}

func TestWrite_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	s := wssink.New(url)
	if err := s.Write(context.Background(), sink.NewRecord(sink.Event{Label: "a"}, nil)); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestWrite_NoURL(t *testing.T) {
	s := wssink.New("")
	err := s.Write(context.Background(), sink.NewRecord(sink.Event{Label: "a"}, nil))
	if !errors.Is(err, sink.ErrNoEndpoint) {
		t.Fatalf("expected ErrNoEndpoint, got %v", err)
	}
}

func TestClose(t *testing.T) {
	s := wssink.New("ws://127.0.0.1:1")
	if err := s.Close(); err != nil {
		t.Fatalf("Close without connection: %v", err)
	}
	err := s.Write(context.Background(), sink.NewRecord(sink.Event{Label: "a"}, nil))
	if !errors.Is(err, sink.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestWrite_HonoursContextDeadline(t *testing.T) {
	stop := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()
		<-stop // never reads
	}))
	defer srv.Close()
	defer close(stop)

	s := wssink.New(wsURL(srv))
	defer s.Close()

	big := sink.NewRecord(sink.Event{Label: "Load (SUCCESSFUL)", Payload: strings.Repeat("x", 64<<20)}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Write(ctx, big)
	if err == nil {
		t.Fatal("expected write to a stalled collector to fail")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("write ignored the deadline, took %v", elapsed)
	}
}
