package live_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"jobagent/internal/events"
	"jobagent/internal/live"
)

type recorder struct {
	events chan events.Event
	states chan live.StateChange
}

func newRecorder() *recorder {
	return &recorder{events: make(chan events.Event, 16), states: make(chan live.StateChange, 16)}
}

func (r *recorder) HandleEvent(ev events.Event)     { r.events <- ev }
func (r *recorder) HandleState(sc live.StateChange) { r.states <- sc }

func (r *recorder) nextEvent(t *testing.T) events.Event {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func (r *recorder) waitState(t *testing.T, want live.ConnState) live.StateChange {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case sc := <-r.states:
			if sc.State == want {
				return sc
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

var upgrader = websocket.Upgrader{}

func TestChannelDeliversInOrderAndSkipsBadFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range []string{
			`{"type":"crawl_started","url":"https://x"}`,
			`garbage`,
			`{"type":"mystery"}`,
			`{"type":"new_job","job":{"id":"1","title":"T"}}`,
			`{"type":"crawl_completed"}`,
		} {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(f))
		}
		// hold the connection until the client leaves
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	rec := newRecorder()
	ch := live.New(live.Options{URL: wsURL(srv)})
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx, rec) }()

	if _, ok := rec.nextEvent(t).(events.CrawlStarted); !ok {
		t.Fatal("first event should be crawl_started")
	}
	if ev, ok := rec.nextEvent(t).(events.NewJob); !ok || ev.Job.ID != "1" {
		t.Fatalf("second event should be new_job 1, got %#v", ev)
	}
	if _, ok := rec.nextEvent(t).(events.CrawlCompleted); !ok {
		t.Fatal("third event should be crawl_completed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	rec.waitState(t, live.Closed)
}

func TestChannelReconnectsAndFlagsResume(t *testing.T) {
	var conns int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&conns, 1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if n == 1 {
			// drop the first connection straight away
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"crawl_completed"}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := newRecorder()
	ch := live.New(live.Options{
		URL:     wsURL(srv),
		Backoff: live.Backoff{Base: time.Millisecond, Max: 5 * time.Millisecond},
	})
	go ch.Run(ctx, rec)

	if first := rec.waitState(t, live.Open); first.Resumed {
		t.Fatal("first open should not be flagged as resumed")
	}
	rec.waitState(t, live.Reconnecting)
	if second := rec.waitState(t, live.Open); !second.Resumed {
		t.Fatal("open after a drop should be flagged as resumed")
	}
	if _, ok := rec.nextEvent(t).(events.CrawlCompleted); !ok {
		t.Fatal("expected crawl_completed after reconnect")
	}
}

func TestBackoffDelay(t *testing.T) {
	b := live.Backoff{Base: 100 * time.Millisecond, Max: time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{60, time.Second},
	}
	for _, tc := range cases {
		if got := b.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
