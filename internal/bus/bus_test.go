package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"jobagent/internal/events"
)

func newBus(t *testing.T) (*Bus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b, mr
}

func TestCrawlingFlag(t *testing.T) {
	b, mr := newBus(t)
	ctx := context.Background()

	if on, err := b.Crawling(ctx); err != nil || on {
		t.Fatalf("crawling = %v err=%v, want false", on, err)
	}
	if err := mr.Set(KeyCrawling, "1"); err != nil {
		t.Fatal(err)
	}
	if on, err := b.Crawling(ctx); err != nil || !on {
		t.Fatalf("crawling = %v err=%v, want true", on, err)
	}
}

func TestListenDeliversInOrder(t *testing.T) {
	b, _ := newBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Listen(ctx, func() { close(ready) }, func(p []byte) { got <- string(p) })
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not ready")
	}

	if err := b.PublishEvent(ctx, events.CrawlStarted{URL: "https://x"}); err != nil {
		t.Fatal(err)
	}
	if err := b.PublishEvent(ctx, events.CrawlCompleted{}); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{events.TypeCrawlStarted, events.TypeCrawlCompleted} {
		select {
		case p := <-got:
			ev, err := events.Decode([]byte(p))
			if err != nil || ev.Type() != want {
				t.Fatalf("got %s (%v), want %s", p, err, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("listen returned %v", err)
	}
}

func TestCommandsArePublished(t *testing.T) {
	b, mr := newBus(t)
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	sub := rdb.Subscribe(ctx, CmdGenerate)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatal(err)
	}

	if err := b.Generate(ctx, Generate{JobID: "j1", RequestID: "r1"}); err != nil {
		t.Fatal(err)
	}
	select {
	case msg := <-sub.Channel():
		var g Generate
		if err := json.Unmarshal([]byte(msg.Payload), &g); err != nil {
			t.Fatal(err)
		}
		if g.Type != CmdGenerate || g.JobID != "j1" || g.RequestID != "r1" || g.RequestedAt.IsZero() {
			t.Fatalf("command = %+v", g)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command not published")
	}
}
