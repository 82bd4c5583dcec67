// Package bus connects the relay to the crawler and AI workers over Redis:
// it listens to job_updates, reads the crawl flag and publishes commands.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"jobagent/internal/events"
)

const (
	ChannelJobUpdates = "job_updates"
	KeyCrawling       = "system:crawling"

	CmdStartCrawl = "CMD_START_CRAWL"
	CmdGenerate   = "CMD_GENERATE_APPLICATION"
)

type StartCrawl struct {
	Type        string    `json:"type"`
	Query       string    `json:"query"`
	Location    string    `json:"location"`
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

type Generate struct {
	Type        string    `json:"type"`
	JobID       string    `json:"job_id"`
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

type Bus struct {
	rdb *redis.Client
	log *slog.Logger
}

// Connect parses redisURL and verifies the connection.
func Connect(ctx context.Context, redisURL string, l *slog.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(rdb, l), nil
}

func New(rdb *redis.Client, l *slog.Logger) *Bus {
	if l == nil {
		l = slog.Default()
	}
	return &Bus{rdb: rdb, log: l.With("component", "bus")}
}

func (b *Bus) Close() error { return b.rdb.Close() }

func (b *Bus) Ping(ctx context.Context) error { return b.rdb.Ping(ctx).Err() }

// Crawling reports whether the crawler holds the system:crawling flag.
func (b *Bus) Crawling(ctx context.Context) (bool, error) {
	v, err := b.rdb.Get(ctx, KeyCrawling).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", KeyCrawling, err)
	}
	return v != "" && v != "0", nil
}

func (b *Bus) StartCrawl(ctx context.Context, cmd StartCrawl) error {
	cmd.Type = CmdStartCrawl
	if cmd.RequestedAt.IsZero() {
		cmd.RequestedAt = time.Now().UTC()
	}
	return b.publish(ctx, CmdStartCrawl, cmd)
}

func (b *Bus) Generate(ctx context.Context, cmd Generate) error {
	cmd.Type = CmdGenerate
	if cmd.RequestedAt.IsZero() {
		cmd.RequestedAt = time.Now().UTC()
	}
	return b.publish(ctx, CmdGenerate, cmd)
}

// PublishEvent puts ev on job_updates, as the workers do.
func (b *Bus) PublishEvent(ctx context.Context, ev events.Event) error {
	msg, err := events.Encode(ev)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, ChannelJobUpdates, msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type(), err)
	}
	return nil
}

func (b *Bus) publish(ctx context.Context, channel string, v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, channel, msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Listen calls fn with every raw job_updates payload until ctx is cancelled.
// fn runs on the listener goroutine, in publish order.
func (b *Bus) Listen(ctx context.Context, ready func(), fn func(payload []byte)) error {
	sub := b.rdb.Subscribe(ctx, ChannelJobUpdates)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", ChannelJobUpdates, err)
	}
	b.log.Info("subscribed", "channel", ChannelJobUpdates)
	if ready != nil {
		ready()
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("job_updates subscription closed")
			}
			b.log.Debug("event received", "bytes", len(msg.Payload))
			fn([]byte(msg.Payload))
		}
	}
}
