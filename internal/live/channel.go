// Package live keeps a persistent websocket subscription to the backend's /ws
// stream, decoding frames and reconnecting with exponential backoff.
package live

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"jobagent/internal/events"
)

type ConnState int

const (
	Connecting ConnState = iota
	Open
	Reconnecting
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Reconnecting:
		return "reconnecting"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// StateChange reports a connection transition. Resumed is set on an Open that
// follows a gap (a dropped connection or failed dials); events sent during the
// gap were lost and the receiver should resync.
type StateChange struct {
	State   ConnState
	Attempt int
	Resumed bool
	Err     error
}

// Handler receives decoded events in transport order, interleaved with state changes.
type Handler interface {
	HandleEvent(ev events.Event)
	HandleState(sc StateChange)
}

type Options struct {
	URL     string
	Header  http.Header
	Backoff Backoff

	// PingInterval is how often the client pings; ReadTimeout bounds how long the
	// connection may stay silent, pongs included.
	PingInterval time.Duration
	ReadTimeout  time.Duration

	Dialer *websocket.Dialer
	Clock  clock.Clock
	Logger *slog.Logger
}

type Channel struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment}
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 2 * opts.PingInterval
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Channel{opts: opts, log: l.With("component", "live")}
}

// Run connects and dispatches events to h until ctx is cancelled. It reports
// Closed to h before returning.
func (c *Channel) Run(ctx context.Context, h Handler) error {
	defer h.HandleState(StateChange{State: Closed})

	attempt := 0
	opened := false
	h.HandleState(StateChange{State: Connecting})
	for {
		conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
		if err == nil {
			resumed := opened || attempt > 0
			opened = true
			attempt = 0
			c.log.Info("connected", "url", c.opts.URL, "resumed", resumed)
			h.HandleState(StateChange{State: Open, Resumed: resumed})
			err = c.serve(ctx, conn, h)
		}
		if ctx.Err() != nil {
			return nil
		}

		delay := c.opts.Backoff.Delay(attempt)
		c.log.Warn("connection lost", "err", err, "attempt", attempt, "retry_in", delay)
		h.HandleState(StateChange{State: Reconnecting, Attempt: attempt, Err: err})
		if !c.sleep(ctx, delay) {
			return nil
		}
		attempt++
	}
}

func (c *Channel) sleep(ctx context.Context, d time.Duration) bool {
	t := c.opts.Clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// serve reads frames until the connection fails or ctx is cancelled.
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn, h Handler) error {
	var wg sync.WaitGroup
	stop := make(chan struct{})
	defer func() {
		close(stop)
		conn.Close()
		wg.Wait()
	}()

	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	}
	_ = extend()
	conn.SetPongHandler(func(string) error { return extend() })

	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(c.opts.PingInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				conn.Close()
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = extend()

		ev, err := events.Decode(data)
		if err != nil {
			var de *events.DecodeError
			if errors.As(err, &de) {
				c.log.Warn("dropping frame", "err", err)
				continue
			}
			return err
		}
		if u, ok := ev.(events.Unknown); ok {
			c.log.Debug("ignoring event", "type", u.Kind)
			continue
		}
		h.HandleEvent(ev)
	}
}
