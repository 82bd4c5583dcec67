// Package engine reconciles the client-side view of jobs and crawl status with
// the backend. One goroutine owns the job store, the pending set and the crawl
// status; channel events, action outcomes, snapshot results and timer expiries
// are posted to it as messages and applied one at a time in arrival order.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"jobagent/internal/api"
	"jobagent/internal/crawl"
	"jobagent/internal/domain"
	"jobagent/internal/jobstore"
	"jobagent/internal/live"
	"jobagent/internal/pending"
)

var ErrClosed = errors.New("engine: closed")

// Backend is the REST surface the engine drives. *api.Client implements it.
type Backend interface {
	Jobs(ctx context.Context) ([]domain.Job, error)
	Status(ctx context.Context) (api.Status, error)
	Search(ctx context.Context, query, location string) (api.SearchResult, error)
	Generate(ctx context.Context, jobID string) error
	Reset(ctx context.Context) error
	Download(ctx context.Context, jobID string) ([]byte, error)
}

// Subscriber delivers live events. *live.Channel implements it.
type Subscriber interface {
	Run(ctx context.Context, h live.Handler) error
}

type Options struct {
	Backend    Backend
	Subscriber Subscriber
	Clock      clock.Clock
	BannerTTL  time.Duration
	Logger     *slog.Logger
	// InboxSize bounds queued messages; producers block while it is full.
	InboxSize int
}

type Engine struct {
	api   Backend
	sub   Subscriber
	clock clock.Clock
	ttl   time.Duration
	log   *slog.Logger

	inbox chan func()
	done  chan struct{}
	life  context.Context
	kill  context.CancelFunc
	once  sync.Once
	io    sync.WaitGroup

	// owned by the loop goroutine
	store       *jobstore.Store
	pending     *pending.Set
	crawl       crawl.Status
	conn        live.ConnState
	bannerTimer *clock.Timer
	version     uint64

	state   atomic.Pointer[State]
	changes chan struct{}
}

func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.BannerTTL <= 0 {
		opts.BannerTTL = crawl.DefaultBannerTTL
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	life, kill := context.WithCancel(context.Background())
	e := &Engine{
		api:     opts.Backend,
		sub:     opts.Subscriber,
		clock:   opts.Clock,
		ttl:     opts.BannerTTL,
		log:     l.With("component", "engine"),
		inbox:   make(chan func(), opts.InboxSize),
		done:    make(chan struct{}),
		life:    life,
		kill:    kill,
		store:   jobstore.New(),
		pending: pending.New(),
		conn:    live.Connecting,
		changes: make(chan struct{}, 1),
	}
	e.publish()
	return e
}

// Run starts the event loop, the startup fetch and the live subscription, and
// blocks until ctx is cancelled or Close is called. The engine cannot be
// restarted afterwards.
func (e *Engine) Run(ctx context.Context) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.life, cancel)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.loop(gctx)
		return nil
	})
	if e.sub != nil {
		g.Go(func() error {
			return e.sub.Run(gctx, e)
		})
	}
	g.Go(func() error {
		var since uint64
		if e.call(func() { since = e.store.Seq() }) {
			e.refresh(since, true)
		}
		return nil
	})

	err := g.Wait()
	e.Close()
	e.io.Wait()
	return err
}

// Close tears the engine down: the loop stops, the banner timer is stopped,
// in-flight requests are cancelled and their late completions are dropped.
func (e *Engine) Close() {
	e.once.Do(func() {
		e.kill()
		close(e.done)
	})
}

func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) loop(ctx context.Context) {
	defer func() {
		if e.bannerTimer != nil {
			e.bannerTimer.Stop()
		}
		e.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case fn := <-e.inbox:
			fn()
			e.publish()
		}
	}
}

// post queues fn for the loop. It reports false once the engine is closed.
func (e *Engine) post(fn func()) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.inbox <- fn:
		return true
	case <-e.done:
		return false
	}
}

// call posts fn and waits until the loop has run it.
func (e *Engine) call(fn func()) bool {
	ran := make(chan struct{})
	if !e.post(func() { fn(); close(ran) }) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-e.done:
		select {
		case <-ran:
			return true
		default:
			return false
		}
	}
}

// spawn runs f on its own goroutine, tracked until Run returns.
func (e *Engine) spawn(f func()) {
	select {
	case <-e.done:
		return
	default:
	}
	e.io.Add(1)
	go func() {
		defer e.io.Done()
		f()
	}()
}

func (e *Engine) publish() {
	e.version++
	jobs := e.store.Jobs()
	idx := make(map[string]int, len(jobs))
	for i, j := range jobs {
		idx[j.ID] = i
	}
	ids := e.pending.IDs()
	pend := make(map[string]bool, len(ids))
	for _, id := range ids {
		pend[id] = true
	}
	s := &State{
		Version:  e.version,
		Jobs:     jobs,
		Pending:  ids,
		Crawling: e.crawl.Active,
		CrawlURL: e.crawl.URL,
		Conn:     e.conn,
		index:    idx,
		pending:  pend,
	}
	if b, ok := e.crawl.Banner(e.clock.Now()); ok {
		s.Banner = b.Message
		s.BannerExpires = b.ExpiresAt
	}
	e.state.Store(s)

	select {
	case e.changes <- struct{}{}:
	default:
	}
}

// State returns the latest published snapshot.
func (e *Engine) State() *State { return e.state.Load() }

// Changes signals after new state is published. Signals coalesce when the
// reader is slow; always re-read State. Intended for a single reader.
func (e *Engine) Changes() <-chan struct{} { return e.changes }

// Sync returns once every message posted before it has been applied.
func (e *Engine) Sync(ctx context.Context) error {
	ran := make(chan struct{})
	if !e.post(func() { close(ran) }) {
		return ErrClosed
	}
	select {
	case <-ran:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrClosed
	}
}

// WaitFor blocks until ok accepts the published state. It consumes Changes.
func (e *Engine) WaitFor(ctx context.Context, ok func(*State) bool) (*State, error) {
	for {
		if s := e.State(); ok(s) {
			return s, nil
		}
		select {
		case <-e.changes:
		case <-ctx.Done():
			return e.State(), ctx.Err()
		case <-e.done:
			return e.State(), ErrClosed
		}
	}
}

// ioContext derives a request context that is also cancelled on teardown.
func (e *Engine) ioContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
