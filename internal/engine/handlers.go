package engine

import (
	"golang.org/x/sync/errgroup"

	"jobagent/internal/events"
	"jobagent/internal/live"
)

// HandleEvent queues a live event. Safe to call from any goroutine.
func (e *Engine) HandleEvent(ev events.Event) {
	e.post(func() { e.apply(ev) })
}

// HandleState queues a connection transition. An Open that resumes after a gap
// triggers a snapshot and status resync.
func (e *Engine) HandleState(sc live.StateChange) {
	e.post(func() {
		e.conn = sc.State
		if sc.State == live.Open && sc.Resumed {
			e.log.Info("resyncing after reconnect")
			since := e.store.Seq()
			e.spawn(func() { e.refresh(since, false) })
		}
	})
}

func (e *Engine) apply(ev events.Event) {
	switch ev := ev.(type) {
	case events.CrawlStarted:
		e.crawl.Start(ev.URL)

	case events.CrawlCompleted:
		e.crawl.Stop()
		since := e.store.Seq()
		e.spawn(func() { e.fetchSnapshot(since) })

	case events.NewJob:
		e.store.Insert(ev.Job)

	case events.JobUpdate:
		if !e.store.Patch(ev.JobID, ev.Patch) {
			e.log.Debug("update for unknown job dropped", "job_id", ev.JobID)
		}
		e.pending.Clear(ev.JobID)

	case events.GlobalError:
		e.raiseBanner(ev.Message)

	default:
		e.log.Debug("ignoring event", "type", ev.Type())
	}
}

// raiseBanner shows msg for the banner TTL. Arming a new timer stops the old
// one; the generation check covers a timer that already fired.
func (e *Engine) raiseBanner(msg string) {
	gen := e.crawl.Raise(msg, e.clock.Now(), e.ttl)
	if e.bannerTimer != nil {
		e.bannerTimer.Stop()
	}
	e.bannerTimer = e.clock.AfterFunc(e.ttl, func() {
		e.post(func() { e.crawl.Expire(gen) })
	})
}

// refresh fetches the snapshot and the crawl status in parallel. At startup a
// status of "not crawling" is ignored, since a crawl_started event may already
// have arrived.
func (e *Engine) refresh(since uint64, startup bool) {
	var g errgroup.Group
	g.Go(func() error {
		e.fetchSnapshot(since)
		return nil
	})
	g.Go(func() error {
		ctx, cancel := e.ioContext(e.life)
		defer cancel()
		st, err := e.api.Status(ctx)
		if err != nil {
			e.log.Warn("status poll failed", "err", err)
			return nil
		}
		e.post(func() {
			if startup {
				if st.Crawling {
					e.crawl.SetActive(true)
				}
				return
			}
			e.crawl.SetActive(st.Crawling)
		})
		return nil
	})
	_ = g.Wait()
}

func (e *Engine) fetchSnapshot(since uint64) {
	ctx, cancel := e.ioContext(e.life)
	defer cancel()
	jobs, err := e.api.Jobs(ctx)
	if err != nil {
		e.log.Warn("snapshot fetch failed", "err", err)
		return
	}
	e.post(func() { e.store.Reconcile(jobs, since) })
}
