package engine

import (
	"context"
	"fmt"

	"jobagent/internal/api"
)

// StartCrawl marks the crawl active and asks the crawler to start. Only a
// transport failure reverts the flag; a reply with an error status leaves it,
// the stream's crawl_completed clears it.
func (e *Engine) StartCrawl(ctx context.Context, query, location string) (api.SearchResult, error) {
	if !e.call(func() { e.crawl.SetActive(true) }) {
		return api.SearchResult{}, ErrClosed
	}

	ctx, cancel := e.ioContext(ctx)
	defer cancel()
	res, err := e.api.Search(ctx, query, location)
	if err != nil {
		if api.IsTransport(err) {
			e.post(func() { e.crawl.Stop() })
		}
		return res, fmt.Errorf("start crawl: %w", err)
	}
	if res.Rejected() {
		e.log.Warn("crawl rejected", "message", res.Message)
	}
	return res, nil
}

// RequestGeneration asks the backend for an application draft. A job that
// already has one returns it without a request. Otherwise the id is marked
// pending until the matching job_update arrives; a transport failure clears it.
func (e *Engine) RequestGeneration(ctx context.Context, jobID string) (draft string, err error) {
	if !e.call(func() {
		if j, ok := e.store.Get(jobID); ok && j.HasDraft() {
			draft = j.ApplicationDraft
			return
		}
		e.pending.Mark(jobID)
	}) {
		return "", ErrClosed
	}
	if draft != "" {
		return draft, nil
	}

	ctx, cancel := e.ioContext(ctx)
	defer cancel()
	if err := e.api.Generate(ctx, jobID); err != nil {
		if api.IsTransport(err) {
			e.post(func() { e.pending.Clear(jobID) })
		}
		return "", fmt.Errorf("generate %s: %w", jobID, err)
	}
	return "", nil
}

// Reset wipes the backend's jobs and settings and, once it confirms, the local
// store and pending set.
func (e *Engine) Reset(ctx context.Context) error {
	ctx, cancel := e.ioContext(ctx)
	defer cancel()
	if err := e.api.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if !e.call(func() {
		e.store.Clear()
		e.pending.Reset()
	}) {
		return ErrClosed
	}
	return nil
}

func (e *Engine) Draft(jobID string) (string, bool) {
	return e.State().Draft(jobID)
}

// DownloadDraft fetches the backend-rendered PDF of the draft.
func (e *Engine) DownloadDraft(ctx context.Context, jobID string) ([]byte, error) {
	ctx, cancel := e.ioContext(ctx)
	defer cancel()
	b, err := e.api.Download(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", jobID, err)
	}
	return b, nil
}

func (e *Engine) DismissBanner() {
	e.post(func() {
		e.crawl.Dismiss()
		if e.bannerTimer != nil {
			e.bannerTimer.Stop()
			e.bannerTimer = nil
		}
	})
}
