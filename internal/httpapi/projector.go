package httpapi

import (
	"context"
	"errors"
	"log/slog"

	"jobagent/internal/events"
	"jobagent/internal/store"
)

// Projector applies job_updates frames to the store and forwards them to the
// websocket hub unchanged. Frames are forwarded even when they cannot be
// decoded or stored; clients drop what they do not understand.
type Projector struct {
	Store store.Store
	Hub   *events.Hub
	Log   *slog.Logger
}

func (p *Projector) Handle(ctx context.Context, payload []byte) {
	p.project(ctx, payload)
	if n := p.Hub.Publish(payload); n > 0 {
		p.Log.Warn("evicted slow ws subscribers", "count", n)
	}
}

func (p *Projector) project(ctx context.Context, payload []byte) {
	ev, err := events.Decode(payload)
	if err != nil {
		p.Log.Warn("undecodable frame", "err", err)
		return
	}
	switch ev := ev.(type) {
	case events.NewJob:
		if _, err := p.Store.UpsertJob(ctx, ev.Job); err != nil {
			p.Log.Error("store new job", "job_id", ev.Job.ID, "err", err)
		}
	case events.JobUpdate:
		_, err := p.Store.PatchJob(ctx, ev.JobID, ev.Patch)
		switch {
		case errors.Is(err, store.ErrNotFound):
			p.Log.Debug("update for unknown job", "job_id", ev.JobID)
		case err != nil:
			p.Log.Error("store job update", "job_id", ev.JobID, "err", err)
		}
	default:
		p.Log.Debug("forwarding event", "type", ev.Type())
	}
}
