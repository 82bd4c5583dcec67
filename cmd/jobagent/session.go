package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"jobagent/internal/api"
	"jobagent/internal/config"
	"jobagent/internal/domain"
	"jobagent/internal/engine"
	"jobagent/internal/live"
	"jobagent/internal/secrets"
)

// session is a running engine bound to the configured backend.
type session struct {
	eng  *engine.Engine
	stop context.CancelFunc
	done chan error
}

// startSession wires the REST client, optionally the live channel, and runs
// the engine until Close.
func startSession(ctx context.Context, cfg config.Config, l *slog.Logger, withLive bool) (*session, error) {
	token, err := secrets.GetToken(cfg.Client.APIURL, cfg.Client.Token)
	switch {
	case errors.Is(err, secrets.ErrNoToken):
		l.Debug("no api token configured")
	case err != nil:
		l.Warn("read api token", "err", err)
	}

	client, err := api.New(api.Options{
		BaseURL:   cfg.Client.APIURL,
		SearchURL: cfg.Client.SearchURL,
		Token:     token,
		Timeout:   cfg.Client.RequestTimeout,
		Limiter:   api.NewHostLimiter(cfg.Client.RateLimit, cfg.Client.RateBurst),
		Logger:    l,
	})
	if err != nil {
		return nil, err
	}

	opts := engine.Options{Backend: client, BannerTTL: cfg.Client.BannerTTL, Logger: l}
	if withLive {
		hdr := http.Header{}
		if token != "" {
			hdr.Set("Authorization", "Bearer "+token)
		}
		opts.Subscriber = live.New(live.Options{
			URL:          cfg.Client.ChannelURL(),
			Header:       hdr,
			Backoff:      live.Backoff{Base: cfg.Reconnect.Base, Max: cfg.Reconnect.Max},
			PingInterval: cfg.Reconnect.PingInterval,
			Logger:       l,
		})
	}

	eng := engine.New(opts)
	ctx, cancel := context.WithCancel(ctx)
	s := &session{eng: eng, stop: cancel, done: make(chan error, 1)}
	go func() { s.done <- eng.Run(ctx) }()
	return s, nil
}

func (s *session) Close() error {
	s.stop()
	err := <-s.done
	if errors.Is(err, context.Canceled) || errors.Is(err, engine.ErrClosed) {
		return nil
	}
	return err
}

// waitJob blocks until the startup snapshot or the stream has delivered id.
func (s *session) waitJob(ctx context.Context, id string) (domain.Job, error) {
	st, err := s.eng.WaitFor(ctx, func(st *engine.State) bool {
		_, ok := st.Job(id)
		return ok
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Job{}, fmt.Errorf("job %s not found", id)
		}
		return domain.Job{}, err
	}
	j, _ := st.Job(id)
	return j, nil
}
