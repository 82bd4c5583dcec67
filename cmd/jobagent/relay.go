package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jobagent/internal/bus"
	"jobagent/internal/config"
	"jobagent/internal/events"
	"jobagent/internal/httpapi"
	"jobagent/internal/scheduler"
	"jobagent/internal/store"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Serve the job list and live stream from the workers' Redis channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, v, err := loadConfig()
		if err != nil {
			return err
		}
		l := newLogger(os.Stderr, cfg.Client.LogLevel)
		logWarnings(l, v)

		unlock, err := config.LockDataDir(cfg.DataDir)
		if err != nil {
			return err
		}
		defer unlock()

		ctx, stop := signalContext(cmd)
		defer stop()

		st, err := store.Open(ctx, cfg.Relay.DatabaseURL, cfg.SQLitePath())
		if err != nil {
			return err
		}
		defer st.Close()

		b, err := bus.Connect(ctx, cfg.Relay.RedisURL, l)
		if err != nil {
			return err
		}
		defer b.Close()

		hub := events.NewHubSize(cfg.Relay.SubscriberBuffer)
		defer hub.Close()
		proj := &httpapi.Projector{Store: st, Hub: hub, Log: l}

		sched := scheduler.New(l)
		if cfg.Relay.Retention > 0 {
			err := sched.Add(cfg.Relay.CleanupSchedule, "cleanup-old-jobs", func(ctx context.Context) error {
				n, err := st.CleanupOldJobs(ctx, time.Now().Add(-cfg.Relay.Retention))
				if err != nil {
					return err
				}
				if n > 0 {
					l.Info("old jobs removed", "count", n)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		srv := &http.Server{
			Addr: cfg.Relay.Addr,
			Handler: httpapi.NewHandler(httpapi.Deps{
				Store:          st,
				Hub:            hub,
				Bus:            b,
				AuthToken:      cfg.Relay.AuthToken,
				AllowedOrigins: cfg.Relay.AllowedOrigins,
				Logger:         l,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return b.Listen(gctx, nil, func(payload []byte) { proj.Handle(gctx, payload) })
		})
		g.Go(func() error {
			if err := sched.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			sched.Stop()
			return nil
		})
		g.Go(func() error {
			l.Info("relay listening", "addr", cfg.Relay.Addr, "postgres", cfg.Relay.DatabaseURL != "")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			// Hijacked websocket connections are not tracked by Shutdown.
			hub.Close()
			return srv.Shutdown(shutdownCtx)
		})
		err = g.Wait()
		l.Info("relay stopped")
		return err
	},
}

func init() { rootCmd.AddCommand(relayCmd) }
