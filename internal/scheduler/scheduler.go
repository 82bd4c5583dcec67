// Package scheduler runs the relay's periodic maintenance on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Task func(ctx context.Context) error

// Scheduler wraps robfig/cron. Tasks run with the context given to Start and
// never overlap with themselves.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
	jobs []job
}

type job struct {
	spec string
	name string
	task Task
}

func New(l *slog.Logger) *Scheduler {
	if l == nil {
		l = slog.Default()
	}
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  l.With("component", "scheduler"),
	}
}

// Add validates spec and queues the task for Start.
func (s *Scheduler) Add(spec, name string, task Task) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.jobs = append(s.jobs, job{spec: spec, name: name, task: task})
	return nil
}

// Start registers every task, runs each once immediately and starts the cron.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, j := range s.jobs {
		j := j
		run := func() { s.run(ctx, j) }
		if _, err := s.cron.AddFunc(j.spec, run); err != nil {
			return fmt.Errorf("cron.AddFunc %s: %w", j.name, err)
		}
		go run()
	}
	s.cron.Start()
	s.log.Info("cron started", "tasks", len(s.jobs))
	return nil
}

// Stop waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

func (s *Scheduler) run(ctx context.Context, j job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := j.task(ctx); err != nil {
		s.log.Warn("task failed", "task", j.name, "err", err)
		return
	}
	s.log.Debug("task done", "task", j.name, "dur_ms", time.Since(start).Milliseconds())
}
