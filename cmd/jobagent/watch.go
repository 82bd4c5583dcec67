package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"jobagent/internal/domain"
	"jobagent/internal/engine"
	"jobagent/internal/live"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print new jobs, finished drafts and crawl status as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, v, err := loadConfig()
		if err != nil {
			return err
		}
		l := newLogger(os.Stderr, cfg.Client.LogLevel)
		logWarnings(l, v)

		ctx, stop := signalContext(cmd)
		defer stop()
		s, err := startSession(ctx, cfg, l, true)
		if err != nil {
			return err
		}
		defer s.Close()

		p := newFeedPrinter(os.Stdout)
		for {
			p.Print(s.eng.State(), time.Now())
			select {
			case <-s.eng.Changes():
			case <-s.eng.Done():
				return nil
			case <-ctx.Done():
				return nil
			}
		}
	},
}

func init() { rootCmd.AddCommand(watchCmd) }

// feedPrinter writes one line per observable change between two states.
type feedPrinter struct {
	w       io.Writer
	seen    map[string]domain.Job
	busy    map[string]bool
	crawl   bool
	banner  string
	conn    live.ConnState
	started bool
}

func newFeedPrinter(w io.Writer) *feedPrinter {
	return &feedPrinter{w: w, seen: make(map[string]domain.Job), busy: make(map[string]bool)}
}

func (p *feedPrinter) Print(st *engine.State, now time.Time) {
	ts := now.Format("15:04:05")
	if !p.started || st.Conn != p.conn {
		fmt.Fprintf(p.w, "%s  live %s\n", ts, st.Conn)
		p.conn = st.Conn
	}
	if st.Crawling != p.crawl {
		if st.Crawling {
			fmt.Fprintf(p.w, "%s  crawl started %s\n", ts, st.CrawlURL)
		} else if p.started {
			fmt.Fprintf(p.w, "%s  crawl finished\n", ts)
		}
		p.crawl = st.Crawling
	}
	if st.Banner != p.banner {
		if st.Banner != "" {
			fmt.Fprintf(p.w, "%s  ERROR %s\n", ts, st.Banner)
		}
		p.banner = st.Banner
	}

	current := make(map[string]bool, len(st.Jobs))
	for _, j := range st.Jobs {
		current[j.ID] = true
		old, known := p.seen[j.ID]
		busy := st.InProgress(j)
		switch {
		case !known:
			fmt.Fprintf(p.w, "%s  + %3.0f%%  %s · %s  [%s]\n", ts, j.MatchScore, j.Title, j.Company, j.ID)
		case j.HasDraft() && !old.HasDraft():
			fmt.Fprintf(p.w, "%s  ✓ draft ready  %s · %s  [%s]\n", ts, j.Title, j.Company, j.ID)
		case j.GenerationError != "" && j.GenerationError != old.GenerationError:
			fmt.Fprintf(p.w, "%s  ! generation failed  %s: %s  [%s]\n", ts, j.Title, j.GenerationError, j.ID)
		case busy && !p.busy[j.ID]:
			fmt.Fprintf(p.w, "%s  … writing draft  %s  [%s]\n", ts, j.Title, j.ID)
		}
		p.seen[j.ID] = j
		p.busy[j.ID] = busy
	}
	if len(current) == 0 && len(p.seen) > 0 {
		fmt.Fprintf(p.w, "%s  jobs cleared\n", ts)
	}
	for id := range p.seen {
		if !current[id] {
			delete(p.seen, id)
			delete(p.busy, id)
		}
	}
	p.started = true
}
