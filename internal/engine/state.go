package engine

import (
	"time"

	"jobagent/internal/domain"
	"jobagent/internal/live"
	"jobagent/internal/rank"
)

// State is an immutable snapshot published after every processed message.
// Callers must not modify it.
type State struct {
	Version uint64

	Jobs    []domain.Job
	Pending []string

	Crawling bool
	CrawlURL string

	Banner        string
	BannerExpires time.Time

	Conn live.ConnState

	index   map[string]int
	pending map[string]bool
}

func (s *State) Job(id string) (domain.Job, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Job{}, false
	}
	return s.Jobs[i], true
}

// View returns the jobs ordered for display.
func (s *State) View(key rank.SortKey) []domain.Job {
	return rank.Sort(s.Jobs, rank.For(key))
}

func (s *State) IsPending(id string) bool { return s.pending[id] }

// InProgress reports whether j should show a generating indicator.
func (s *State) InProgress(j domain.Job) bool {
	return s.pending[j.ID] || j.Generating()
}

// Draft returns the application draft for id when generation has completed.
func (s *State) Draft(id string) (string, bool) {
	j, ok := s.Job(id)
	if !ok || !j.HasDraft() {
		return "", false
	}
	return j.ApplicationDraft, true
}

func (s *State) HasBanner() bool { return s.Banner != "" }
