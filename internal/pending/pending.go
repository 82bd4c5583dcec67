// Package pending tracks job ids with a generation request in flight.
package pending

import (
	"sort"

	"jobagent/internal/domain"
)

// Set is not safe for concurrent use.
type Set struct {
	ids map[string]struct{}
}

func New() *Set {
	return &Set{ids: make(map[string]struct{})}
}

func (s *Set) Mark(id string) { s.ids[id] = struct{}{} }

// Clear removes id; clearing an absent id is a no-op.
func (s *Set) Clear(id string) { delete(s.ids, id) }

func (s *Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int { return len(s.ids) }

func (s *Set) Reset() { s.ids = make(map[string]struct{}) }

// IDs returns the members in sorted order.
func (s *Set) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// InProgress reports whether j should render as generating: either a request is
// pending locally or the backend already marked it GENERATING.
func (s *Set) InProgress(j domain.Job) bool {
	return s.Has(j.ID) || j.Generating()
}
