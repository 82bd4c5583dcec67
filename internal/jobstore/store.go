// Package jobstore holds the client-side collection of jobs, one record per id,
// in the order the backend and the live stream delivered them.
//
// A Store is not safe for concurrent use; the engine's event loop owns it.
package jobstore

import (
	"jobagent/internal/domain"
	"jobagent/internal/rank"
)

type record struct {
	job     domain.Job
	touched uint64
}

type Store struct {
	order []string
	byID  map[string]*record
	seq   uint64

	// cleared is the seq of the last Clear.
	cleared uint64
}

func New() *Store {
	return &Store{byID: make(map[string]*record)}
}

// Seq is a counter bumped by every mutation. Pass it to Reconcile as the point a
// snapshot fetch began.
func (s *Store) Seq() uint64 { return s.seq }

func (s *Store) Len() int { return len(s.order) }

func (s *Store) Get(id string) (domain.Job, bool) {
	r, ok := s.byID[id]
	if !ok {
		return domain.Job{}, false
	}
	return r.job, true
}

// LoadSnapshot replaces the contents with a full snapshot from GET /jobs.
func (s *Store) LoadSnapshot(jobs []domain.Job) {
	s.ReplaceAll(jobs)
}

// ReplaceAll discards every record and loads jobs in the given order.
// A repeated id keeps its first position and its last field values.
func (s *Store) ReplaceAll(jobs []domain.Job) {
	s.seq++
	s.order = s.order[:0]
	s.byID = make(map[string]*record, len(jobs))
	for _, j := range jobs {
		if j.ID == "" {
			continue
		}
		if r, ok := s.byID[j.ID]; ok {
			r.job = j
			continue
		}
		s.byID[j.ID] = &record{job: j, touched: s.seq}
		s.order = append(s.order, j.ID)
	}
}

// Insert upserts j. A new id goes to the front of the iteration order; a known id
// is replaced in place. It reports whether the id was new.
func (s *Store) Insert(j domain.Job) bool {
	if j.ID == "" {
		return false
	}
	s.seq++
	if r, ok := s.byID[j.ID]; ok {
		r.job = j
		r.touched = s.seq
		return false
	}
	s.byID[j.ID] = &record{job: j, touched: s.seq}
	s.order = append([]string{j.ID}, s.order...)
	return true
}

// Patch merges p into the record for id. Unknown ids are left alone and Patch
// returns false; it never creates a partial record.
func (s *Store) Patch(id string, p domain.JobPatch) bool {
	r, ok := s.byID[id]
	if !ok {
		return false
	}
	s.seq++
	r.job = p.Apply(r.job)
	r.touched = s.seq
	return true
}

// Clear drops every record. Snapshots whose fetch began before it are ignored by
// Reconcile.
func (s *Store) Clear() {
	s.seq++
	s.cleared = s.seq
	s.order = nil
	s.byID = make(map[string]*record)
}

// Reconcile applies a snapshot whose fetch began when Seq returned since.
// Records touched after since win over the snapshot: a record missing from the
// snapshot is kept at the front, and a record present in both keeps its live fields.
// A snapshot that began before the last Clear is stale and changes nothing.
func (s *Store) Reconcile(jobs []domain.Job, since uint64) {
	if since < s.cleared {
		return
	}
	inSnap := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		inSnap[j.ID] = true
	}

	s.seq++
	order := make([]string, 0, len(jobs))
	byID := make(map[string]*record, len(jobs))
	for _, id := range s.order {
		if r := s.byID[id]; r.touched > since && !inSnap[id] {
			order = append(order, id)
			byID[id] = r
		}
	}
	for _, j := range jobs {
		if j.ID == "" {
			continue
		}
		if r, ok := byID[j.ID]; ok {
			// repeated id in the snapshot
			if r.touched == s.seq {
				r.job = j
			}
			continue
		}
		r := &record{job: j, touched: s.seq}
		if old, ok := s.byID[j.ID]; ok && old.touched > since {
			r = old
		}
		byID[j.ID] = r
		order = append(order, j.ID)
	}
	s.order = order
	s.byID = byID
}

// Jobs returns the records in iteration order.
func (s *Store) Jobs() []domain.Job {
	out := make([]domain.Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].job)
	}
	return out
}

// View returns the records ordered by key; ties keep iteration order.
func (s *Store) View(key rank.SortKey) []domain.Job {
	return s.ViewBy(rank.For(key))
}

func (s *Store) ViewBy(c rank.Comparator) []domain.Job {
	return rank.Sort(s.Jobs(), c)
}
