package rank

import (
	"fmt"
	"sort"
	"strings"

	"jobagent/internal/domain"
)

// Comparator orders jobs for presentation. Less reports whether a belongs before b.
type Comparator interface {
	Less(a, b domain.Job) bool
	Name() string
}

type SortKey string

const (
	SortScore SortKey = "score"
	SortDate  SortKey = "date"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "", SortScore:
		return SortScore, nil
	case SortDate:
		return SortDate, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want score or date)", s)
	}
}

// For returns the comparator for k. Unknown keys fall back to score order.
func For(k SortKey) Comparator {
	if k == SortDate {
		return ByDate{}
	}
	return ByScore{}
}

// ByScore puts the highest match_score first.
type ByScore struct{}

func (ByScore) Name() string { return string(SortScore) }

func (ByScore) Less(a, b domain.Job) bool { return a.MatchScore > b.MatchScore }

// ByDate puts the newest created_at first. Jobs without a parseable timestamp
// go after every dated job.
type ByDate struct{}

func (ByDate) Name() string { return string(SortDate) }

func (ByDate) Less(a, b domain.Job) bool {
	ta, okA := a.CreatedTime()
	tb, okB := b.CreatedTime()
	switch {
	case okA && okB:
		return ta.After(tb)
	case okA:
		return true
	default:
		return false
	}
}

// Sort returns a stably sorted copy of jobs; equal keys keep their input order.
func Sort(jobs []domain.Job, c Comparator) []domain.Job {
	out := make([]domain.Job, len(jobs))
	copy(out, jobs)
	sort.SliceStable(out, func(i, j int) bool { return c.Less(out[i], out[j]) })
	return out
}

type Band int

const (
	BandLow Band = iota
	BandMedium
	BandHigh
)

func (b Band) String() string {
	switch b {
	case BandHigh:
		return "high"
	case BandMedium:
		return "medium"
	default:
		return "low"
	}
}

// BandOf buckets a match score: 80 and above is high, 50 and above medium.
func BandOf(score float64) Band {
	switch {
	case score >= 80:
		return BandHigh
	case score >= 50:
		return BandMedium
	default:
		return BandLow
	}
}
