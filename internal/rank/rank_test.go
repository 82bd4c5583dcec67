package rank_test

import (
	"testing"

	"jobagent/internal/domain"
	"jobagent/internal/rank"
)

func ids(jobs []domain.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortByScoreIsStable(t *testing.T) {
	in := []domain.Job{
		{ID: "a", MatchScore: 50},
		{ID: "b", MatchScore: 90},
		{ID: "c", MatchScore: 50},
		{ID: "d", MatchScore: 70},
	}
	got := ids(rank.Sort(in, rank.ByScore{}))
	want := []string{"b", "d", "a", "c"}
	if !equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if in[0].ID != "a" {
		t.Fatalf("input was reordered")
	}
}

func TestSortByDateMissingLast(t *testing.T) {
	in := []domain.Job{
		{ID: "nodate"},
		{ID: "old", CreatedAt: "2024-01-01T10:00:00"},
		{ID: "garbage", CreatedAt: "yesterday"},
		{ID: "new", CreatedAt: "2024-03-01T10:00:00Z"},
	}
	got := ids(rank.Sort(in, rank.ByDate{}))
	want := []string{"new", "old", "nodate", "garbage"}
	if !equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseSortKey(t *testing.T) {
	cases := []struct {
		in      string
		want    rank.SortKey
		wantErr bool
	}{
		{"", rank.SortScore, false},
		{"score", rank.SortScore, false},
		{" DATE ", rank.SortDate, false},
		{"title", "", true},
	}
	for _, tc := range cases {
		got, err := rank.ParseSortKey(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseSortKey(%q) err=%v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseSortKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBandOf(t *testing.T) {
	cases := map[float64]rank.Band{
		95:   rank.BandHigh,
		80:   rank.BandHigh,
		79.9: rank.BandMedium,
		50:   rank.BandMedium,
		12:   rank.BandLow,
	}
	for score, want := range cases {
		if got := rank.BandOf(score); got != want {
			t.Errorf("BandOf(%v) = %v, want %v", score, got, want)
		}
	}
}
