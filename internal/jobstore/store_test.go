package jobstore_test

import (
	"reflect"
	"testing"

	"jobagent/internal/domain"
	"jobagent/internal/jobstore"
	"jobagent/internal/rank"
)

func strp(s string) *string { return &s }

func ids(jobs []domain.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID)
	}
	return out
}

func TestInsertUpsertsAndPrepends(t *testing.T) {
	s := jobstore.New()
	s.LoadSnapshot([]domain.Job{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}})

	if !s.Insert(domain.Job{ID: "c", Title: "C"}) {
		t.Fatalf("expected c to be new")
	}
	if s.Insert(domain.Job{ID: "a", Title: "A2"}) {
		t.Fatalf("expected a to be an update")
	}

	if got, want := ids(s.Jobs()), []string{"c", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	a, _ := s.Get("a")
	if a.Title != "A2" {
		t.Fatalf("title = %q, want A2", a.Title)
	}
}

func TestPatchMergesFields(t *testing.T) {
	s := jobstore.New()
	s.LoadSnapshot([]domain.Job{{ID: "7", Title: "Dev", Company: "Acme", MatchScore: 60}})

	ok := s.Patch("7", domain.JobPatch{
		Status:           strp(domain.StatusCompleted),
		ApplicationDraft: strp("Dear Acme"),
	})
	if !ok {
		t.Fatalf("patch of known id returned false")
	}
	j, _ := s.Get("7")
	want := domain.Job{ID: "7", Title: "Dev", Company: "Acme", MatchScore: 60,
		Status: domain.StatusCompleted, ApplicationDraft: "Dear Acme"}
	if j != want {
		t.Fatalf("got %+v\nwant %+v", j, want)
	}
}

func TestPatchUnknownIDIsDropped(t *testing.T) {
	s := jobstore.New()
	s.LoadSnapshot([]domain.Job{{ID: "1"}})
	if s.Patch("99", domain.JobPatch{Title: strp("ghost")}) {
		t.Fatalf("patch of unknown id returned true")
	}
	if _, ok := s.Get("99"); ok {
		t.Fatalf("unknown id created a record")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestReplaceAllAndClear(t *testing.T) {
	s := jobstore.New()
	s.Insert(domain.Job{ID: "old"})
	s.ReplaceAll([]domain.Job{{ID: "x"}, {ID: "y"}, {ID: "x", Title: "dup"}})

	if got, want := ids(s.Jobs()), []string{"x", "y"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	x, _ := s.Get("x")
	if x.Title != "dup" {
		t.Fatalf("repeated id should keep last values, got %q", x.Title)
	}

	s.Clear()
	if s.Len() != 0 || len(s.Jobs()) != 0 {
		t.Fatalf("store not empty after Clear")
	}
}

func TestViewOrdersWithoutMutating(t *testing.T) {
	s := jobstore.New()
	s.LoadSnapshot([]domain.Job{
		{ID: "low", MatchScore: 10, CreatedAt: "2024-05-01T00:00:00"},
		{ID: "high", MatchScore: 90},
		{ID: "mid", MatchScore: 50, CreatedAt: "2024-01-01T00:00:00"},
	})

	if got, want := ids(s.View(rank.SortScore)), []string{"high", "mid", "low"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("score view = %v, want %v", got, want)
	}
	if got, want := ids(s.View(rank.SortDate)), []string{"low", "mid", "high"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("date view = %v, want %v", got, want)
	}
	if got, want := ids(s.Jobs()), []string{"low", "high", "mid"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("iteration order changed: %v", got)
	}
}

func TestReconcileKeepsLiveRecords(t *testing.T) {
	s := jobstore.New()
	s.LoadSnapshot([]domain.Job{{ID: "a"}, {ID: "b", Title: "B"}})

	since := s.Seq()
	// traffic while the snapshot request is in flight
	s.Insert(domain.Job{ID: "live", Title: "arrived over ws"})
	s.Patch("b", domain.JobPatch{ApplicationDraft: strp("draft")})

	s.Reconcile([]domain.Job{{ID: "b", Title: "B"}, {ID: "c"}}, since)

	if got, want := ids(s.Jobs()), []string{"live", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	b, _ := s.Get("b")
	if b.ApplicationDraft != "draft" {
		t.Fatalf("live patch lost: %+v", b)
	}
	if _, ok := s.Get("a"); ok {
		t.Fatalf("a is absent from the snapshot and untouched, should be gone")
	}
}

func TestReconcileSnapshotWinsForUntouched(t *testing.T) {
	s := jobstore.New()
	s.LoadSnapshot([]domain.Job{{ID: "a", Title: "stale"}})
	s.Reconcile([]domain.Job{{ID: "a", Title: "fresh"}}, s.Seq())

	a, _ := s.Get("a")
	if a.Title != "fresh" {
		t.Fatalf("title = %q, want fresh", a.Title)
	}
}

func TestReconcileIgnoresSnapshotFromBeforeClear(t *testing.T) {
	s := jobstore.New()
	old := []domain.Job{{ID: "a"}, {ID: "b"}}
	s.LoadSnapshot(old)

	since := s.Seq()
	s.Clear()
	s.Insert(domain.Job{ID: "live"})

	s.Reconcile(old, since)
	if got, want := ids(s.Jobs()), []string{"live"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("jobs = %v, want %v", got, want)
	}

	s.Reconcile([]domain.Job{{ID: "c"}}, s.Seq())
	if got, want := ids(s.Jobs()), []string{"c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("jobs after fresh snapshot = %v, want %v", got, want)
	}
}
