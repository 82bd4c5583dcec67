package pending

import (
	"reflect"
	"testing"

	"jobagent/internal/domain"
)

func TestMarkClear(t *testing.T) {
	s := New()
	s.Mark("b")
	s.Mark("a")
	s.Mark("a")

	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("ids = %v", got)
	}

	s.Clear("a")
	s.Clear("missing")
	if s.Has("a") || !s.Has("b") {
		t.Fatalf("unexpected membership after clear: %v", s.IDs())
	}

	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("len after reset = %d", s.Len())
	}
}

func TestInProgress(t *testing.T) {
	s := New()
	s.Mark("1")

	cases := []struct {
		job  domain.Job
		want bool
	}{
		{domain.Job{ID: "1"}, true},
		{domain.Job{ID: "2", Status: domain.StatusGenerating}, true},
		{domain.Job{ID: "3", Status: domain.StatusOpen}, false},
	}
	for _, tc := range cases {
		if got := s.InProgress(tc.job); got != tc.want {
			t.Errorf("InProgress(%s) = %v, want %v", tc.job.ID, got, tc.want)
		}
	}
}
