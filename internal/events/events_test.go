package events_test

import (
	"errors"
	"testing"

	"jobagent/internal/domain"
	"jobagent/internal/events"
)

func TestDecodeTaxonomy(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		check func(t *testing.T, ev events.Event)
	}{
		{
			name:  "crawl started",
			frame: `{"type":"crawl_started","url":"https://jobs.example.com"}`,
			check: func(t *testing.T, ev events.Event) {
				if got := ev.(events.CrawlStarted); got.URL != "https://jobs.example.com" {
					t.Fatalf("url = %q", got.URL)
				}
			},
		},
		{
			name:  "crawl completed",
			frame: `{"type":"crawl_completed"}`,
			check: func(t *testing.T, ev events.Event) {
				if _, ok := ev.(events.CrawlCompleted); !ok {
					t.Fatalf("got %T", ev)
				}
			},
		},
		{
			name:  "new job with nulls",
			frame: `{"type":"new_job","job":{"id":"j1","title":"Go Dev","company":"Acme","description":"d","match_score":82.5,"reasoning":"r","url":null,"status":"OPEN","created_at":"2024-06-01T09:30:00.123456"}}`,
			check: func(t *testing.T, ev events.Event) {
				j := ev.(events.NewJob).Job
				if j.ID != "j1" || j.MatchScore != 82.5 || j.URL != "" || j.Status != domain.StatusOpen {
					t.Fatalf("job = %+v", j)
				}
				if _, ok := j.CreatedTime(); !ok {
					t.Fatalf("created_at did not parse: %q", j.CreatedAt)
				}
			},
		},
		{
			name:  "job update",
			frame: `{"type":"job_update","job_id":"j1","status":"COMPLETED","application_draft":"Dear team","title":null}`,
			check: func(t *testing.T, ev events.Event) {
				u := ev.(events.JobUpdate)
				if u.JobID != "j1" {
					t.Fatalf("job id = %q", u.JobID)
				}
				if u.Patch.Status == nil || *u.Patch.Status != domain.StatusCompleted {
					t.Fatalf("status not decoded: %+v", u.Patch)
				}
				if u.Patch.Title != nil {
					t.Fatalf("null title should mean no change")
				}
			},
		},
		{
			name:  "global error",
			frame: `{"type":"global_error","message":"Profil unvollständig"}`,
			check: func(t *testing.T, ev events.Event) {
				if got := ev.(events.GlobalError).Message; got != "Profil unvollständig" {
					t.Fatalf("message = %q", got)
				}
			},
		},
		{
			name:  "unknown type",
			frame: `{"type":"heartbeat","n":1}`,
			check: func(t *testing.T, ev events.Event) {
				u, ok := ev.(events.Unknown)
				if !ok || u.Type() != "heartbeat" {
					t.Fatalf("got %#v", ev)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := events.Decode([]byte(tc.frame))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			tc.check(t, ev)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	frames := []string{
		`not json`,
		`{"job_id":"1"}`,
		`{"type":"new_job"}`,
		`{"type":"new_job","job":{"title":"no id"}}`,
		`{"type":"job_update","status":"COMPLETED"}`,
		`{"type":"global_error","message":42}`,
	}
	for _, f := range frames {
		_, err := events.Decode([]byte(f))
		var de *events.DecodeError
		if !errors.As(err, &de) {
			t.Errorf("Decode(%s) err = %v, want DecodeError", f, err)
		}
	}
}

func TestEncodeDecodeJobUpdate(t *testing.T) {
	draft := "Hello"
	in := events.JobUpdate{JobID: "9", Patch: domain.JobPatch{ApplicationDraft: &draft}}
	b, err := events.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := events.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	u := out.(events.JobUpdate)
	if u.JobID != "9" || u.Patch.ApplicationDraft == nil || *u.Patch.ApplicationDraft != "Hello" || u.Patch.Status != nil {
		t.Fatalf("got %+v from %s", u, b)
	}
}
