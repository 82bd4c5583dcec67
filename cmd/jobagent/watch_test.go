package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"jobagent/internal/domain"
	"jobagent/internal/engine"
	"jobagent/internal/live"
)

func TestFeedPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newFeedPrinter(&buf)
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	steps := []struct {
		st   *engine.State
		want []string
	}{
		{
			st:   &engine.State{Conn: live.Connecting},
			want: []string{"live connecting"},
		},
		{
			st: &engine.State{Conn: live.Open, Crawling: true, CrawlURL: "https://jobs.example.com",
				Jobs: []domain.Job{{ID: "a", Title: "Go Dev", Company: "Acme", MatchScore: 82}}},
			want: []string{"live open", "crawl started https://jobs.example.com", "+  82%  Go Dev · Acme  [a]"},
		},
		{
			st: &engine.State{Conn: live.Open, Crawling: true,
				Jobs: []domain.Job{{ID: "a", Title: "Go Dev", Company: "Acme", MatchScore: 82, Status: domain.StatusGenerating}}},
			want: []string{"… writing draft  Go Dev  [a]"},
		},
		{
			st: &engine.State{Conn: live.Open, Banner: "crawler crashed",
				Jobs: []domain.Job{{ID: "a", Title: "Go Dev", Company: "Acme", MatchScore: 82, ApplicationDraft: "Hi"}}},
			want: []string{"crawl finished", "ERROR crawler crashed", "✓ draft ready  Go Dev · Acme  [a]"},
		},
		{
			st:   &engine.State{Conn: live.Open, Banner: "crawler crashed"},
			want: []string{"jobs cleared"},
		},
	}

	for i, step := range steps {
		buf.Reset()
		p.Print(step.st, now)
		var got []string
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line != "" {
				got = append(got, strings.TrimPrefix(line, "09:30:00  "))
			}
		}
		if strings.Join(got, "\n") != strings.Join(step.want, "\n") {
			t.Fatalf("step %d:\ngot  %q\nwant %q", i, got, step.want)
		}
	}
}

func TestMask(t *testing.T) {
	if got := mask("abcdefgh"); got != "****efgh" {
		t.Fatalf("mask = %q", got)
	}
	if got := mask("abc"); got != "****" {
		t.Fatalf("mask short = %q", got)
	}
}
