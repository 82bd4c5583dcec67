package crawl

import (
	"testing"
	"time"
)

func TestBannerReplacement(t *testing.T) {
	var s Status
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	g1 := s.Raise("first", t0, DefaultBannerTTL)
	g2 := s.Raise("second", t0.Add(2*time.Second), DefaultBannerTTL)

	if s.Expire(g1) {
		t.Fatalf("stale generation cleared the banner")
	}
	b, ok := s.Banner(t0.Add(9 * time.Second))
	if !ok || b.Message != "second" {
		t.Fatalf("banner = %+v ok=%v, want second", b, ok)
	}
	if !s.Expire(g2) {
		t.Fatalf("current generation did not clear the banner")
	}
	if _, ok := s.Banner(t0.Add(9 * time.Second)); ok {
		t.Fatalf("banner still visible after expire")
	}
}

func TestBannerHiddenAfterTTL(t *testing.T) {
	var s Status
	t0 := time.Unix(0, 0)
	s.Raise("boom", t0, DefaultBannerTTL)

	if _, ok := s.Banner(t0.Add(7 * time.Second)); !ok {
		t.Fatalf("banner hidden before ttl")
	}
	if _, ok := s.Banner(t0.Add(8 * time.Second)); ok {
		t.Fatalf("banner visible at ttl")
	}
}

func TestDismissInvalidatesTimer(t *testing.T) {
	var s Status
	g := s.Raise("x", time.Unix(0, 0), time.Second)
	s.Dismiss()
	if s.Expire(g) {
		t.Fatalf("expire after dismiss reported a change")
	}
}

func TestStartKeepsURL(t *testing.T) {
	var s Status
	s.Start("https://example.com/jobs")
	s.Stop()
	s.Start("")
	if !s.Active || s.URL != "https://example.com/jobs" {
		t.Fatalf("status = %+v", s)
	}
}
