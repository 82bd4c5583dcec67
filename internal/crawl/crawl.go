package crawl

import "time"

// DefaultBannerTTL is how long a global_error message stays visible.
const DefaultBannerTTL = 8 * time.Second

type Banner struct {
	Message   string
	ExpiresAt time.Time
}

// Status is the crawl flag plus the error banner. It holds no timer itself:
// Raise returns a generation the owner hands back to Expire when its timer fires,
// so only the most recent banner's timer can clear it.
type Status struct {
	Active bool
	URL    string

	banner *Banner
	gen    uint64
}

func (s *Status) Start(url string) {
	s.Active = true
	if url != "" {
		s.URL = url
	}
}

func (s *Status) Stop() { s.Active = false }

func (s *Status) SetActive(active bool) {
	s.Active = active
}

// Raise shows msg until now+ttl and returns the banner's generation.
// Any earlier banner is replaced.
func (s *Status) Raise(msg string, now time.Time, ttl time.Duration) uint64 {
	s.gen++
	s.banner = &Banner{Message: msg, ExpiresAt: now.Add(ttl)}
	return s.gen
}

// Expire clears the banner if gen is still current. Stale generations are ignored.
func (s *Status) Expire(gen uint64) bool {
	if gen != s.gen || s.banner == nil {
		return false
	}
	s.banner = nil
	return true
}

func (s *Status) Dismiss() {
	s.gen++
	s.banner = nil
}

// Banner returns the visible banner at now, if any.
func (s *Status) Banner(now time.Time) (Banner, bool) {
	if s.banner == nil || !now.Before(s.banner.ExpiresAt) {
		return Banner{}, false
	}
	return *s.banner, true
}
