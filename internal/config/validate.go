package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimRight(strings.TrimSpace(x), "/")
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Client.APIURL = strings.TrimRight(strings.TrimSpace(out.Client.APIURL), "/")
	out.Client.WSURL = strings.TrimRight(strings.TrimSpace(out.Client.WSURL), "/")
	out.Client.SearchURL = strings.TrimRight(strings.TrimSpace(out.Client.SearchURL), "/")
	out.Client.Sort = strings.ToLower(strings.TrimSpace(out.Client.Sort))
	out.Client.LogLevel = strings.ToLower(strings.TrimSpace(out.Client.LogLevel))
	out.Relay.AllowedOrigins = trimList(out.Relay.AllowedOrigins)

	// ---- client ----
	checkURL := func(field, raw string, schemes ...string) {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			res.addErr("%s must be an absolute url, got %q", field, raw)
			return
		}
		for _, s := range schemes {
			if u.Scheme == s {
				return
			}
		}
		res.addErr("%s must use %s", field, strings.Join(schemes, " or "))
	}
	checkURL("client.api_url", out.Client.APIURL, "http", "https")
	if out.Client.WSURL != "" {
		checkURL("client.ws_url", out.Client.WSURL, "ws", "wss")
	}
	if out.Client.SearchURL != "" {
		checkURL("client.search_url", out.Client.SearchURL, "http", "https")
	}

	if out.Client.RequestTimeout <= 0 {
		res.addErr("client.request_timeout must be > 0")
	}
	if out.Client.BannerTTL <= 0 {
		res.addErr("client.banner_ttl must be > 0")
	}
	switch out.Client.Sort {
	case "", "score", "date":
	default:
		res.addErr("client.sort must be score or date, got %q", out.Client.Sort)
	}
	switch out.Client.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		res.addErr("client.log_level must be debug, info, warn or error")
	}
	if out.Client.RateLimit < 0 {
		res.addErr("client.rate_limit must be >= 0")
	} else if out.Client.RateLimit > 0 && out.Client.RateBurst < 1 {
		res.addWarn("client.rate_burst < 1; using 1")
		out.Client.RateBurst = 1
	}

	// ---- reconnect ----
	if out.Reconnect.Base <= 0 {
		res.addErr("reconnect.base must be > 0")
	} else if out.Reconnect.Base < 100*time.Millisecond {
		res.addWarn("reconnect.base is very low (%s) and may hammer the backend.", out.Reconnect.Base)
	}
	if out.Reconnect.Max < out.Reconnect.Base {
		res.addErr("reconnect.max must be >= reconnect.base")
	}
	if out.Reconnect.PingInterval <= 0 {
		res.addErr("reconnect.ping_interval must be > 0")
	}

	// ---- relay ----
	if out.Relay.Addr == "" {
		res.addErr("relay.addr is required")
	}
	if out.Relay.DatabaseURL != "" &&
		!strings.HasPrefix(out.Relay.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(out.Relay.DatabaseURL, "postgresql://") {
		res.addErr("relay.database_url must be a postgres:// url")
	}
	if out.Relay.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(out.Relay.CleanupSchedule); err != nil {
			res.addErr("relay.cleanup_schedule: %v", err)
		}
		if out.Relay.Retention <= 0 {
			res.addErr("relay.retention must be > 0 when cleanup_schedule is set")
		}
	}
	if out.Relay.SubscriberBuffer <= 0 {
		res.addWarn("relay.subscriber_buffer <= 0; using 64")
		out.Relay.SubscriberBuffer = 64
	}
	if out.Relay.AuthToken == "" {
		res.addWarn("relay.auth_token is empty; the relay accepts unauthenticated requests.")
	}

	return out, res
}
