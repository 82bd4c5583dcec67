package config

import "strings"

// OverlayEnv applies environment overrides. getenv is os.Getenv outside tests.
func OverlayEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.DataDir, "JOBAGENT_DATA_DIR")
	set(&cfg.Client.APIURL, "JOBAGENT_API_URL")
	set(&cfg.Client.WSURL, "JOBAGENT_WS_URL")
	set(&cfg.Client.SearchURL, "JOBAGENT_SEARCH_URL")
	set(&cfg.Client.Token, "JOBAGENT_TOKEN")
	set(&cfg.Relay.DatabaseURL, "DATABASE_URL")
	set(&cfg.Relay.RedisURL, "REDIS_URL")
	set(&cfg.Relay.AuthToken, "JOBAGENT_RELAY_TOKEN")
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Relay.AllowedOrigins = strings.Split(v, ",")
	}
}
