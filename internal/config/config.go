package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const FileName = "config.yml"

type Config struct {
	Client    Client    `yaml:"client"`
	Reconnect Reconnect `yaml:"reconnect"`
	Relay     Relay     `yaml:"relay"`

	// DataDir is where config.yml, the sqlite store and logs live. Not persisted.
	DataDir string `yaml:"-"`
}

type Client struct {
	APIURL string `yaml:"api_url"`
	// WSURL is the websocket base; /ws is appended. Empty derives it from APIURL.
	WSURL string `yaml:"ws_url"`
	// SearchURL serves POST /search when the crawler is a separate service.
	SearchURL string `yaml:"search_url"`

	RequestTimeout  time.Duration `yaml:"request_timeout"`
	BannerTTL       time.Duration `yaml:"banner_ttl"`
	Sort            string        `yaml:"sort"`
	DefaultLocation string        `yaml:"default_location"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	LogLevel        string        `yaml:"log_level"`

	// Token is only read from the environment or the keyring.
	Token string `yaml:"-"`
}

type Reconnect struct {
	Base         time.Duration `yaml:"base"`
	Max          time.Duration `yaml:"max"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

type Relay struct {
	Addr           string   `yaml:"addr"`
	DatabaseURL    string   `yaml:"database_url"`
	RedisURL       string   `yaml:"redis_url"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	CleanupSchedule  string        `yaml:"cleanup_schedule"`
	Retention        time.Duration `yaml:"retention"`
	SubscriberBuffer int           `yaml:"subscriber_buffer"`
}

func Default() Config {
	var cfg Config
	cfg.Client.APIURL = "http://localhost:8000"
	cfg.Client.RequestTimeout = 30 * time.Second
	cfg.Client.BannerTTL = 8 * time.Second
	cfg.Client.Sort = "score"
	cfg.Client.DefaultLocation = "Remote"
	cfg.Client.RateBurst = 1
	cfg.Client.LogLevel = "info"

	cfg.Reconnect.Base = 500 * time.Millisecond
	cfg.Reconnect.Max = 30 * time.Second
	cfg.Reconnect.PingInterval = 25 * time.Second

	cfg.Relay.Addr = ":8000"
	cfg.Relay.RedisURL = "redis://localhost:6379/0"
	cfg.Relay.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.Relay.CleanupSchedule = "@daily"
	cfg.Relay.Retention = 90 * 24 * time.Hour
	cfg.Relay.SubscriberBuffer = 64
	return cfg
}

// Load reads path over the defaults. Keys missing from the file keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// DefaultDataDir is $JOBAGENT_DATA_DIR or <user config dir>/jobagent.
func DefaultDataDir() string {
	if d := os.Getenv("JOBAGENT_DATA_DIR"); d != "" {
		return d
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ".jobagent"
	}
	return filepath.Join(base, "jobagent")
}

// ChannelURL is the websocket endpoint for the live stream.
func (c Client) ChannelURL() string {
	base := c.WSURL
	if base == "" {
		base = c.APIURL
		switch {
		case strings.HasPrefix(base, "https://"):
			base = "wss://" + strings.TrimPrefix(base, "https://")
		case strings.HasPrefix(base, "http://"):
			base = "ws://" + strings.TrimPrefix(base, "http://")
		}
	}
	return strings.TrimRight(base, "/") + "/ws"
}

// SQLitePath is the relay's local store when no database_url is set.
func (c Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "jobs.db")
}
