package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jobagent/internal/config"
)

var (
	dataDir  string
	logLevel string
	apiURL   string
)

var rootCmd = &cobra.Command{
	Use:           "jobagent",
	Short:         "Live job feed for the job agent backend, plus its websocket relay",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Config and data directory (default $JOBAGENT_DATA_DIR or <user config dir>/jobagent)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides client.log_level)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Backend base url (overrides client.api_url)")
}

// loadConfig resolves config.yml in the data dir and applies the global flags.
func loadConfig() (config.Config, config.Validation, error) {
	cfg, v, err := config.Resolve(dataDir)
	if err != nil {
		return cfg, v, err
	}
	if apiURL != "" {
		cfg.Client.APIURL = apiURL
		if err := config.Validate(cfg); err != nil {
			return cfg, v, err
		}
	}
	if logLevel != "" {
		cfg.Client.LogLevel = logLevel
	}
	return cfg, v, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv}))
}

func logWarnings(l *slog.Logger, v config.Validation) {
	for _, w := range v.Warnings {
		l.Warn("config", "warning", w)
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
