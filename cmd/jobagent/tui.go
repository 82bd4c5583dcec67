package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jobagent/internal/rank"
	"jobagent/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive job list with live updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, v, err := loadConfig()
		if err != nil {
			return err
		}
		sortKey, err := rank.ParseSortKey(cfg.Client.Sort)
		if err != nil {
			return err
		}

		// The terminal belongs to the TUI; logs go to the data dir.
		logPath := filepath.Join(cfg.DataDir, "jobagent.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		l := newLogger(f, cfg.Client.LogLevel)
		logWarnings(l, v)

		ctx, stop := signalContext(cmd)
		defer stop()
		s, err := startSession(ctx, cfg, l, true)
		if err != nil {
			return err
		}
		defer s.Close()

		return tui.Run(ctx, s.eng, tui.Options{
			Sort:     sortKey,
			Location: cfg.Client.DefaultLocation,
			Logger:   l,
		})
	},
}

func init() { rootCmd.AddCommand(tuiCmd) }
