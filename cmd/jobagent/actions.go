package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"jobagent/internal/engine"
)

var (
	crawlLocation string

	generateWait    bool
	generateTimeout time.Duration

	draftPDF  string
	draftCopy bool

	resetYes bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <start-url>",
	Short: "Ask the crawler to scan a careers page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, v, err := loadConfig()
		if err != nil {
			return err
		}
		l := newLogger(os.Stderr, cfg.Client.LogLevel)
		logWarnings(l, v)
		if crawlLocation == "" {
			crawlLocation = cfg.Client.DefaultLocation
		}

		ctx, stop := signalContext(cmd)
		defer stop()
		s, err := startSession(ctx, cfg, l, false)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.eng.StartCrawl(ctx, args[0], crawlLocation)
		if err != nil {
			return err
		}
		if res.Rejected() {
			return fmt.Errorf("crawl rejected: %s", res.Message)
		}
		fmt.Printf("crawl %s (%s)\n", strings.ToLower(res.Status), args[0])
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate <job-id>",
	Short: "Request a cover letter draft for a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, v, err := loadConfig()
		if err != nil {
			return err
		}
		l := newLogger(os.Stderr, cfg.Client.LogLevel)
		logWarnings(l, v)
		id := args[0]

		ctx, stop := signalContext(cmd)
		defer stop()
		s, err := startSession(ctx, cfg, l, generateWait)
		if err != nil {
			return err
		}
		defer s.Close()

		lookup, cancel := context.WithTimeout(ctx, cfg.Client.RequestTimeout)
		_, err = s.waitJob(lookup, id)
		cancel()
		if err != nil {
			return err
		}

		draft, err := s.eng.RequestGeneration(ctx, id)
		if err != nil {
			return err
		}
		if draft != "" {
			fmt.Println(draft)
			return nil
		}
		if !generateWait {
			fmt.Printf("generation started for %s\n", id)
			return nil
		}

		wctx, cancel := context.WithTimeout(ctx, generateTimeout)
		defer cancel()
		st, err := s.eng.WaitFor(wctx, func(st *engine.State) bool {
			_, ok := st.Draft(id)
			return ok || !st.IsPending(id)
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no draft for %s after %s", id, generateTimeout)
		}
		if err != nil {
			return err
		}
		if d, ok := st.Draft(id); ok {
			fmt.Println(d)
			return nil
		}
		if j, ok := st.Job(id); ok && j.GenerationError != "" {
			return fmt.Errorf("generation failed: %s", j.GenerationError)
		}
		return fmt.Errorf("generation for %s finished without a draft", id)
	},
}

var draftCmd = &cobra.Command{
	Use:   "draft <job-id>",
	Short: "Print, copy or download a job's cover letter draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, v, err := loadConfig()
		if err != nil {
			return err
		}
		l := newLogger(os.Stderr, cfg.Client.LogLevel)
		logWarnings(l, v)
		id := args[0]

		ctx, stop := signalContext(cmd)
		defer stop()
		s, err := startSession(ctx, cfg, l, false)
		if err != nil {
			return err
		}
		defer s.Close()

		lookup, cancel := context.WithTimeout(ctx, cfg.Client.RequestTimeout)
		j, err := s.waitJob(lookup, id)
		cancel()
		if err != nil {
			return err
		}
		if !j.HasDraft() {
			return fmt.Errorf("job %s has no draft yet (run `jobagent generate %s`)", id, id)
		}

		if draftPDF != "" {
			pdf, err := s.eng.DownloadDraft(ctx, id)
			if err != nil {
				return err
			}
			if err := os.WriteFile(draftPDF, pdf, 0o644); err != nil {
				return err
			}
			fmt.Printf("saved %s (%d bytes)\n", draftPDF, len(pdf))
			return nil
		}
		if draftCopy {
			if err := clipboard.WriteAll(j.ApplicationDraft); err != nil {
				return fmt.Errorf("clipboard: %w", err)
			}
			fmt.Println("draft copied to clipboard")
			return nil
		}
		fmt.Println(j.ApplicationDraft)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every job on the backend and reset its settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return errors.New("reset deletes all jobs on the backend; pass --yes to confirm")
		}
		cfg, v, err := loadConfig()
		if err != nil {
			return err
		}
		l := newLogger(os.Stderr, cfg.Client.LogLevel)
		logWarnings(l, v)

		ctx, stop := signalContext(cmd)
		defer stop()
		s, err := startSession(ctx, cfg, l, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.eng.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("backend reset")
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlLocation, "location", "", "Location filter (default client.default_location)")
	generateCmd.Flags().BoolVar(&generateWait, "wait", false, "Wait for the draft on the live stream and print it")
	generateCmd.Flags().DurationVar(&generateTimeout, "timeout", 5*time.Minute, "How long --wait waits")
	draftCmd.Flags().StringVar(&draftPDF, "pdf", "", "Save the backend-rendered PDF to this file")
	draftCmd.Flags().BoolVar(&draftCopy, "copy", false, "Copy the draft to the clipboard")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm the reset")

	rootCmd.AddCommand(crawlCmd, generateCmd, draftCmd, resetCmd)
}
