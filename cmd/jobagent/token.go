package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jobagent/internal/secrets"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the backend api token in the OS keychain",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the token (read from stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		var tok string
		if len(args) == 1 {
			tok = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read token: %w", err)
			}
			tok = strings.TrimSpace(line)
		}
		if err := secrets.SetToken(cfg.Client.APIURL, tok); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "token stored for %s\n", cfg.Client.APIURL)
		return nil
	},
}

var tokenGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print whether a token is configured",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		tok, err := secrets.GetToken(cfg.Client.APIURL, cfg.Client.Token)
		if err != nil {
			return err
		}
		src := "keychain"
		if strings.TrimSpace(cfg.Client.Token) != "" {
			src = "JOBAGENT_TOKEN"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "token for %s from %s: %s\n", cfg.Client.APIURL, src, mask(tok))
		return nil
	},
}

var tokenDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if err := secrets.DeleteToken(cfg.Client.APIURL); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "token removed for %s\n", cfg.Client.APIURL)
		return nil
	},
}

func mask(tok string) string {
	if len(tok) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(tok)-4) + tok[len(tok)-4:]
}

func init() {
	tokenCmd.AddCommand(tokenSetCmd, tokenGetCmd, tokenDeleteCmd)
	rootCmd.AddCommand(tokenCmd)
}
