// Package cmd defines and implements the CLI commands for the noticebot executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noticebot",
		Short: "Summarizes school notice photos for a chat skill webhook.",
		Long: `noticebot receives skill webhook calls carrying a photo of a school
notice, acknowledges them immediately, and delivers a short summary of the
notice to the platform's callback URL once the vision model has read it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML); env vars use the NOTICE_ prefix")

	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
