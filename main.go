// Package main provides the meetctl CLI entry point.
// meetctl is the command-line interface for the meeting transcription service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DavidC001/meetingAssistant-sub001/cmd"
	"github.com/DavidC001/meetingAssistant-sub001/config"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/buildinfo"
)

// Global flags. Commands read them back through the flag set so that file
// and environment configuration only lose to flags the user actually set.
var (
	serverURL    string
	outputFormat string
	debug        bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "meetctl",
	Short: "CLI for the meeting transcription service",
	Long: `meetctl is the command-line interface for the meeting transcription service.

Recordings uploaded to the service move through a processing pipeline
(conversion, transcription, diarization, analysis). meetctl follows that
pipeline live, browses finished meetings, and manages the action items
extracted from them.

COMMON WORKFLOWS:
  Follow processing:  meetctl meeting list  →  meetctl watch <meeting-id>
  Retry a failure:    meetctl meeting restart <meeting-id> --watch
  Work action items:  meetctl actions list --meeting <id>  →  meetctl actions move <item> --to in_progress
  Check the server:   meetctl health

Run 'meetctl <command> --help' for flags and examples. All commands support
--output json for machine-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the version, commit hash, and build time of the meetctl CLI.

Examples:
  meetctl version
  meetctl version --output json`,
	RunE: func(c *cobra.Command, args []string) error {
		info := buildinfo.Get()
		format := config.OutputFormatText
		if f := c.Flags().Lookup("output"); f != nil && f.Changed {
			format = config.OutputFormat(f.Value.String())
		}
		return cmd.RenderVersion(c.OutOrStdout(), format, info)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "meeting service URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cmd.NewWatchCommand(nil))
	rootCmd.AddCommand(cmd.NewMeetingCommand(nil))
	rootCmd.AddCommand(cmd.NewActionsCommand(nil))
	rootCmd.AddCommand(cmd.NewAuthCommand(nil))
	rootCmd.AddCommand(cmd.NewHealthCommand(nil))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
