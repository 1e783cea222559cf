package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewHealthCommand creates the health command.
func NewHealthCommand(resolver DepsResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the meeting service",
		RunE: func(c *cobra.Command, args []string) error {
			deps, err := resolve(resolver, c)
			if err != nil {
				return err
			}

			status, err := deps.Client.Health(c.Context())
			if err != nil {
				return fmt.Errorf("health check against %s failed: %w", deps.Config.ServerURL, err)
			}

			return renderOutput(c.OutOrStdout(), deps.Config.OutputFormat, status, func(w io.Writer) error {
				state := "healthy"
				if !status.Healthy {
					state = "unhealthy"
				}
				printKV(w, "Server", deps.Config.ServerURL)
				printKV(w, "Status", state)
				if status.Version != "" {
					printKV(w, "Version", status.Version)
				}
				if status.Message != "" {
					printKV(w, "Message", status.Message)
				}
				return nil
			})
		},
	}
}
