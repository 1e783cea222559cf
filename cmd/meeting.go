package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/DavidC001/meetingAssistant-sub001/client"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/jobsync"
)

// NewMeetingCommand creates the meeting command group.
func NewMeetingCommand(resolver DepsResolver) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meeting",
		Short: "Inspect and manage recorded meetings",
		Long: `Inspect and manage recorded meetings.

Subcommands:
  list      List recent meetings and their pipeline stage
  show      Show one meeting in detail
  restart   Re-enqueue a failed meeting's processing job

Examples:
  meetctl meeting list
  meetctl meeting show 2f9a1c
  meetctl meeting restart 2f9a1c --watch`,
	}

	cmd.AddCommand(newMeetingListCommand(resolver))
	cmd.AddCommand(newMeetingShowCommand(resolver))
	cmd.AddCommand(newMeetingRestartCommand(resolver))
	return cmd
}

func newMeetingListCommand(resolver DepsResolver) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent meetings",
		RunE: func(c *cobra.Command, args []string) error {
			deps, err := resolve(resolver, c)
			if err != nil {
				return err
			}
			meetings, err := deps.Client.ListMeetings(c.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing meetings: %w", err)
			}

			return renderOutput(c.OutOrStdout(), deps.Config.OutputFormat, meetings, func(w io.Writer) error {
				if len(meetings) == 0 {
					fmt.Fprintln(w, "no meetings")
					return nil
				}
				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tTITLE\tSTAGE\tCREATED")
				for _, m := range meetings {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						m.ID, truncate(m.Title, 40), m.Stage, m.CreatedAt.Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of meetings to list")
	return cmd
}

func newMeetingShowCommand(resolver DepsResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show one meeting in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			deps, err := resolve(resolver, c)
			if err != nil {
				return err
			}
			meeting, err := deps.Client.GetMeeting(c.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetching meeting %s: %w", args[0], err)
			}

			return renderOutput(c.OutOrStdout(), deps.Config.OutputFormat, meeting, func(w io.Writer) error {
				renderMeeting(w, meeting)
				return nil
			})
		},
	}
}

func renderMeeting(w io.Writer, m client.Meeting) {
	printKV(w, "ID", m.ID)
	printKV(w, "Title", m.Title)
	printKV(w, "Stage", m.Stage)
	printKV(w, "Job", m.JobID)
	if m.Duration > 0 {
		printKV(w, "Duration", (time.Duration(m.Duration) * time.Second).String())
	}
	if m.Language != "" {
		printKV(w, "Language", m.Language)
	}
	printKV(w, "Created", m.CreatedAt.Format(time.RFC3339))
	if m.CompletedAt != nil {
		printKV(w, "Completed", m.CompletedAt.Format(time.RFC3339))
	}
}

func newMeetingRestartCommand(resolver DepsResolver) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "restart <meeting-id>",
		Short: "Re-enqueue a meeting's processing job",
		Long: `Re-enqueue a meeting's processing job from the start of the pipeline.

Meant for jobs that failed (bad model day, rate limits); the server accepts
restarts of completed jobs too and will regenerate all artifacts.

Examples:
  meetctl meeting restart 2f9a1c
  meetctl meeting restart 2f9a1c --watch   Restart, then follow progress`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			deps, err := resolve(resolver, c)
			if err != nil {
				return err
			}

			meeting, err := deps.Client.GetMeeting(c.Context(), args[0])
			if err != nil {
				return fmt.Errorf("resolving meeting %s: %w", args[0], err)
			}
			raw, err := deps.Client.RestartJob(c.Context(), meeting.JobID)
			if err != nil {
				return fmt.Errorf("restarting job %s: %w", meeting.JobID, err)
			}

			job := jobsync.ParseStatus(meeting.JobID, raw)
			fmt.Fprintf(c.OutOrStdout(), "job %s restarted, now %s\n", meeting.JobID, job.Stage)

			if watch {
				return runWatch(c, deps, meeting.JobID, true)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "follow the restarted job's progress")
	return cmd
}
