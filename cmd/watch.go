package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DavidC001/meetingAssistant-sub001/config"
	merrors "github.com/DavidC001/meetingAssistant-sub001/pkg/errors"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/jobsync"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/logging"
)

// NewWatchCommand creates the watch command: a live view of one meeting's
// processing job, polling until the pipeline reaches a terminal state.
func NewWatchCommand(resolver DepsResolver) *cobra.Command {
	var jobFlag bool

	cmd := &cobra.Command{
		Use:   "watch <meeting-id>",
		Short: "Follow a meeting's processing pipeline live",
		Long: `Follow a meeting's processing pipeline live until it completes or fails.

The poll rate adapts to the pipeline phase: queued jobs are checked
occasionally, jobs close to completion every few seconds. After completion
the command briefly keeps checking for the summary audio, which the server
generates asynchronously.

Press Ctrl-C to stop watching; the server keeps processing regardless.

Examples:
  meetctl watch 2f9a1c                Watch the meeting's processing job
  meetctl watch --job 77b0d2          Watch a job id directly
  meetctl watch 2f9a1c --output json  One JSON object per update (for scripts)`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			deps, err := resolve(resolver, c)
			if err != nil {
				return err
			}
			return runWatch(c, deps, args[0], jobFlag)
		},
	}

	cmd.Flags().BoolVar(&jobFlag, "job", false, "treat the argument as a job id instead of a meeting id")
	return cmd
}

func runWatch(c *cobra.Command, deps *Deps, id string, isJob bool) error {
	ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobID := id
	if !isJob {
		meeting, err := deps.Client.GetMeeting(ctx, id)
		if err != nil {
			return fmt.Errorf("resolving meeting %s: %w", id, err)
		}
		jobID = meeting.JobID
	}

	out := c.OutOrStdout()
	format := deps.Config.OutputFormat

	poller := jobsync.NewPoller(jobID, deps.Client.GetProcessingStatus, jobsync.PollerConfig{
		Policy:       deps.Config.Polling.PolicyConfig(),
		Reconcile:    deps.Config.Polling.ReconcileConfig(),
		FetchTimeout: deps.Config.Polling.FetchTimeout.Std(),
		Jitter:       deps.Config.Polling.Jitter(),
		Logger:       deps.Logger,
		OnUpdate: func(job jobsync.TrackedJob) {
			renderJobUpdate(out, format, job)
		},
		OnTransientError: func(err error) {
			deps.Logger.Warn("connection trouble, still trying", logging.Err(err))
		},
	})

	if err := poller.Start(ctx); err != nil {
		return err
	}

	select {
	case <-poller.Done():
	case <-ctx.Done():
		poller.Cancel()
		fmt.Fprintln(out, "stopped watching; processing continues on the server")
		return nil
	}

	if job, ok := poller.Snapshot(); ok {
		renderJobVerdict(out, format, job)
	}
	return nil
}

// renderJobUpdate prints one status line (text) or one JSON object per
// update.
func renderJobUpdate(w io.Writer, format config.OutputFormat, job jobsync.TrackedJob) {
	if format == config.OutputFormatJSON {
		_ = json.NewEncoder(w).Encode(job)
		return
	}

	switch {
	case job.Stage == jobsync.StageFailed:
		fmt.Fprintf(w, "%-14s pipeline failed\n", job.Stage)
	case job.Reconciling:
		fmt.Fprintf(w, "%-14s waiting for summary audio\n", job.Stage)
	default:
		fmt.Fprintf(w, "%-14s %s %5.1f%%\n", job.Stage, progressBar(job.OverallProgress, 30), job.OverallProgress)
	}
}

// renderJobVerdict prints the closing summary once the poller has stopped.
func renderJobVerdict(w io.Writer, format config.OutputFormat, job jobsync.TrackedJob) {
	if format == config.OutputFormatJSON {
		return // the last update already carried the terminal state
	}

	switch {
	case job.Stage == jobsync.StageFailed:
		pe := merrors.ClassifyMessage(job.ErrorMessage, job.Stage.String())
		fmt.Fprintf(w, "\nprocessing failed: %s\n", job.ErrorMessage)
		if action := merrors.GetSuggestedAction(pe.Code); action != "" {
			fmt.Fprintf(w, "suggestion: %s\n", action)
		}
	case job.ReconcileGaveUp:
		fmt.Fprintln(w, "\ndone; summary audio may still be generating, check back later")
	default:
		fmt.Fprintln(w, "\ndone")
	}
}
