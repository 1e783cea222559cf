package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/DavidC001/meetingAssistant-sub001/client"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/board"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/jobsync"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/logging"
)

// NewActionsCommand creates the actions command group for the action-item
// board extracted from a meeting.
func NewActionsCommand(resolver DepsResolver) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Manage a meeting's action-item board",
		Long: `Manage the action items extracted from a meeting.

Items live on a three-column board (pending, in_progress, completed). Moves
and reorders apply locally first and are confirmed by the server; if the
server rejects a change, the item snaps back to its previous place.

Examples:
  meetctl actions list 2f9a1c
  meetctl actions move item-7 --meeting 2f9a1c --to completed
  meetctl actions reorder item-7 --meeting 2f9a1c --position 0`,
	}

	cmd.AddCommand(newActionsListCommand(resolver))
	cmd.AddCommand(newActionsMoveCommand(resolver))
	cmd.AddCommand(newActionsReorderCommand(resolver))
	return cmd
}

func newActionsListCommand(resolver DepsResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "list <meeting-id>",
		Short: "List a meeting's action items by column",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			deps, err := resolve(resolver, c)
			if err != nil {
				return err
			}
			items, err := deps.Client.ListActionItems(c.Context(), args[0])
			if err != nil {
				return fmt.Errorf("listing action items: %w", err)
			}

			b := board.NewBoard(args[0], items)
			return renderOutput(c.OutOrStdout(), deps.Config.OutputFormat, b.All(), func(w io.Writer) error {
				renderBoard(w, b)
				return nil
			})
		},
	}
}

func renderBoard(w io.Writer, b *board.Board) {
	for _, col := range board.Columns {
		items := b.InColumn(col)
		fmt.Fprintf(w, "%s (%d)\n", col, len(items))
		for _, item := range items {
			line := "  " + truncate(item.Title, 60)
			if item.Assignee != "" {
				line += "  @" + item.Assignee
			}
			fmt.Fprintf(w, "%s  [%s]\n", line, item.ID)
		}
	}
}

func newActionsMoveCommand(resolver DepsResolver) *cobra.Command {
	var meetingID, target string

	cmd := &cobra.Command{
		Use:   "move <item-id>",
		Short: "Move an action item to another column",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			col, err := board.ParseColumn(target)
			if err != nil {
				return err
			}
			return runActionMutation(c, resolver, meetingID, args[0], func(item board.ActionItem) board.ActionItem {
				return board.MoveTo(item, col)
			})
		},
	}

	cmd.Flags().StringVar(&meetingID, "meeting", "", "meeting the item belongs to (required)")
	cmd.Flags().StringVar(&target, "to", "", "target column: pending, in_progress, completed (required)")
	_ = cmd.MarkFlagRequired("meeting")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newActionsReorderCommand(resolver DepsResolver) *cobra.Command {
	var meetingID string
	var position int

	cmd := &cobra.Command{
		Use:   "reorder <item-id>",
		Short: "Change an action item's position within its column",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runActionMutation(c, resolver, meetingID, args[0], func(item board.ActionItem) board.ActionItem {
				return board.Reposition(item, position)
			})
		},
	}

	cmd.Flags().StringVar(&meetingID, "meeting", "", "meeting the item belongs to (required)")
	cmd.Flags().IntVar(&position, "position", 0, "zero-based position within the column")
	_ = cmd.MarkFlagRequired("meeting")
	return cmd
}

// runActionMutation loads the item's current state, applies the transition
// optimistically, and commits it to the server, printing the rollback when
// the server disagrees.
func runActionMutation(c *cobra.Command, resolver DepsResolver, meetingID, itemID string, transition func(board.ActionItem) board.ActionItem) error {
	deps, err := resolve(resolver, c)
	if err != nil {
		return err
	}
	ctx := c.Context()
	out := c.OutOrStdout()

	items, err := deps.Client.ListActionItems(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("loading board for meeting %s: %w", meetingID, err)
	}
	b := board.NewBoard(meetingID, items)
	current, ok := b.Get(itemID)
	if !ok {
		return fmt.Errorf("action item %s not found in meeting %s", itemID, meetingID)
	}

	mutator := jobsync.NewMutator[board.ActionItem](
		func(ctx context.Context, entityID string, proposed board.ActionItem) (board.ActionItem, error) {
			col := proposed.Column
			pos := proposed.Position
			return deps.Client.UpdateActionItem(ctx, entityID, client.ActionItemPatch{Column: &col, Position: &pos})
		},
		func(entityID string, snapshot board.ActionItem) {
			b.Put(snapshot)
			fmt.Fprintf(out, "%s -> %s (position %d)\n", snapshot.ID, snapshot.Column, snapshot.Position)
		},
		jobsync.MutatorConfig{Logger: deps.Logger},
	)

	edit, err := mutator.Apply(itemID, current, transition)
	if err != nil {
		return err
	}
	if err := mutator.Commit(ctx, edit); err != nil {
		deps.Logger.Warn("server rejected the change", logging.Err(err))
		fmt.Fprintf(out, "change rejected, %s restored to %s (position %d)\n",
			current.ID, current.Column, current.Position)
		return err
	}
	return nil
}
