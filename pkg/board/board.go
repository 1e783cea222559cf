// Package board models the action-item board of a meeting: the items
// extracted by the analysis stage, the columns they move between, and the
// pure local transitions (move, reorder) applied optimistically ahead of
// server confirmation.
package board

import (
	"fmt"
	"sort"
	"time"
)

// Column identifies a board column an action item can occupy.
type Column string

const (
	ColumnPending    Column = "pending"
	ColumnInProgress Column = "in_progress"
	ColumnCompleted  Column = "completed"
)

// Columns lists the valid columns in display order.
var Columns = []Column{ColumnPending, ColumnInProgress, ColumnCompleted}

// Valid reports whether c is a known column.
func (c Column) Valid() bool {
	for _, known := range Columns {
		if c == known {
			return true
		}
	}
	return false
}

// ActionItem is one action item extracted from a meeting. Position orders
// items within their column; Priority is server-computed and may be
// recalculated on any mutation, so the client never guesses it.
type ActionItem struct {
	ID        string     `json:"id"`
	MeetingID string     `json:"meeting_id"`
	Title     string     `json:"title"`
	Assignee  string     `json:"assignee,omitempty"`
	Column    Column     `json:"status"`
	Position  int        `json:"position"`
	Priority  int        `json:"priority,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// MoveTo returns a copy of item placed in the target column. Position resets
// to the end of the target column (the server recomputes exact ordering).
func MoveTo(item ActionItem, target Column) ActionItem {
	moved := item
	moved.Column = target
	return moved
}

// Reposition returns a copy of item with the given position within its column.
func Reposition(item ActionItem, position int) ActionItem {
	if position < 0 {
		position = 0
	}
	moved := item
	moved.Position = position
	return moved
}

// Board is a snapshot of all action items of one meeting, keyed by item ID.
// It is the view state the OptimisticMutator publishes into; the rendering
// layer only ever reads copies out of it.
type Board struct {
	MeetingID string
	items     map[string]ActionItem
}

// NewBoard builds a board snapshot from a list of items.
func NewBoard(meetingID string, items []ActionItem) *Board {
	b := &Board{
		MeetingID: meetingID,
		items:     make(map[string]ActionItem, len(items)),
	}
	for _, item := range items {
		b.items[item.ID] = item
	}
	return b
}

// Get returns the item with the given id.
func (b *Board) Get(id string) (ActionItem, bool) {
	item, ok := b.items[id]
	return item, ok
}

// Put replaces (or inserts) an item snapshot.
func (b *Board) Put(item ActionItem) {
	b.items[item.ID] = item
}

// Len returns the number of items on the board.
func (b *Board) Len() int {
	return len(b.items)
}

// InColumn returns the items of one column ordered by position, then ID for
// a stable order when positions collide.
func (b *Board) InColumn(col Column) []ActionItem {
	var items []ActionItem
	for _, item := range b.items {
		if item.Column == col {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Position != items[j].Position {
			return items[i].Position < items[j].Position
		}
		return items[i].ID < items[j].ID
	})
	return items
}

// All returns every item grouped by column in display order.
func (b *Board) All() map[Column][]ActionItem {
	out := make(map[Column][]ActionItem, len(Columns))
	for _, col := range Columns {
		out[col] = b.InColumn(col)
	}
	return out
}

// ParseColumn validates a user-supplied column name.
func ParseColumn(s string) (Column, error) {
	col := Column(s)
	if !col.Valid() {
		return "", fmt.Errorf("unknown column %q (valid: pending, in_progress, completed)", s)
	}
	return col, nil
}
