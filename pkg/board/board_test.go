package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveToDoesNotMutateOriginal(t *testing.T) {
	item := ActionItem{ID: "a1", Column: ColumnPending, Position: 2}

	moved := MoveTo(item, ColumnCompleted)

	assert.Equal(t, ColumnCompleted, moved.Column)
	assert.Equal(t, ColumnPending, item.Column, "original must be untouched")
}

func TestReposition(t *testing.T) {
	item := ActionItem{ID: "a1", Column: ColumnPending, Position: 5}

	assert.Equal(t, 1, Reposition(item, 1).Position)
	assert.Equal(t, 0, Reposition(item, -3).Position, "negative positions clamp to 0")
	assert.Equal(t, 5, item.Position, "original must be untouched")
}

func TestParseColumn(t *testing.T) {
	col, err := ParseColumn("in_progress")
	require.NoError(t, err)
	assert.Equal(t, ColumnInProgress, col)

	_, err = ParseColumn("doing")
	assert.Error(t, err)
}

func TestBoardInColumnOrdering(t *testing.T) {
	b := NewBoard("m-1", []ActionItem{
		{ID: "c", Column: ColumnPending, Position: 1},
		{ID: "a", Column: ColumnPending, Position: 0},
		{ID: "b", Column: ColumnPending, Position: 1},
		{ID: "d", Column: ColumnCompleted, Position: 0},
	})

	pending := b.InColumn(ColumnPending)
	require.Len(t, pending, 3)
	assert.Equal(t, "a", pending[0].ID)
	// Equal positions fall back to ID order for stability.
	assert.Equal(t, "b", pending[1].ID)
	assert.Equal(t, "c", pending[2].ID)

	all := b.All()
	assert.Len(t, all[ColumnCompleted], 1)
	assert.Empty(t, all[ColumnInProgress])
}

func TestBoardPutAndGet(t *testing.T) {
	b := NewBoard("m-1", []ActionItem{{ID: "a1", Column: ColumnPending}})

	item, ok := b.Get("a1")
	require.True(t, ok)

	b.Put(MoveTo(item, ColumnInProgress))

	updated, ok := b.Get("a1")
	require.True(t, ok)
	assert.Equal(t, ColumnInProgress, updated.Column)
	assert.Equal(t, 1, b.Len())

	_, ok = b.Get("missing")
	assert.False(t, ok)
}
