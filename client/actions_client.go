package client

import (
	"context"
	"net/http"

	"github.com/DavidC001/meetingAssistant-sub001/pkg/board"
)

// actionItemList is the server's list envelope.
type actionItemList struct {
	Items []board.ActionItem `json:"items"`
	Total int                `json:"total"`
}

// ListActionItems returns the action items extracted from a meeting.
func (c *Client) ListActionItems(ctx context.Context, meetingID string) ([]board.ActionItem, error) {
	var list actionItemList
	path := "/meetings/" + pathEscape(meetingID) + "/action-items"
	if err := c.doJSON(ctx, SpanListActionItems, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ActionItemPatch is a partial update of one action item. Nil fields are
// left untouched by the server.
type ActionItemPatch struct {
	Column   *board.Column `json:"status,omitempty"`
	Position *int          `json:"position,omitempty"`
	Assignee *string       `json:"assignee,omitempty"`
}

// UpdateActionItem applies a partial update and returns the server's
// representation, a superset of the locally guessed fields (the server also
// recomputes ordering and stamps updated_at).
func (c *Client) UpdateActionItem(ctx context.Context, entityID string, patch ActionItemPatch) (board.ActionItem, error) {
	var item board.ActionItem
	path := "/entities/" + pathEscape(entityID)
	if err := c.doJSON(ctx, SpanUpdateActionItem, http.MethodPatch, path, patch, &item); err != nil {
		return board.ActionItem{}, err
	}
	return item, nil
}
