package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Meeting is one recorded meeting as the server represents it.
type Meeting struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	JobID       string     `json:"job_id"`
	Stage       string     `json:"stage"`
	Duration    float64    `json:"duration_seconds,omitempty"`
	Language    string     `json:"language,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// meetingList is the server's list envelope.
type meetingList struct {
	Meetings []Meeting `json:"meetings"`
	Total    int       `json:"total"`
}

// ListMeetings returns up to limit meetings, most recent first. limit <= 0
// uses the server default.
func (c *Client) ListMeetings(ctx context.Context, limit int) ([]Meeting, error) {
	path := "/meetings"
	if limit > 0 {
		q := url.Values{"limit": []string{strconv.Itoa(limit)}}
		path += "?" + q.Encode()
	}

	var list meetingList
	if err := c.doJSON(ctx, SpanListMeetings, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Meetings, nil
}

// GetMeeting fetches one meeting by id.
func (c *Client) GetMeeting(ctx context.Context, meetingID string) (Meeting, error) {
	var m Meeting
	if err := c.doJSON(ctx, SpanGetMeeting, http.MethodGet, "/meetings/"+pathEscape(meetingID), nil, &m); err != nil {
		return Meeting{}, err
	}
	return m, nil
}

// HealthStatus is the server's health probe response.
type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	Message   string    `json:"message,omitempty"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Health probes the server.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var h HealthStatus
	if err := c.doJSON(ctx, SpanHealth, http.MethodGet, "/healthz", nil, &h); err != nil {
		return HealthStatus{}, err
	}
	return h, nil
}
