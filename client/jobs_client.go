package client

import (
	"context"
	"net/http"

	"github.com/DavidC001/meetingAssistant-sub001/pkg/jobsync"
)

// GetProcessingStatus fetches the raw processing status of one job. The
// signature matches jobsync.FetchFunc so the client plugs straight into a
// Poller.
func (c *Client) GetProcessingStatus(ctx context.Context, jobID string) (jobsync.RawStatus, error) {
	var raw jobsync.RawStatus
	err := c.doJSON(ctx, SpanGetJobStatus, http.MethodGet, "/jobs/"+pathEscape(jobID), nil, &raw)
	if err != nil {
		return jobsync.RawStatus{}, err
	}
	return raw, nil
}

// RestartJob asks the server to re-enqueue a failed or completed job. The
// response is the fresh status, stage reset to the head of the pipeline.
func (c *Client) RestartJob(ctx context.Context, jobID string) (jobsync.RawStatus, error) {
	var raw jobsync.RawStatus
	err := c.doJSON(ctx, SpanRestartJob, http.MethodPost, "/jobs/"+pathEscape(jobID)+"/restart", nil, &raw)
	if err != nil {
		return jobsync.RawStatus{}, err
	}
	return raw, nil
}
