package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DavidC001/meetingAssistant-sub001/pkg/board"
	merrors "github.com/DavidC001/meetingAssistant-sub001/pkg/errors"
)

// fastOptions disables real backoff waits so retry tests run instantly.
func fastOptions() *ClientOptions {
	opts := DefaultOptions()
	opts.InitialBackoff = time.Millisecond
	opts.MaxBackoff = 2 * time.Millisecond
	return opts
}

func TestClientSendsAuthAndInstanceHeaders(t *testing.T) {
	var gotAuth, gotInstance string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotInstance = r.Header.Get("X-Client-Instance")
		_ = json.NewEncoder(w).Encode(map[string]any{"stage": "queued"})
	}))
	defer srv.Close()

	opts := fastOptions()
	opts.Token = func() (string, error) { return "tok-123", nil }
	c := New(srv.URL, opts)

	_, err := c.GetProcessingStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, c.InstanceID(), gotInstance)
}

func TestClientGetProcessingStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/jobs/job-42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"stage":            "transcription",
			"stage_progress":   55.0,
			"overall_progress": 62.5,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, fastOptions())
	raw, err := c.GetProcessingStatus(context.Background(), "job-42")
	require.NoError(t, err)
	assert.Equal(t, "transcription", raw.Stage)
	assert.Equal(t, 62.5, raw.OverallProgress)
}

func TestClientMapsStatusCodesToDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, merrors.IsNotFound},
		{"unauthorized", http.StatusUnauthorized, merrors.IsUnauthorized},
		{"forbidden", http.StatusForbidden, merrors.IsUnauthorized},
		{"conflict", http.StatusConflict, merrors.IsConflict},
		{"validation", http.StatusUnprocessableEntity, merrors.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
			}))
			defer srv.Close()

			c := New(srv.URL, fastOptions())
			_, err := c.GetMeeting(context.Background(), "m-1")
			require.Error(t, err)
			assert.True(t, tt.check(err), "wrong classification for %d: %v", tt.status, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "nope", apiErr.Message)
		})
	}
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"stage": "done", "overall_progress": 100})
	}))
	defer srv.Close()

	c := New(srv.URL, fastOptions())
	raw, err := c.GetProcessingStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "done", raw.Stage)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientDoesNotRetryAuthoritativeFailures(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, fastOptions())
	_, err := c.GetMeeting(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, merrors.IsNotFound(err))
	assert.EqualValues(t, 1, calls.Load(), "a definitive answer must not be retried")
}

func TestClientRetryBudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, fastOptions())
	_, err := c.GetProcessingStatus(context.Background(), "job-1")
	require.Error(t, err)
	assert.True(t, merrors.IsTransient(err))
}

func TestClientNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	opts := fastOptions()
	opts.MaxRetries = 0
	c := New(srv.URL, opts)
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, merrors.IsTransient(err))
}

func TestClientUpdateActionItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/entities/item-7", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var patch ActionItemPatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		require.NotNil(t, patch.Column)
		assert.Equal(t, board.ColumnCompleted, *patch.Column)

		_ = json.NewEncoder(w).Encode(board.ActionItem{
			ID:        "item-7",
			Column:    *patch.Column,
			UpdatedAt: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		})
	}))
	defer srv.Close()

	c := New(srv.URL, fastOptions())
	col := board.ColumnCompleted
	item, err := c.UpdateActionItem(context.Background(), "item-7", ActionItemPatch{Column: &col})
	require.NoError(t, err)
	assert.Equal(t, board.ColumnCompleted, item.Column)
	assert.False(t, item.UpdatedAt.IsZero(), "server-stamped field must come back")
}

func TestClientListMeetingsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(meetingList{
			Meetings: []Meeting{{ID: "m-1", Title: "Weekly sync"}},
			Total:    1,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, fastOptions())
	meetings, err := c.ListMeetings(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, meetings, 1)
	assert.Equal(t, "Weekly sync", meetings[0].Title)
}
