package client

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for API requests.
	TracerName = "meetctl.client"
)

// Span attribute keys
const (
	AttrHTTPMethod = "http.method"
	AttrHTTPPath   = "http.path"
	AttrHTTPStatus = "http.status_code"
	AttrJobID      = "job_id"
	AttrMeetingID  = "meeting_id"
	AttrEntityID   = "entity_id"
)

// Span names
const (
	SpanGetJobStatus     = "meetctl.api.get_job_status"
	SpanRestartJob       = "meetctl.api.restart_job"
	SpanListMeetings     = "meetctl.api.list_meetings"
	SpanGetMeeting       = "meetctl.api.get_meeting"
	SpanListActionItems  = "meetctl.api.list_action_items"
	SpanUpdateActionItem = "meetctl.api.update_action_item"
	SpanHealth           = "meetctl.api.health"
)

// startSpan opens a span for one API call. Spans are named by operation, not
// by path, to keep cardinality down; the concrete path rides along as an
// attribute.
func startSpan(ctx context.Context, op, method, path string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, op,
		trace.WithAttributes(
			attribute.String(AttrHTTPMethod, method),
			attribute.String(AttrHTTPPath, path),
		),
	)
}

// finishSpan records the call outcome on the span.
func finishSpan(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		span.SetAttributes(attribute.Int(AttrHTTPStatus, apiErr.StatusCode))
	}
}
