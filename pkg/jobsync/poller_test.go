package jobsync

import (
	"context"
	"errors"
	"testing"
	"time"

	merrors "github.com/DavidC001/meetingAssistant-sub001/pkg/errors"
)

type fetchResult struct {
	raw RawStatus
	err error
}

// pollerHarness drives a Poller with a fetch that blocks until the test
// replies, so every cycle is fully under test control.
type pollerHarness struct {
	calls   chan chan fetchResult
	updates chan TrackedJob
	terrs   chan error
	poller  *Poller
}

func newPollerHarness(t *testing.T, cfg PollerConfig) *pollerHarness {
	t.Helper()
	h := &pollerHarness{
		calls:   make(chan chan fetchResult, 8),
		updates: make(chan TrackedJob, 8),
		terrs:   make(chan error, 8),
	}
	cfg.OnUpdate = func(job TrackedJob) { h.updates <- job }
	cfg.OnTransientError = func(err error) { h.terrs <- err }
	h.poller = NewPoller("job-1", func(ctx context.Context, id string) (RawStatus, error) {
		reply := make(chan fetchResult)
		h.calls <- reply
		r := <-reply
		return r.raw, r.err
	}, cfg)
	t.Cleanup(h.poller.Cancel)
	return h
}

func (h *pollerHarness) nextCall(t *testing.T) chan fetchResult {
	t.Helper()
	select {
	case c := <-h.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a fetch")
		return nil
	}
}

func (h *pollerHarness) nextUpdate(t *testing.T) TrackedJob {
	t.Helper()
	select {
	case job := <-h.updates:
		return job
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an update")
		return TrackedJob{}
	}
}

func (h *pollerHarness) expectNoUpdate(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case job := <-h.updates:
		t.Fatalf("unexpected update: %+v", job)
	case <-time.After(within):
	}
}

func (h *pollerHarness) expectDone(t *testing.T) {
	t.Helper()
	select {
	case <-h.poller.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

// quietPolicy reschedules far in the future so tests decide when the next
// fetch happens by refreshing, never by the clock.
func quietPolicy() PolicyConfig {
	return PolicyConfig{
		QueuedInterval:  time.Hour,
		DefaultInterval: time.Hour,
		MediumInterval:  time.Hour,
		ShortInterval:   time.Hour,
		Floor:           time.Millisecond,
	}
}

// fastPolicy refires quickly so multi-cycle tests finish promptly.
func fastPolicy() PolicyConfig {
	return PolicyConfig{
		QueuedInterval:  time.Millisecond,
		DefaultInterval: time.Millisecond,
		MediumInterval:  time.Millisecond,
		ShortInterval:   time.Millisecond,
		Floor:           time.Millisecond,
	}
}

func rawRunning(stage string, overall float64) RawStatus {
	return RawStatus{Stage: stage, StageProgress: overall, OverallProgress: overall}
}

func TestPollerStartFetchesImmediately(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	call := h.nextCall(t)
	call <- fetchResult{raw: rawRunning("transcription", 40)}

	job := h.nextUpdate(t)
	if job.Stage != StageTranscription || job.OverallProgress != 40 {
		t.Errorf("update = %+v, want transcription at 40", job)
	}

	snap, ok := h.poller.Snapshot()
	if !ok || snap.OverallProgress != 40 {
		t.Errorf("snapshot = %+v ok=%v", snap, ok)
	}
	if got := h.poller.State(); got != StateScheduled {
		t.Errorf("state = %v, want scheduled", got)
	}
}

func TestPollerStartTwiceFails(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.poller.Start(context.Background()); !merrors.IsInvalidState(err) {
		t.Errorf("second start = %v, want invalid state", err)
	}
}

func TestPollerStopsAtTerminalStatus(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	call := h.nextCall(t)
	call <- fetchResult{raw: RawStatus{Stage: "done", OverallProgress: 100}}

	job := h.nextUpdate(t)
	if !job.Terminal() {
		t.Errorf("update = %+v, want terminal", job)
	}
	h.expectDone(t)
	if got := h.poller.State(); got != StateStopped {
		t.Errorf("state = %v, want stopped", got)
	}
}

// A response that was in flight when a newer fetch was issued must never be
// applied, even when it resolves last.
func TestPollerDiscardsOutOfOrderResponse(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	first := h.nextCall(t)

	// Refresh while the first fetch is still in flight: the refresh's fetch
	// now owns the state.
	h.poller.Refresh()
	second := h.nextCall(t)

	second <- fetchResult{raw: rawRunning("analysis", 90)}
	job := h.nextUpdate(t)
	if job.Stage != StageAnalysis || job.OverallProgress != 90 {
		t.Fatalf("update = %+v, want analysis at 90", job)
	}

	// The slow first response arrives last and must be dropped on the floor.
	first <- fetchResult{raw: rawRunning("conversion", 10)}
	h.expectNoUpdate(t, 100*time.Millisecond)

	snap, ok := h.poller.Snapshot()
	if !ok || snap.Stage != StageAnalysis || snap.OverallProgress != 90 {
		t.Errorf("snapshot = %+v, stale response leaked through", snap)
	}
}

func TestPollerCancelDiscardsLateResponse(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	call := h.nextCall(t)
	h.poller.Cancel()
	h.expectDone(t)

	call <- fetchResult{raw: rawRunning("transcription", 70)}
	h.expectNoUpdate(t, 100*time.Millisecond)

	if _, ok := h.poller.Snapshot(); ok {
		t.Error("post-cancel response was applied")
	}
}

func TestPollerCancelIsIdempotent(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.poller.Cancel()
	h.poller.Cancel()
	h.expectDone(t)
}

func TestPollerTransientErrorKeepsStateAndRetries(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: fastPolicy()})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	call := h.nextCall(t)
	call <- fetchResult{raw: rawRunning("transcription", 40)}
	h.nextUpdate(t)

	boom := errors.New("connection refused")
	call = h.nextCall(t)
	call <- fetchResult{err: boom}

	select {
	case err := <-h.terrs:
		if !errors.Is(err, boom) {
			t.Errorf("transient callback error = %v, want wrapped %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("transient error callback never fired")
	}

	// The failure is a transport problem, not a pipeline verdict: the last
	// good state survives and polling continues.
	snap, ok := h.poller.Snapshot()
	if !ok || snap.Stage != StageTranscription || snap.OverallProgress != 40 {
		t.Errorf("snapshot after transport failure = %+v ok=%v", snap, ok)
	}

	call = h.nextCall(t)
	call <- fetchResult{raw: rawRunning("transcription", 45)}
	job := h.nextUpdate(t)
	if job.OverallProgress != 45 {
		t.Errorf("recovery update = %+v, want 45", job)
	}
}

func TestPollerReconcileTailGivesUp(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{
		Policy:    fastPolicy(),
		Reconcile: ReconcileConfig{Delays: []time.Duration{time.Millisecond, time.Millisecond}},
	})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	terminalPending := RawStatus{
		Stage:                  "done",
		OverallProgress:        100,
		DependentArtifactReady: boolPtr(false),
	}

	for i := 0; i < 2; i++ {
		call := h.nextCall(t)
		call <- fetchResult{raw: terminalPending}
		job := h.nextUpdate(t)
		if !job.Reconciling || job.ReconcileGaveUp {
			t.Fatalf("attempt %d: job = %+v, want reconciling", i, job)
		}
	}

	call := h.nextCall(t)
	call <- fetchResult{raw: terminalPending}
	job := h.nextUpdate(t)
	if !job.ReconcileGaveUp {
		t.Errorf("final update = %+v, want give-up surfaced", job)
	}
	// Giving up is a normal stop, never reported through the error callback.
	select {
	case err := <-h.terrs:
		t.Errorf("unexpected transient error: %v", err)
	default:
	}
	h.expectDone(t)
}

func TestPollerReconcileResolves(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{
		Policy:    fastPolicy(),
		Reconcile: ReconcileConfig{Delays: []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}},
	})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	call := h.nextCall(t)
	call <- fetchResult{raw: RawStatus{
		Stage:                  "done",
		OverallProgress:        100,
		DependentArtifactReady: boolPtr(false),
	}}
	job := h.nextUpdate(t)
	if !job.Reconciling {
		t.Fatalf("job = %+v, want reconciling", job)
	}

	call = h.nextCall(t)
	call <- fetchResult{raw: RawStatus{
		Stage:                  "done",
		OverallProgress:        100,
		DependentArtifactReady: boolPtr(true),
	}}
	job = h.nextUpdate(t)
	if !job.ArtifactReady || job.Reconciling || job.ReconcileGaveUp {
		t.Errorf("job = %+v, want artifact ready", job)
	}
	h.expectDone(t)
}

func TestPollerRestartAfterTerminalStop(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	call := h.nextCall(t)
	call <- fetchResult{raw: RawStatus{Stage: "failed", ErrorMessage: strPtr("model unavailable")}}
	job := h.nextUpdate(t)
	if job.Stage != StageFailed || job.ErrorMessage != "model unavailable" {
		t.Fatalf("update = %+v, want failed", job)
	}
	h.expectDone(t)

	if err := h.poller.Restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}

	call = h.nextCall(t)
	call <- fetchResult{raw: RawStatus{Stage: "queued"}}
	job = h.nextUpdate(t)
	if job.Stage != StageQueued {
		t.Errorf("post-restart update = %+v, want queued", job)
	}

	select {
	case <-h.poller.Done():
		t.Error("restarted poller reports done")
	default:
	}
}

func TestPollerRestartBeforeStartFails(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})
	if err := h.poller.Restart(); !merrors.IsInvalidState(err) {
		t.Errorf("restart on idle poller = %v, want invalid state", err)
	}
}

func TestPollerRestartAfterCancelBeforeStart(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})

	// Cancel is valid from any state, including before Start; a Restart
	// after that has no run to resume and must refuse, not panic.
	h.poller.Cancel()
	if err := h.poller.Restart(); !merrors.IsInvalidState(err) {
		t.Errorf("restart after cancel-before-start = %v, want invalid state", err)
	}
}

func TestPollerRestartWhileRunningRefreshes(t *testing.T) {
	h := newPollerHarness(t, PollerConfig{Policy: quietPolicy()})

	if err := h.poller.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	call := h.nextCall(t)
	call <- fetchResult{raw: rawRunning("diarization", 30)}
	h.nextUpdate(t)

	// Scheduled an hour out; Restart on a live poller forces the next fetch
	// now instead of failing.
	if err := h.poller.Restart(); err != nil {
		t.Fatalf("restart while running: %v", err)
	}
	call = h.nextCall(t)
	call <- fetchResult{raw: rawRunning("diarization", 35)}
	if job := h.nextUpdate(t); job.OverallProgress != 35 {
		t.Errorf("update = %+v, want 35", job)
	}
}
