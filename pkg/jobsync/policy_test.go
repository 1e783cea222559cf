package jobsync

import (
	"testing"
	"time"
)

func testPolicyConfig() PolicyConfig {
	return PolicyConfig{
		QueuedInterval:  40 * time.Millisecond,
		DefaultInterval: 20 * time.Millisecond,
		MediumInterval:  10 * time.Millisecond,
		ShortInterval:   4 * time.Millisecond,
		Floor:           time.Millisecond,
	}
}

func TestPolicyTierSelection(t *testing.T) {
	p := NewPolicy(testPolicyConfig())

	tests := []struct {
		name string
		job  TrackedJob
		want time.Duration
	}{
		{"queued", TrackedJob{Stage: StageQueued}, 40 * time.Millisecond},
		{"running low progress", TrackedJob{Stage: StageConversion, OverallProgress: 5}, 20 * time.Millisecond},
		{"running at medium threshold", TrackedJob{Stage: StageDiarization, OverallProgress: 50}, 20 * time.Millisecond},
		{"running past medium", TrackedJob{Stage: StageTranscription, OverallProgress: 55}, 10 * time.Millisecond},
		{"running at short threshold", TrackedJob{Stage: StageAnalysis, OverallProgress: 80}, 10 * time.Millisecond},
		{"running past short", TrackedJob{Stage: StageAnalysis, OverallProgress: 81}, 4 * time.Millisecond},
		{"almost done", TrackedJob{Stage: StageAnalysis, OverallProgress: 95}, 4 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, stop := p.NextDelay(tt.job, 1)
			if stop {
				t.Fatal("unexpected stop for non-terminal job")
			}
			if delay != tt.want {
				t.Errorf("delay = %v, want %v", delay, tt.want)
			}
		})
	}
}

func TestPolicyStopsAtTerminal(t *testing.T) {
	p := NewPolicy(testPolicyConfig())

	// Terminal with artifact ready, or with no artifact at all: stop.
	for _, job := range []TrackedJob{
		{Stage: StageDone, OverallProgress: 100},
		{Stage: StageDone, OverallProgress: 100, ArtifactExpected: true, ArtifactReady: true},
		{Stage: StageFailed},
		// Lagging artifacts are the reconcile guard's concern; the pure
		// policy still says stop for any terminal stage.
		{Stage: StageDone, OverallProgress: 100, ArtifactExpected: true},
	} {
		if _, stop := p.NextDelay(job, 3); !stop {
			t.Errorf("expected stop for %+v", job)
		}
	}
}

func TestPolicyFloor(t *testing.T) {
	p := NewPolicy(PolicyConfig{
		QueuedInterval:  time.Millisecond,
		DefaultInterval: time.Millisecond,
		MediumInterval:  time.Millisecond,
		ShortInterval:   time.Millisecond,
		Floor:           50 * time.Millisecond,
	})

	jobs := []TrackedJob{
		{Stage: StageQueued},
		{Stage: StageConversion, OverallProgress: 10},
		{Stage: StageTranscription, OverallProgress: 60},
		{Stage: StageAnalysis, OverallProgress: 95},
	}
	for _, job := range jobs {
		delay, stop := p.NextDelay(job, 1)
		if stop {
			t.Fatalf("unexpected stop for %+v", job)
		}
		if delay < 50*time.Millisecond {
			t.Errorf("delay %v below floor for %+v", delay, job)
		}
	}

	if p.RetryDelay() < 50*time.Millisecond {
		t.Errorf("retry delay %v below floor", p.RetryDelay())
	}
}

func TestPolicyRetryDelayIgnoresTier(t *testing.T) {
	p := NewPolicy(testPolicyConfig())
	if p.RetryDelay() != 20*time.Millisecond {
		t.Errorf("retry delay = %v, want default interval", p.RetryDelay())
	}
}

func TestPolicyZeroConfigUsesDefaults(t *testing.T) {
	p := NewPolicy(PolicyConfig{})
	delay, stop := p.NextDelay(TrackedJob{Stage: StageQueued}, 0)
	if stop || delay != DefaultQueuedInterval {
		t.Errorf("delay = %v stop = %v, want %v false", delay, stop, DefaultQueuedInterval)
	}
}

func TestReconcileGuardBound(t *testing.T) {
	g := newReconcileGuard(ReconcileConfig{Delays: []time.Duration{
		3 * time.Millisecond,
		3 * time.Millisecond,
		5 * time.Millisecond,
	}})

	want := []time.Duration{3 * time.Millisecond, 3 * time.Millisecond, 5 * time.Millisecond}
	for i, w := range want {
		delay, stop := g.next()
		if stop {
			t.Fatalf("attempt %d: premature stop", i)
		}
		if delay != w {
			t.Errorf("attempt %d: delay = %v, want %v", i, delay, w)
		}
	}

	// Bound exhausted: stop regardless of artifact state, forever.
	for i := 0; i < 3; i++ {
		if _, stop := g.next(); !stop {
			t.Errorf("post-exhaustion call %d did not stop", i)
		}
	}
}

func TestReconcileGuardReset(t *testing.T) {
	g := newReconcileGuard(ReconcileConfig{Delays: []time.Duration{time.Millisecond}})

	if _, stop := g.next(); stop {
		t.Fatal("first attempt should not stop")
	}
	if _, stop := g.next(); !stop {
		t.Fatal("second attempt should stop")
	}

	g.reset()
	if _, stop := g.next(); stop {
		t.Error("reset should replenish the bound")
	}
}

func TestReconcileGuardDefaults(t *testing.T) {
	g := newReconcileGuard(ReconcileConfig{})
	if len(g.delays) != len(DefaultReconcileDelays) {
		t.Fatalf("default guard has %d delays, want %d", len(g.delays), len(DefaultReconcileDelays))
	}
	// The default tail grows but stays bounded within seconds.
	for i := 1; i < len(g.delays); i++ {
		if g.delays[i] < g.delays[i-1] {
			t.Errorf("delays should be non-decreasing: %v", g.delays)
		}
	}
}
