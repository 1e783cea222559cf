package jobsync

import "time"

// DefaultReconcileDelays is the default bounded tail of follow-up polls run
// after a terminal status while the dependent artifact is still missing.
// The artifact is produced by a fire-and-forget side effect of the main
// pipeline: the client tolerates a few seconds of lag but must not poll
// forever if that side effect silently failed.
var DefaultReconcileDelays = []time.Duration{
	3 * time.Second,
	3 * time.Second,
	5 * time.Second,
	5 * time.Second,
}

// ReconcileConfig bounds the reconciliation tail. The number of delays is
// the maximum number of extra polls (K).
type ReconcileConfig struct {
	Delays []time.Duration `yaml:"delays"`
}

// withDefaults fills an empty delay list with the package default.
func (c ReconcileConfig) withDefaults() ReconcileConfig {
	if len(c.Delays) == 0 {
		c.Delays = DefaultReconcileDelays
	}
	return c
}

// reconcileGuard tracks how much of the bounded tail has been consumed.
// It is owned by a single Poller and only touched under the Poller's lock.
type reconcileGuard struct {
	delays   []time.Duration
	attempts int
}

func newReconcileGuard(cfg ReconcileConfig) *reconcileGuard {
	return &reconcileGuard{delays: cfg.withDefaults().Delays}
}

// next returns the delay before the next reconciliation poll, or stop=true
// once the bound is exhausted, regardless of artifact state.
func (g *reconcileGuard) next() (delay time.Duration, stop bool) {
	if g.attempts >= len(g.delays) {
		return 0, true
	}
	delay = g.delays[g.attempts]
	g.attempts++
	return delay, false
}

// reset clears consumed attempts. Called when the job leaves a terminal
// stage again (operator restart).
func (g *reconcileGuard) reset() {
	g.attempts = 0
}
