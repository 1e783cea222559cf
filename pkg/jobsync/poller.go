package jobsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"

	merrors "github.com/DavidC001/meetingAssistant-sub001/pkg/errors"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/logging"
)

// FetchFunc retrieves the raw processing status of one job. Implementations
// must honor ctx cancellation and return transport failures as errors; the
// Poller never interprets an error as pipeline failure.
type FetchFunc func(ctx context.Context, id string) (RawStatus, error)

// PollerState is the scheduling state of a Poller. Modeling it as a tagged
// value instead of boolean flags keeps illegal combinations (cancelled but
// still scheduled, fetching while stopped) unrepresentable.
type PollerState int

const (
	StateIdle PollerState = iota
	StateScheduled
	StateFetching
	StateStopped
)

func (s PollerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateFetching:
		return "fetching"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PollerConfig configures a Poller. Zero values fall back to defaults.
type PollerConfig struct {
	// Policy holds the tier intervals of the polling policy.
	Policy PolicyConfig

	// Reconcile bounds the follow-up tail for a lagging dependent artifact.
	Reconcile ReconcileConfig

	// FetchTimeout caps each individual status fetch. A timed-out fetch is
	// treated exactly like a network error.
	FetchTimeout time.Duration

	// Jitter, when set, perturbs every computed delay so many open
	// dashboards don't synchronize their polls against the server.
	Jitter jitterbug.Jitter

	// OnUpdate is invoked with the updated job after every successfully
	// applied fetch, at most once per completed fetch cycle.
	OnUpdate func(TrackedJob)

	// OnTransientError is invoked on transport failures. The job state is
	// never mutated by a transport failure.
	OnTransientError func(error)

	Logger  logging.Logger
	Metrics *Metrics
}

// Poller is the per-job scheduling loop: it fetches status, feeds the status
// model, asks the policy (or the reconcile guard, once terminal) for the
// next delay, and reschedules itself until told to stop.
//
// Each tracked job id is owned by exactly one active Poller; callers must
// Cancel an existing Poller before creating another one for the same id.
// Every in-flight fetch carries a monotonically increasing generation number
// and responses whose generation is stale are discarded, so a slow response
// can never overwrite a fresher state.
type Poller struct {
	id     string
	fetch  FetchFunc
	policy *Policy
	guard  *reconcileGuard

	fetchTimeout     time.Duration
	jitter           jitterbug.Jitter
	onUpdate         func(TrackedJob)
	onTransientError func(error)
	log              logging.Logger
	metrics          *Metrics

	mu         sync.Mutex
	state      PollerState
	gen        uint64 // generation of the most recently issued (or invalidated) fetch
	appliedGen uint64 // highest generation whose response was applied
	timerSeq   uint64 // invalidates timers superseded by a reschedule
	attempt    int
	job        TrackedJob
	hasJob     bool
	active     bool
	timer      *time.Timer
	parent     context.Context
	runCtx     context.Context
	cancelRun  context.CancelFunc
	done       chan struct{}
}

// NewPoller creates a Poller for the given job id. Call Start to begin
// polling.
func NewPoller(id string, fetch FetchFunc, cfg PollerConfig) *Poller {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	return &Poller{
		id:               id,
		fetch:            fetch,
		policy:           NewPolicy(cfg.Policy),
		guard:            newReconcileGuard(cfg.Reconcile),
		fetchTimeout:     timeout,
		jitter:           cfg.Jitter,
		onUpdate:         cfg.OnUpdate,
		onTransientError: cfg.OnTransientError,
		log:              log.With(logging.F("job_id", id)),
		metrics:          cfg.Metrics,
		state:            StateIdle,
		done:             make(chan struct{}),
	}
}

// Start begins polling with an immediate first fetch. It errors if the
// Poller is not Idle; a Poller instance runs once (see Restart).
func (p *Poller) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return fmt.Errorf("poller for job %s is %s: %w", p.id, p.state, merrors.ErrInvalidState)
	}

	p.parent = ctx
	p.runCtx, p.cancelRun = context.WithCancel(ctx)
	p.active = true
	p.metrics.pollerStarted()
	p.log.Debug("poller starting")
	p.scheduleLocked(0)
	return nil
}

// Restart resumes polling after the Poller stopped at a terminal status,
// typically following an operator restart intent. The reconcile bound is
// reset so a fresh run gets a fresh tail. On a running Poller it behaves
// like Refresh.
func (p *Poller) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateIdle:
		return fmt.Errorf("poller for job %s was never started: %w", p.id, merrors.ErrInvalidState)
	case StateScheduled, StateFetching:
		p.refreshLocked()
		return nil
	case StateStopped:
		if p.parent == nil {
			// Cancelled before ever starting; there is no run to resume.
			return fmt.Errorf("poller for job %s was never started: %w", p.id, merrors.ErrInvalidState)
		}
		p.runCtx, p.cancelRun = context.WithCancel(p.parent)
		p.done = make(chan struct{})
		p.guard.reset()
		p.attempt = 0
		p.active = true
		p.metrics.pollerStarted()
		p.log.Debug("poller restarting")
		p.scheduleLocked(0)
		return nil
	default:
		return fmt.Errorf("poller for job %s in unknown state: %w", p.id, merrors.ErrInvalidState)
	}
}

// Refresh schedules an immediate one-shot fetch, discarding any pending
// timer. The generation bump guarantees that a response already in flight
// is thrown away rather than applied over the fresher result. No-op unless
// the Poller is running.
func (p *Poller) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateScheduled || p.state == StateFetching {
		p.refreshLocked()
	}
}

func (p *Poller) refreshLocked() {
	// Invalidate any in-flight fetch: its response predates whatever
	// prompted the refresh and must not be applied over the fresh result.
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.scheduleLocked(0)
}

// Cancel stops the Poller from any state. Idempotent. A response from an
// in-flight fetch arriving after Cancel is discarded, not applied.
func (p *Poller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Done returns a channel closed when the Poller stops, either by policy
// (terminal status, reconcile bound exhausted) or by Cancel.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// State returns the current scheduling state.
func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns a copy of the last applied job state. ok is false until
// the first successful fetch has been applied.
func (p *Poller) Snapshot() (job TrackedJob, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.job, p.hasJob
}

// scheduleLocked arms the poll timer. Caller holds p.mu. The sequence
// number lets a superseded timer recognize itself and back off, so only a
// single timer chain ever drives the loop.
func (p *Poller) scheduleLocked(delay time.Duration) {
	p.state = StateScheduled
	p.timerSeq++
	seq := p.timerSeq
	if delay > 0 && p.jitter != nil {
		delay = p.jitter.Jitter(delay)
		if delay < 0 {
			delay = 0
		}
	}
	p.timer = time.AfterFunc(delay, func() { p.poll(seq) })
}

// poll runs one fetch cycle. It executes on the timer goroutine.
func (p *Poller) poll(seq uint64) {
	p.mu.Lock()
	if p.state != StateScheduled || seq != p.timerSeq {
		p.mu.Unlock()
		return
	}
	p.state = StateFetching
	p.gen++
	gen := p.gen
	ctx := p.runCtx
	timeout := p.fetchTimeout
	p.mu.Unlock()

	fctx, cancel := context.WithTimeout(ctx, timeout)
	raw, err := p.fetch(fctx, p.id)
	cancel()

	p.apply(gen, raw, err)
}

// apply folds one fetch result into the poller state and decides what
// happens next. Stale and post-cancel responses are discarded here.
func (p *Poller) apply(gen uint64, raw RawStatus, err error) {
	p.mu.Lock()

	if p.state == StateStopped {
		p.mu.Unlock()
		return
	}
	if gen < p.gen || gen <= p.appliedGen {
		// A newer fetch was issued (Refresh, restart) after this one left;
		// its result owns the state now.
		p.metrics.observePoll(pollResultStale)
		p.log.Debug("discarding stale poll response",
			logging.F("generation", gen),
			logging.F("current_generation", p.gen))
		p.mu.Unlock()
		return
	}

	p.attempt++

	if err != nil {
		// Transport failure: not evidence of pipeline failure. Keep the job
		// state untouched and retry at the default tier, indefinitely; the
		// user cancels by navigating away.
		p.metrics.observePoll(pollResultTransient)
		p.scheduleLocked(p.policy.RetryDelay())
		cb := p.onTransientError
		p.log.Warn("status fetch failed, will retry",
			logging.Err(err),
			logging.F("retry_in", p.policy.RetryDelay()))
		p.mu.Unlock()

		if cb != nil {
			cb(fmt.Errorf("fetch status for job %s: %w", p.id, err))
		}
		return
	}

	job := ParseStatus(p.id, raw)

	// A pipeline position moving backwards means the operator restarted the
	// job; the reconcile tail starts over for the new run.
	if p.hasJob && job.Stage < p.job.Stage {
		p.guard.reset()
	}

	p.appliedGen = gen

	stopping := false
	switch {
	case job.Terminal() && job.artifactPending():
		delay, stop := p.guard.next()
		if stop {
			job.ReconcileGaveUp = true
			p.metrics.observeReconcileGaveUp()
			p.log.Info("dependent artifact still missing after bounded tail, giving up")
			stopping = true
		} else {
			job.Reconciling = true
			p.metrics.observeReconcileAttempt()
			p.scheduleLocked(delay)
		}
	default:
		if !job.Terminal() {
			p.guard.reset()
		}
		delay, stop := p.policy.NextDelay(job, p.attempt)
		if stop {
			stopping = true
		} else {
			p.scheduleLocked(delay)
		}
	}

	p.job = job
	p.hasJob = true
	p.metrics.observePoll(pollResultOK)

	if stopping {
		p.stopLocked()
	}

	cb := p.onUpdate
	p.mu.Unlock()

	if cb != nil {
		cb(job)
	}
}

// stopLocked transitions to Stopped from any state. Caller holds p.mu.
func (p *Poller) stopLocked() {
	if p.state == StateStopped {
		return
	}
	p.state = StateStopped
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancelRun != nil {
		p.cancelRun()
	}
	if p.active {
		p.active = false
		p.metrics.pollerStopped()
	}
	p.log.Debug("poller stopped")
	close(p.done)
}
