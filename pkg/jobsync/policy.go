package jobsync

import "time"

// Default polling cadence. The tiers bias toward responsiveness only near
// completion: constant short-interval polling wastes server capacity across
// many open dashboards, constant long-interval polling makes completion feel
// laggy.
const (
	DefaultQueuedInterval = 15 * time.Second
	DefaultPollInterval   = 10 * time.Second
	DefaultMediumInterval = 5 * time.Second
	DefaultShortInterval  = 3 * time.Second
	DefaultDelayFloor     = 1 * time.Second
	DefaultFetchTimeout   = 10 * time.Second
)

// Progress thresholds separating the polling tiers.
const (
	mediumProgressThreshold = 50
	shortProgressThreshold  = 80
)

// PolicyConfig holds the tier intervals of a polling policy. Zero fields are
// replaced with the package defaults.
type PolicyConfig struct {
	// QueuedInterval is used while the job sits in the queue and nothing
	// observable is happening.
	QueuedInterval time.Duration `yaml:"queued_interval"`

	// DefaultInterval is used for running jobs below the medium threshold,
	// and after any transient transport failure.
	DefaultInterval time.Duration `yaml:"default_interval"`

	// MediumInterval is used when overall progress passes 50.
	MediumInterval time.Duration `yaml:"medium_interval"`

	// ShortInterval is used when overall progress passes 80 and the user is
	// about to see a result.
	ShortInterval time.Duration `yaml:"short_interval"`

	// Floor is the minimum delay the policy will ever return.
	Floor time.Duration `yaml:"floor"`
}

// DefaultPolicyConfig returns the default tier intervals.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		QueuedInterval:  DefaultQueuedInterval,
		DefaultInterval: DefaultPollInterval,
		MediumInterval:  DefaultMediumInterval,
		ShortInterval:   DefaultShortInterval,
		Floor:           DefaultDelayFloor,
	}
}

// withDefaults fills zero fields from the package defaults.
func (c PolicyConfig) withDefaults() PolicyConfig {
	d := DefaultPolicyConfig()
	if c.QueuedInterval <= 0 {
		c.QueuedInterval = d.QueuedInterval
	}
	if c.DefaultInterval <= 0 {
		c.DefaultInterval = d.DefaultInterval
	}
	if c.MediumInterval <= 0 {
		c.MediumInterval = d.MediumInterval
	}
	if c.ShortInterval <= 0 {
		c.ShortInterval = d.ShortInterval
	}
	if c.Floor <= 0 {
		c.Floor = d.Floor
	}
	return c
}

// Policy maps a TrackedJob to the delay before the next poll. It is pure:
// the bounded reconciliation tail for terminal jobs with a lagging artifact
// is handled by the Poller's reconcile guard, not here.
type Policy struct {
	cfg PolicyConfig
}

// NewPolicy creates a Policy, filling zero config fields with defaults.
func NewPolicy(cfg PolicyConfig) *Policy {
	return &Policy{cfg: cfg.withDefaults()}
}

// NextDelay returns the delay before the next poll for the given job state,
// or stop=true when polling should cease. The attempt count is the number of
// completed fetches for this job; the tiering is keyed to phase and progress
// rather than attempts, so it currently only participates in logging.
func (p *Policy) NextDelay(job TrackedJob, attempt int) (delay time.Duration, stop bool) {
	if job.Terminal() {
		// Pipeline polls end at a terminal stage. A lagging dependent
		// artifact is the reconcile guard's problem, never this policy's.
		return 0, true
	}

	switch {
	case job.Stage == StageQueued:
		delay = p.cfg.QueuedInterval
	case job.OverallProgress > shortProgressThreshold:
		delay = p.cfg.ShortInterval
	case job.OverallProgress > mediumProgressThreshold:
		delay = p.cfg.MediumInterval
	default:
		delay = p.cfg.DefaultInterval
	}

	return p.floor(delay), false
}

// RetryDelay returns the delay after a transient transport failure. It is
// always the default tier regardless of progress: transport failure is not
// evidence of pipeline progress or failure.
func (p *Policy) RetryDelay() time.Duration {
	return p.floor(p.cfg.DefaultInterval)
}

// floor clamps a delay to the configured minimum.
func (p *Policy) floor(d time.Duration) time.Duration {
	if d < p.cfg.Floor {
		return p.cfg.Floor
	}
	return d
}
