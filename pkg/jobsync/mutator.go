package jobsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DavidC001/meetingAssistant-sub001/pkg/logging"
)

// ErrEditInProgress is returned when a second edit targets an entity whose
// previous edit has not resolved yet. The rejected intent published nothing,
// so there is nothing to roll back; the caller surfaces "try again".
//
// Rejecting is deliberate: queuing risks applying the rollback of edit 1
// after edit 2's optimistic state is already visible, flickering the view
// back to a stale value.
var ErrEditInProgress = errors.New("edit already in progress for entity")

// EditStatus is the lifecycle state of an optimistic edit.
type EditStatus string

const (
	EditPending    EditStatus = "pending"
	EditConfirmed  EditStatus = "confirmed"
	EditRolledBack EditStatus = "rolled_back"
)

// Edit is one optimistic local mutation: the full prior snapshot, the
// locally computed proposal, and the resolution state.
type Edit[T any] struct {
	ID       string
	EntityID string
	Previous T
	Proposed T
	Status   EditStatus
}

// CommitFunc issues the remote mutation for a proposed snapshot and returns
// the server's representation, a superset of the locally guessed fields.
type CommitFunc[T any] func(ctx context.Context, entityID string, proposed T) (T, error)

// PublishFunc pushes a snapshot into the view state. It is called
// synchronously from Apply so the caller sees the change with zero latency.
type PublishFunc[T any] func(entityID string, snapshot T)

// MutatorConfig configures a Mutator.
type MutatorConfig struct {
	// Timeout caps each remote mutation attempt. Exceeding it is treated
	// exactly like a failed mutation: rollback.
	Timeout time.Duration

	Logger  logging.Logger
	Metrics *Metrics
}

// DefaultMutationTimeout caps a remote mutation when no timeout is configured.
const DefaultMutationTimeout = 10 * time.Second

// Mutator applies local state transitions ahead of server confirmation and
// reconciles or rolls back when the remote mutation resolves. At most one
// edit may be pending per entity at a time.
type Mutator[T any] struct {
	commit  CommitFunc[T]
	publish PublishFunc[T]
	timeout time.Duration
	log     logging.Logger
	metrics *Metrics

	mu      sync.Mutex
	pending map[string]*Edit[T]
}

// NewMutator creates a Mutator over the given remote commit and local
// publish functions.
func NewMutator[T any](commit CommitFunc[T], publish PublishFunc[T], cfg MutatorConfig) *Mutator[T] {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultMutationTimeout
	}

	return &Mutator[T]{
		commit:  commit,
		publish: publish,
		timeout: timeout,
		log:     log,
		metrics: cfg.Metrics,
		pending: make(map[string]*Edit[T]),
	}
}

// Apply snapshots the current entity state, computes the proposed snapshot
// via the pure transition function, and publishes it synchronously. The
// returned edit is pending until Commit resolves it.
//
// A second Apply for the same entity while an edit is pending returns
// ErrEditInProgress without publishing anything.
func (m *Mutator[T]) Apply(entityID string, current T, transition func(T) T) (*Edit[T], error) {
	m.mu.Lock()
	if _, busy := m.pending[entityID]; busy {
		m.mu.Unlock()
		m.metrics.observeEdit(editOutcomeRejected)
		return nil, fmt.Errorf("entity %s: %w", entityID, ErrEditInProgress)
	}

	edit := &Edit[T]{
		ID:       uuid.NewString(),
		EntityID: entityID,
		Previous: current,
		Proposed: transition(current),
		Status:   EditPending,
	}
	m.pending[entityID] = edit
	m.mu.Unlock()

	m.publish(entityID, edit.Proposed)
	m.log.Debug("optimistic edit applied",
		logging.F("entity_id", entityID),
		logging.F("edit_id", edit.ID))
	return edit, nil
}

// Commit issues the remote mutation for a pending edit and resolves it.
// On success the server's representation is published, overwriting any
// optimistic guesses with server-computed fields, and the edit confirms.
// On any failure (including timeout) the previous snapshot is republished
// exactly as captured and the edit rolls back; the returned error is the
// caller's signal to surface the failure once.
func (m *Mutator[T]) Commit(ctx context.Context, edit *Edit[T]) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	server, err := m.commit(cctx, edit.EntityID, edit.Proposed)
	cancel()

	m.mu.Lock()
	delete(m.pending, edit.EntityID)
	if err != nil {
		edit.Status = EditRolledBack
	} else {
		edit.Status = EditConfirmed
	}
	m.mu.Unlock()

	if err != nil {
		m.publish(edit.EntityID, edit.Previous)
		m.metrics.observeEdit(editOutcomeRolledBack)
		m.log.Warn("mutation failed, rolled back",
			logging.F("entity_id", edit.EntityID),
			logging.F("edit_id", edit.ID),
			logging.Err(err))
		return fmt.Errorf("mutation for entity %s rolled back: %w", edit.EntityID, err)
	}

	m.publish(edit.EntityID, server)
	m.metrics.observeEdit(editOutcomeConfirmed)
	m.log.Debug("mutation confirmed",
		logging.F("entity_id", edit.EntityID),
		logging.F("edit_id", edit.ID))
	return nil
}

// PendingCount returns the number of unresolved edits, for display.
func (m *Mutator[T]) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
