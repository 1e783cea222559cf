// Package jobsync implements the client-side synchronization engine that
// keeps local view state consistent with the meeting service's slow,
// asynchronous processing pipeline.
//
// It provides the typed status model for a tracked job, the adaptive
// polling policy, a cancellable generation-tagged Poller, a bounded
// reconciliation tail for lagging dependent artifacts, and an optimistic
// mutator with snapshot rollback for user-initiated edits.
package jobsync

import (
	"math"
	"strings"
	"time"
)

// Stage is one phase of the server-side processing pipeline. The order is
// significant for progress comparison, not for business meaning.
type Stage int

const (
	StageQueued Stage = iota
	StageConversion
	StageDiarization
	StageTranscription
	StageAnalysis
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageQueued:        "queued",
	StageConversion:    "conversion",
	StageDiarization:   "diarization",
	StageTranscription: "transcription",
	StageAnalysis:      "analysis",
	StageDone:          "done",
	StageFailed:        "failed",
}

// String returns the canonical stage name.
func (s Stage) String() string {
	if s < StageQueued || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no further pipeline progress will occur.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Running reports whether the stage is an active (non-queued, non-terminal)
// pipeline phase.
func (s Stage) Running() bool {
	return s > StageQueued && s < StageDone
}

// stageAliases maps remote vocabulary variants to known stages. The server's
// stage names are allowed to evolve independently of the client.
var stageAliases = map[string]Stage{
	"queued":              StageQueued,
	"pending":             StageQueued,
	"waiting":             StageQueued,
	"conversion":          StageConversion,
	"converting":          StageConversion,
	"audio_conversion":    StageConversion,
	"diarization":         StageDiarization,
	"diarizing":           StageDiarization,
	"speaker_diarization": StageDiarization,
	"transcription":       StageTranscription,
	"transcribing":        StageTranscription,
	"analysis":            StageAnalysis,
	"analyzing":           StageAnalysis,
	"summarizing":         StageAnalysis,
	"done":                StageDone,
	"complete":            StageDone,
	"completed":           StageDone,
	"finished":            StageDone,
	"success":             StageDone,
	"failed":              StageFailed,
	"failure":             StageFailed,
	"error":               StageFailed,
}

// RawStatus is the wire payload of GET /jobs/{id} and POST /jobs/{id}/restart.
// Optional fields are pointers so absence is distinguishable from zero.
type RawStatus struct {
	Stage                  string     `json:"stage"`
	StageProgress          float64    `json:"stage_progress"`
	OverallProgress        float64    `json:"overall_progress"`
	ErrorMessage           *string    `json:"error_message,omitempty"`
	DependentArtifactReady *bool      `json:"dependent_artifact_ready,omitempty"`
	StartedAt              *time.Time `json:"started_at,omitempty"`
	StageStartedAt         *time.Time `json:"stage_started_at,omitempty"`
}

// TrackedJob is the typed pipeline state of one polled job. It is owned by
// exactly one Poller and exposed to callers as a value copy.
type TrackedJob struct {
	// ID is the stable key of the polled entity.
	ID string

	// Stage is the current pipeline phase.
	Stage Stage

	// StageProgress is the progress of the current stage in [0,100].
	// Meaningful only while Stage is non-terminal.
	StageProgress float64

	// OverallProgress is the whole-pipeline progress in [0,100].
	OverallProgress float64

	// StartedAt and StageStartedAt are display-only timestamps.
	StartedAt      time.Time
	StageStartedAt time.Time

	// ErrorMessage is present only when Stage is StageFailed.
	ErrorMessage string

	// ArtifactExpected reports whether the job produces a dependent artifact
	// (e.g. a derived audio asset) whose availability may lag StageDone.
	ArtifactExpected bool

	// ArtifactReady reports whether the dependent artifact exists yet.
	ArtifactReady bool

	// Reconciling is set while the engine is running its bounded tail of
	// follow-up polls waiting for the dependent artifact.
	Reconciling bool

	// ReconcileGaveUp is set when the bounded tail was exhausted without the
	// artifact appearing. This is a soft "may still be generating" state,
	// not a failure.
	ReconcileGaveUp bool
}

// Terminal reports whether the job reached done or failed.
func (j TrackedJob) Terminal() bool {
	return j.Stage.Terminal()
}

// artifactPending reports whether a dependent artifact is expected but has
// not appeared yet.
func (j TrackedJob) artifactPending() bool {
	return j.ArtifactExpected && !j.ArtifactReady
}

// ParseStatus maps a raw job-status payload to a TrackedJob. It is a pure,
// total function: it never panics on missing or malformed fields, and
// parsing the same payload twice yields equal results.
//
// Unknown stage strings map to the nearest known stage by pipeline position,
// inferred from overall progress: 0 means queued, 100 means done, anything
// in between lands on the running stage whose progress band contains it.
func ParseStatus(id string, raw RawStatus) TrackedJob {
	overall := clampProgress(raw.OverallProgress)
	stage := resolveStage(raw.Stage, overall)

	// A non-terminal stage reporting 100% overall violates the progress
	// invariant; the stage field is authoritative, so hold progress just
	// below completion until the server reports a terminal stage.
	if !stage.Terminal() && overall >= 100 {
		overall = 99
	}

	job := TrackedJob{
		ID:              id,
		Stage:           stage,
		OverallProgress: overall,
	}

	if !stage.Terminal() {
		job.StageProgress = clampProgress(raw.StageProgress)
	}

	if stage == StageFailed && raw.ErrorMessage != nil {
		job.ErrorMessage = *raw.ErrorMessage
	}

	if raw.DependentArtifactReady != nil {
		job.ArtifactExpected = true
		job.ArtifactReady = *raw.DependentArtifactReady
	}

	if raw.StartedAt != nil {
		job.StartedAt = *raw.StartedAt
	}
	if raw.StageStartedAt != nil {
		job.StageStartedAt = *raw.StageStartedAt
	}

	return job
}

// resolveStage maps a remote stage string to a known Stage, defensively.
func resolveStage(name string, overall float64) Stage {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	if stage, ok := stageAliases[normalized]; ok {
		return stage
	}

	// Tolerate suffixed variants like "transcription_v2". Longest alias wins
	// so matching stays deterministic.
	var (
		matched    Stage
		matchedLen = -1
	)
	for alias, stage := range stageAliases {
		if strings.HasPrefix(normalized, alias) && len(alias) > matchedLen {
			matched = stage
			matchedLen = len(alias)
		}
	}
	if matchedLen >= 0 {
		return matched
	}

	// Unrecognized vocabulary: fall back to the stage position implied by
	// overall progress.
	switch {
	case overall <= 0:
		return StageQueued
	case overall >= 100:
		return StageDone
	default:
		runningStages := int(StageAnalysis) - int(StageConversion) + 1
		idx := int(StageConversion) + int(overall/(100/float64(runningStages)))
		if idx > int(StageAnalysis) {
			idx = int(StageAnalysis)
		}
		return Stage(idx)
	}
}

// clampProgress forces a progress value into [0,100], mapping NaN to 0.
func clampProgress(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
