package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a classified processing-pipeline error reported by the
// meeting service. Codes are matched against the error_message field of a
// failed job so the CLI can tell the user whether a restart is worth trying.
type ErrorCode string

const (
	ErrTimeout            ErrorCode = "timeout"
	ErrRateLimit          ErrorCode = "rate_limit"
	ErrModelUnavailable   ErrorCode = "model_unavailable"
	ErrContextCancelled   ErrorCode = "context_cancelled"
	ErrAudioUnreadable    ErrorCode = "audio_unreadable"
	ErrConversionFailed   ErrorCode = "conversion_failed"
	ErrDiarizationFailed  ErrorCode = "diarization_failed"
	ErrTranscriptionEmpty ErrorCode = "transcription_empty"
	ErrAnalysisFailed     ErrorCode = "analysis_failed"
	ErrRecordingTooLarge  ErrorCode = "recording_too_large"
	ErrProcessingError    ErrorCode = "processing_error"
)

// PipelineError is a structured error for pipeline failures reported by the
// server. It is authoritative and terminal, unlike transport failures.
type PipelineError struct {
	Code    ErrorCode
	Stage   string
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTimeout: {
		Code:            ErrTimeout,
		Retryable:       true,
		Description:     "Processing exceeded time limit",
		SuggestedAction: "Restart the job: meetctl meeting restart <meeting-id>",
	},
	ErrRateLimit: {
		Code:            ErrRateLimit,
		Retryable:       true,
		Description:     "Transcription provider rate limit exceeded",
		SuggestedAction: "Wait a few minutes, then restart: meetctl meeting restart <meeting-id>",
	},
	ErrModelUnavailable: {
		Code:            ErrModelUnavailable,
		Retryable:       true,
		Description:     "Transcription or analysis model unavailable",
		SuggestedAction: "Check service health: meetctl health, then restart the job",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Processing cancelled by user or system",
		SuggestedAction: "Restart if the cancellation was not intentional",
	},
	ErrAudioUnreadable: {
		Code:            ErrAudioUnreadable,
		Retryable:       false,
		Description:     "Uploaded recording could not be decoded",
		SuggestedAction: "Re-export the recording in a supported format and upload again",
	},
	ErrConversionFailed: {
		Code:            ErrConversionFailed,
		Retryable:       false,
		Description:     "Audio conversion stage failed",
		SuggestedAction: "Inspect the recording: meetctl meeting show <meeting-id>",
	},
	ErrDiarizationFailed: {
		Code:            ErrDiarizationFailed,
		Retryable:       true,
		Description:     "Speaker diarization stage failed",
		SuggestedAction: "Restart the job; diarization failures are often transient",
	},
	ErrTranscriptionEmpty: {
		Code:            ErrTranscriptionEmpty,
		Retryable:       false,
		Description:     "Transcription produced no usable text",
		SuggestedAction: "Verify the recording contains audible speech",
	},
	ErrAnalysisFailed: {
		Code:            ErrAnalysisFailed,
		Retryable:       true,
		Description:     "Summary/action-item analysis stage failed",
		SuggestedAction: "Restart the job: meetctl meeting restart <meeting-id>",
	},
	ErrRecordingTooLarge: {
		Code:            ErrRecordingTooLarge,
		Retryable:       false,
		Description:     "Recording exceeds maximum size limit",
		SuggestedAction: "Split the recording before uploading",
	},
	ErrProcessingError: {
		Code:            ErrProcessingError,
		Retryable:       false,
		Description:     "Unclassified processing error",
		SuggestedAction: "Check the job details: meetctl meeting show <meeting-id>",
	},
}

// IsRetryable returns true if the given error code represents a failure that
// may succeed after a manual restart.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Check the job details: meetctl meeting show <meeting-id>"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}

// ClassifyMessage maps a raw server error_message to an ErrorCode by keyword.
// If nothing matches it returns ErrProcessingError. The remote vocabulary is
// allowed to evolve independently of the client, so matching is best-effort.
func ClassifyMessage(message, stage string) *PipelineError {
	lower := strings.ToLower(message)

	code := ErrProcessingError
	switch {
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "429"):
		code = ErrRateLimit
	case strings.Contains(lower, "timed out"), strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline"):
		code = ErrTimeout
	case strings.Contains(lower, "cancelled"), strings.Contains(lower, "canceled"):
		code = ErrContextCancelled
	case strings.Contains(lower, "model"), strings.Contains(lower, "unavailable"):
		code = ErrModelUnavailable
	case strings.Contains(lower, "decode"), strings.Contains(lower, "unreadable"), strings.Contains(lower, "corrupt"):
		code = ErrAudioUnreadable
	case strings.Contains(lower, "too large"), strings.Contains(lower, "size limit"):
		code = ErrRecordingTooLarge
	case strings.Contains(lower, "diariz"):
		code = ErrDiarizationFailed
	case strings.Contains(lower, "conversion"), strings.Contains(lower, "ffmpeg"):
		code = ErrConversionFailed
	case strings.Contains(lower, "empty transcript"), strings.Contains(lower, "no speech"):
		code = ErrTranscriptionEmpty
	case strings.Contains(lower, "analysis"), strings.Contains(lower, "summary"):
		code = ErrAnalysisFailed
	}

	return &PipelineError{
		Code:    code,
		Stage:   stage,
		Message: message,
	}
}

// ClassifyError inspects a Go error from a remote call and returns a
// *PipelineError with the appropriate code. Context errors are recognized
// explicitly; everything else falls through to keyword matching.
func ClassifyError(err error, stage string) *PipelineError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &PipelineError{Code: ErrTimeout, Stage: stage, Message: err.Error(), Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &PipelineError{Code: ErrContextCancelled, Stage: stage, Message: err.Error(), Cause: err}
	}
	pe := ClassifyMessage(err.Error(), stage)
	pe.Cause = err
	return pe
}
