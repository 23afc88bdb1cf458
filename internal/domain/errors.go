package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyFinalized is returned when a manifest is finalized twice.
// Re-finalizing is a programming error, not a recoverable condition.
var ErrAlreadyFinalized = errors.New("run manifest already finalized")

// ConfigError indicates invalid configuration (bad policy or workflow name,
// missing required setting). It fails a run before any side effect.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ValidationError indicates a malformed event log. Raised before any input is
// dispatched so a bad log never partially replays.
type ValidationError struct {
	Sequence int
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event log validation failed: %s", e.Reason)
}

// AttachTimeoutError indicates the target window never became available
// within the retry budget.
type AttachTimeoutError struct {
	Timeout time.Duration
}

func (e *AttachTimeoutError) Error() string {
	return fmt.Sprintf("target window not found within %s", e.Timeout)
}

// SamplerError indicates the telemetry sampler process failed to start or
// died mid-run. A run without telemetry is not a valid measurement, so this
// is fatal, but rows already written are preserved.
type SamplerError struct {
	Op  string // "start" or "crash"
	Err error
}

func (e *SamplerError) Error() string {
	return fmt.Sprintf("telemetry sampler %s: %v", e.Op, e.Err)
}

func (e *SamplerError) Unwrap() error { return e.Err }

// FailsafeAbort indicates the operator moved the pointer to the screen corner
// to kill an in-progress replay. Treated as an intended interrupt, not a bug.
type FailsafeAbort struct {
	Sequence int
}

func (e *FailsafeAbort) Error() string {
	return fmt.Sprintf("replay aborted by failsafe before event %d (pointer at screen corner)", e.Sequence)
}

// ExternalCommandError indicates an external invocation (cache purge, uiauto
// helper) failed.
type ExternalCommandError struct {
	Command string
	Err     error
}

func (e *ExternalCommandError) Error() string {
	return fmt.Sprintf("external command %q failed: %v", e.Command, e.Err)
}

func (e *ExternalCommandError) Unwrap() error { return e.Err }
