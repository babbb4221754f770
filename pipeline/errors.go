package pipeline

import (
	"errors"
	"fmt"
)

// ConfigError means the job cannot run as configured: missing required
// fields, invalid options, or a soft-deleted job. Never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid job configuration: " + e.Reason
}

// TransientError wraps a failure worth retrying: service unavailability,
// network errors, timeouts on external calls.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// TimeoutError means the soft execution timeout elapsed mid-step.
type TimeoutError struct {
	Step string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out during step %s", e.Step)
}

// UploadError means a result artifact could not be delivered to blob
// storage. Local artifacts may still exist but the execution fails:
// delivery is part of the success contract.
type UploadError struct {
	Artifact string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.Artifact, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// StepError carries the failing step's name alongside the cause. The
// executor is the only component that translates these into execution
// status; steps never touch the execution store.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("[%s] %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// retryable reports whether an execution-level retry can help. Config
// and upload failures cannot; everything else is assumed to be caused by
// a flaky collaborator.
func retryable(err error) bool {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}
	var upErr *UploadError
	if errors.As(err, &upErr) {
		return false
	}
	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return false
	}
	return true
}
