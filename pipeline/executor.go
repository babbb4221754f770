package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/config"
	"github.com/VanGongwanxiaowan/batch-video2/constant"
	"github.com/VanGongwanxiaowan/batch-video2/entities"
	"github.com/VanGongwanxiaowan/batch-video2/repository"
)

// Store is the slice of the execution store the executor needs. It is
// the only component allowed to mutate execution status.
type Store interface {
	FindJobByID(ctx context.Context, id int64) (*entities.Job, error)
	ClaimRunning(ctx context.Context, jobID int64, worker string) (*entities.JobExecution, bool, error)
	CreateExecution(ctx context.Context, execution *entities.JobExecution) error
	UpdateIfStatus(ctx context.Context, id uuid.UUID, expected, next constant.ExecutionStatus, updates map[string]interface{}) (bool, error)
	UpdateDetail(ctx context.Context, id uuid.UUID, detail string) error
}

// Outcome summarizes one handled delivery.
type Outcome struct {
	ExecutionID  uuid.UUID
	JobID        int64
	Status       constant.ExecutionStatus
	Result       map[string]string
	ErrorMessage string
}

// Executor runs the pipeline for one dequeued job id: it owns the
// exclusivity check, timeout enforcement, execution-level retry and the
// final status transition. Execute returns a non-nil error only for
// infrastructure failures (store unreachable); pipeline failures are
// recorded on the execution row and reported through the Outcome.
type Executor struct {
	store  Store
	cfg    config.Pipeline
	deps   Deps
	worker string

	// sleep is a seam for tests; production uses a ctx-aware timer.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutor(store Store, cfg config.Pipeline, deps Deps) *Executor {
	hostname, _ := os.Hostname()
	return &Executor{
		store:  store,
		cfg:    cfg,
		deps:   deps,
		worker: hostname,
		sleep:  sleepCtx,
	}
}

func (e *Executor) Execute(ctx context.Context, jobID int64) (Outcome, error) {
	if e.cfg.HardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.HardTimeout)
		defer cancel()
	}

	job, err := e.store.FindJobByID(ctx, jobID)
	if errors.Is(err, repository.ErrJobNotFound) {
		return e.failFast(ctx, jobID, "job not found")
	}
	if err != nil {
		return Outcome{}, err
	}

	opts, reason := validateJob(job)
	if reason != "" {
		return e.failFast(ctx, jobID, reason)
	}

	execution, claimed, err := e.store.ClaimRunning(ctx, jobID, e.worker)
	if err != nil {
		return Outcome{}, err
	}
	if !claimed {
		return e.skip(ctx, jobID)
	}

	workspace := filepath.Join(e.cfg.WorkspaceRoot, strconv.FormatInt(jobID, 10), execution.ID.String())
	if err := os.MkdirAll(workspace, os.ModePerm); err != nil {
		return e.finalizeFailed(ctx, execution, 0, err)
	}
	defer os.RemoveAll(workspace)

	maxAttempts := e.cfg.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	retries := 0
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			retries = attempt
			if err := e.backoff(ctx, execution, attempt, maxAttempts, lastErr); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).
					Int64("job_id", jobID).
					Str("execution_id", execution.ID.String()).
					Msg("retry backoff aborted")
				return e.finalizeFailed(ctx, execution, attempt, lastErr)
			}
		}

		result, state, runErr := e.runAttempt(ctx, job, opts, execution, workspace)
		if runErr == nil {
			return e.finalizeSuccess(ctx, execution, result, state)
		}

		lastErr = runErr
		zerolog.Ctx(ctx).Error().Err(runErr).
			Int64("job_id", jobID).
			Str("execution_id", execution.ID.String()).
			Str("failed_step", state.FailedStep()).
			Int("attempt", attempt+1).
			Msg("pipeline attempt failed")

		var timeoutErr *TimeoutError
		if errors.As(runErr, &timeoutErr) {
			// Timeouts count against the retry budget but the time
			// budget is already gone, so the execution fails here.
			return e.finalizeFailed(ctx, execution, attempt+1, runErr)
		}
		if !retryable(runErr) {
			break
		}
	}

	return e.finalizeFailed(ctx, execution, retries, lastErr)
}

// runAttempt runs the ordered step sequence once under the soft timeout.
func (e *Executor) runAttempt(parent context.Context, job *entities.Job, opts config.JobOptions, execution *entities.JobExecution, workspace string) (map[string]string, *StateManager, error) {
	ctx := parent
	if e.cfg.SoftTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, e.cfg.SoftTimeout)
		defer cancel()
	}

	state := NewStateManager()
	pc := NewContext(job, opts, execution.ID, workspace)
	steps := BuildSteps(e.cfg, e.deps, opts)

	for i, step := range steps {
		state.MarkStepStarted(step.Name())
		_ = e.store.UpdateDetail(parent, execution.ID,
			fmt.Sprintf("running: %s (%d/%d)", step.Name(), i+1, len(steps)))

		if err := step.Run(ctx, pc); err != nil {
			state.MarkStepFailed(step.Name(), err)
			if ctx.Err() != nil && parent.Err() == nil {
				return nil, state, &TimeoutError{Step: step.Name()}
			}
			return nil, state, &StepError{Step: step.Name(), Err: err}
		}
		state.MarkStepCompleted(step.Name())

		duration, _ := state.StepDuration(step.Name())
		zerolog.Ctx(ctx).Info().
			Int64("job_id", pc.JobID).
			Str("step", step.Name()).
			Dur("duration", duration).
			Msg("step completed")
	}

	return pc.Uploads, state, nil
}

// backoff parks the execution as PENDING, waits the exponential delay
// (base × 2^retry_count) and moves its own row back to RUNNING. A
// PENDING row still holds the job's execution slot (the store refuses
// new claims while one exists), so no duplicate delivery can slip in
// during the wait. retry_count on the row strictly increases with every
// retried attempt.
func (e *Executor) backoff(ctx context.Context, execution *entities.JobExecution, attempt, maxAttempts int, cause error) error {
	delay := e.cfg.RetryBaseDelay * (1 << (attempt - 1))

	moved, err := e.store.UpdateIfStatus(ctx, execution.ID,
		constant.ExecutionStatusRunning, constant.ExecutionStatusPending,
		map[string]interface{}{
			"retry_count":   attempt,
			"status_detail": fmt.Sprintf("retry %d/%d scheduled", attempt, maxAttempts-1),
			"error_message": cause.Error(),
		})
	if err != nil {
		return fmt.Errorf("park execution for retry: %w", err)
	}
	if !moved {
		return fmt.Errorf("lost running slot before retry")
	}

	zerolog.Ctx(ctx).Info().
		Int64("job_id", execution.JobID).
		Str("execution_id", execution.ID.String()).
		Dur("delay", delay).
		Int("retry_count", attempt).
		Msg("retrying execution after backoff")

	if err := e.sleep(ctx, delay); err != nil {
		_, _ = e.store.UpdateIfStatus(ctx, execution.ID,
			constant.ExecutionStatusPending, constant.ExecutionStatusFailed,
			map[string]interface{}{
				"error_message": "execution aborted during retry backoff",
				"finished_at":   time.Now(),
			})
		return err
	}

	moved, err = e.store.UpdateIfStatus(ctx, execution.ID,
		constant.ExecutionStatusPending, constant.ExecutionStatusRunning,
		map[string]interface{}{
			"status_detail": fmt.Sprintf("attempt %d started", attempt+1),
		})
	if err != nil {
		return fmt.Errorf("reclaim execution after backoff: %w", err)
	}
	if !moved {
		return fmt.Errorf("lost pending slot before retry")
	}
	return nil
}

func (e *Executor) finalizeSuccess(ctx context.Context, execution *entities.JobExecution, result map[string]string, state *StateManager) (Outcome, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return e.finalizeFailed(ctx, execution, 0, err)
	}

	moved, err := e.store.UpdateIfStatus(ctx, execution.ID,
		constant.ExecutionStatusRunning, constant.ExecutionStatusSuccess,
		map[string]interface{}{
			"result_key":    string(resultJSON),
			"status_detail": "pipeline completed",
			"finished_at":   time.Now(),
		})
	if err != nil {
		return Outcome{}, err
	}
	if !moved {
		zerolog.Ctx(ctx).Warn().
			Str("execution_id", execution.ID.String()).
			Msg("execution already finalized elsewhere, success result dropped")
	}

	zerolog.Ctx(ctx).Info().
		Int64("job_id", execution.JobID).
		Str("execution_id", execution.ID.String()).
		Dur("total_duration", state.TotalDuration()).
		Strs("steps", state.ExecutedSteps()).
		Msg("job completed")

	return Outcome{
		ExecutionID: execution.ID,
		JobID:       execution.JobID,
		Status:      constant.ExecutionStatusSuccess,
		Result:      result,
	}, nil
}

func (e *Executor) finalizeFailed(ctx context.Context, execution *entities.JobExecution, retryCount int, cause error) (Outcome, error) {
	message := "pipeline failed"
	if cause != nil {
		message = cause.Error()
	}

	updates := map[string]interface{}{
		"error_message": message,
		"status_detail": "pipeline failed",
		"finished_at":   time.Now(),
	}
	if retryCount > 0 {
		updates["retry_count"] = retryCount
	}

	moved, err := e.store.UpdateIfStatus(ctx, execution.ID,
		constant.ExecutionStatusRunning, constant.ExecutionStatusFailed, updates)
	if err != nil {
		return Outcome{}, err
	}
	if !moved {
		zerolog.Ctx(ctx).Warn().
			Str("execution_id", execution.ID.String()).
			Msg("execution already finalized elsewhere")
	}

	return e.failedOutcome(execution, cause), nil
}

func (e *Executor) failedOutcome(execution *entities.JobExecution, cause error) Outcome {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return Outcome{
		ExecutionID:  execution.ID,
		JobID:        execution.JobID,
		Status:       constant.ExecutionStatusFailed,
		ErrorMessage: message,
	}
}

// failFast records a FAILED execution for a job that can never run as
// configured. No pipeline work, no retries.
func (e *Executor) failFast(ctx context.Context, jobID int64, reason string) (Outcome, error) {
	cfgErr := &ConfigError{Reason: reason}
	now := time.Now()
	execution := &entities.JobExecution{
		ID:             uuid.New(),
		JobID:          jobID,
		Status:         constant.ExecutionStatusFailed,
		StatusDetail:   "configuration rejected",
		ErrorMessage:   cfgErr.Error(),
		WorkerHostname: e.worker,
		StartedAt:      &now,
		FinishedAt:     &now,
	}
	if err := e.store.CreateExecution(ctx, execution); err != nil {
		return Outcome{}, err
	}

	zerolog.Ctx(ctx).Error().
		Int64("job_id", jobID).
		Str("reason", reason).
		Msg("job rejected")

	return Outcome{
		ExecutionID:  execution.ID,
		JobID:        jobID,
		Status:       constant.ExecutionStatusFailed,
		ErrorMessage: cfgErr.Error(),
	}, nil
}

// skip records a SKIPPED execution when another one already holds the
// job's slot, whether RUNNING or PENDING between retries. Not an error:
// duplicate deliveries are expected under at-least-once semantics.
func (e *Executor) skip(ctx context.Context, jobID int64) (Outcome, error) {
	now := time.Now()
	execution := &entities.JobExecution{
		ID:             uuid.New(),
		JobID:          jobID,
		Status:         constant.ExecutionStatusSkipped,
		StatusDetail:   "another execution is already active for this job",
		WorkerHostname: e.worker,
		StartedAt:      &now,
		FinishedAt:     &now,
	}
	if err := e.store.CreateExecution(ctx, execution); err != nil {
		return Outcome{}, err
	}

	zerolog.Ctx(ctx).Info().
		Int64("job_id", jobID).
		Msg("duplicate delivery skipped")

	return Outcome{
		ExecutionID: execution.ID,
		JobID:       jobID,
		Status:      constant.ExecutionStatusSkipped,
	}, nil
}

func validateJob(job *entities.Job) (config.JobOptions, string) {
	if job.DeletedAt != nil {
		return config.JobOptions{}, "job is deleted"
	}
	if job.Content == "" {
		return config.JobOptions{}, "script is empty"
	}
	if job.Language == "" {
		return config.JobOptions{}, "language is missing"
	}
	if job.VoiceRef == "" {
		return config.JobOptions{}, "voice reference is missing"
	}
	switch job.AspectRatio {
	case constant.AspectRatioHorizontal, constant.AspectRatioVertical:
	default:
		return config.JobOptions{}, fmt.Sprintf("unknown aspect ratio %q", job.AspectRatio)
	}

	opts, err := config.ParseJobOptions(job.Options)
	if err != nil {
		return config.JobOptions{}, err.Error()
	}
	return opts, ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
