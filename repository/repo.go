package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
	"github.com/VanGongwanxiaowan/batch-video2/entities"
)

var ErrJobNotFound = errors.New("job not found")

// activeStatuses are the non-terminal states that hold a job's execution
// slot: RUNNING while steps run, PENDING while the same execution waits
// out a retry backoff. A job with a row in either state accepts no new
// execution.
var activeStatuses = []constant.ExecutionStatus{
	constant.ExecutionStatusRunning,
	constant.ExecutionStatusPending,
}

type JobRepository interface {
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
	GetDB() *gorm.DB
	FindJobByID(ctx context.Context, id int64) (*entities.Job, error)
	ClaimRunning(ctx context.Context, jobID int64, worker string) (*entities.JobExecution, bool, error)
	CreateExecution(ctx context.Context, execution *entities.JobExecution) error
	UpdateIfStatus(ctx context.Context, id uuid.UUID, expected, next constant.ExecutionStatus, updates map[string]interface{}) (bool, error)
	UpdateDetail(ctx context.Context, id uuid.UUID, detail string) error
	FindExecutionByID(ctx context.Context, id uuid.UUID) (*entities.JobExecution, error)
	FindRunningByJobID(ctx context.Context, jobID int64) (*entities.JobExecution, error)
	LatestByJobID(ctx context.Context, jobID int64) (*entities.JobExecution, error)
	FailStale(ctx context.Context, threshold time.Duration) (int64, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) JobRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return callback(ctx)
	}, opts...)
}

func (r *repo) FindJobByID(ctx context.Context, id int64) (*entities.Job, error) {
	job := &entities.Job{}
	err := r.GetDB().WithContext(ctx).First(job, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	return job, nil
}

// ClaimRunning atomically creates a RUNNING execution for the job unless
// another execution already holds the slot (RUNNING, or PENDING between
// retry attempts). The per-job advisory lock serializes concurrent
// workers dequeuing the same job id, which is what keeps the 0-or-1
// RUNNING invariant.
func (r *repo) ClaimRunning(ctx context.Context, jobID int64, worker string) (*entities.JobExecution, bool, error) {
	var execution *entities.JobExecution
	claimed := false

	err := r.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", jobID).Error; err != nil {
			return err
		}

		var running entities.JobExecution
		err := tx.Where("job_id = ? AND status IN ?", jobID, activeStatuses).
			First(&running).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now()
		execution = &entities.JobExecution{
			ID:             uuid.New(),
			JobID:          jobID,
			Status:         constant.ExecutionStatusRunning,
			StatusDetail:   "execution started",
			WorkerHostname: worker,
			StartedAt:      &now,
		}
		if err := tx.Create(execution).Error; err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return execution, claimed, nil
}

func (r *repo) CreateExecution(ctx context.Context, execution *entities.JobExecution) error {
	if execution.ID == uuid.Nil {
		execution.ID = uuid.New()
	}
	return r.GetDB().WithContext(ctx).Create(execution).Error
}

// UpdateIfStatus is the conditional-update primitive guarding every
// status transition. It reports whether the row was actually moved, so
// a lost race shows up as false instead of a silent double transition.
func (r *repo) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected, next constant.ExecutionStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = next

	res := r.GetDB().WithContext(ctx).Model(&entities.JobExecution{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) UpdateDetail(ctx context.Context, id uuid.UUID, detail string) error {
	return r.GetDB().WithContext(ctx).Model(&entities.JobExecution{}).
		Where("id = ?", id).
		Update("status_detail", detail).Error
}

func (r *repo) FindExecutionByID(ctx context.Context, id uuid.UUID) (*entities.JobExecution, error) {
	execution := &entities.JobExecution{}
	err := r.GetDB().WithContext(ctx).First(execution, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return execution, nil
}

func (r *repo) FindRunningByJobID(ctx context.Context, jobID int64) (*entities.JobExecution, error) {
	execution := &entities.JobExecution{}
	err := r.GetDB().WithContext(ctx).
		Where("job_id = ? AND status = ?", jobID, constant.ExecutionStatusRunning).
		First(execution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return execution, nil
}

func (r *repo) LatestByJobID(ctx context.Context, jobID int64) (*entities.JobExecution, error) {
	execution := &entities.JobExecution{}
	err := r.GetDB().WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		First(execution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return execution, nil
}

// FailStale marks executions stuck in a slot-holding state (RUNNING, or
// PENDING during a retry backoff) past the threshold as FAILED. This is
// the crash-recovery path for workers killed by the hard timeout or the
// OS before they could finalize their record.
func (r *repo) FailStale(ctx context.Context, threshold time.Duration) (int64, error) {
	now := time.Now()
	res := r.GetDB().WithContext(ctx).Model(&entities.JobExecution{}).
		Where("status IN ? AND updated_at < ?", activeStatuses, now.Add(-threshold)).
		Updates(map[string]interface{}{
			"status":        constant.ExecutionStatusFailed,
			"status_detail": "execution reaper",
			"error_message": "execution stuck past stale threshold",
			"finished_at":   now,
		})
	return res.RowsAffected, res.Error
}
