package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

// JobExecution records one attempt to run the pipeline for a job.
// RetryCount increases on every re-attempt of the same delivery and the
// status never leaves a terminal value once reached.
type JobExecution struct {
	ID             uuid.UUID                `json:"id"`
	JobID          int64                    `json:"job_id"`
	Status         constant.ExecutionStatus `json:"status"`
	StatusDetail   string                   `json:"status_detail"`
	RetryCount     int                      `json:"retry_count"`
	WorkerHostname string                   `json:"worker_hostname"`
	ErrorMessage   string                   `json:"error_message"`
	ResultKey      string                   `json:"result_key"` // JSON artifact map, set on SUCCESS
	StartedAt      *time.Time               `json:"started_at"`
	FinishedAt     *time.Time               `json:"finished_at"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

func (JobExecution) TableName() string {
	return "job_executions"
}
