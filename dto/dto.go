package dto

// JobMessage is the queue payload. Delivery is at-least-once; duplicates
// are resolved by the executor's exclusivity check, not by the queue.
type JobMessage struct {
	JobID int64 `json:"job_id"`
}
