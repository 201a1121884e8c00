package job

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Kind string

const KindItemImport Kind = "item_import"

type Job struct {
	ID           int64     `json:"id"`
	Kind         Kind      `json:"kind"`
	Payload      string    `json:"-"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	RecordsCount int64     `json:"recordsCount"`
	FailedCount  int64     `json:"failedCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
