package domain

import "time"

// Fetch session statuses.
const (
	FetchRunning   = "running"
	FetchCompleted = "completed"
	FetchFailed    = "failed"
)

// FetchSession records one ingestion invocation for a user, so repeated
// runs and their outcomes stay inspectable.
type FetchSession struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"index;not null"`
	Folder      string     `json:"folder"`
	Status      string     `json:"status" gorm:"not null"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
