package domain

import (
	"errors"
	"time"
)

// ErrUserNotFound is returned when a workflow is invoked for an address
// that has never been ingested.
var ErrUserNotFound = errors.New("user not found, run the fetch command first")

// User is an ingested mail account, keyed by its email address. Created
// on first ingestion and never updated afterwards.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	EmailAddress string    `json:"email_address" gorm:"uniqueIndex;not null"`
	CreatedAt    time.Time `json:"created_at"`
}
