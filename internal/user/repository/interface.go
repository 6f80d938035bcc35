package repository

import userdomain "mailflow/internal/user/domain"

// UserRepository defines user persistence operations.
type UserRepository interface {
	// Upsert inserts the user if it does not exist and returns the
	// stored record either way.
	Upsert(emailAddress string) (*userdomain.User, error)
	// GetByEmail returns the user or userdomain.ErrUserNotFound.
	GetByEmail(emailAddress string) (*userdomain.User, error)
}
