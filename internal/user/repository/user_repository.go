package repository

import (
	"errors"
	"fmt"

	userdomain "mailflow/internal/user/domain"
	"mailflow/pkg/database"
)

// userRepository implements UserRepository over the storage facade.
type userRepository struct {
	store database.Store
}

func NewUserRepository(store database.Store) UserRepository {
	return &userRepository{store: store}
}

// rollback discards the current transaction after a failed statement,
// so later logical units start on a clean one, and passes the original
// error through.
func rollback(store database.Store, err error) error {
	_ = store.Rollback()
	return err
}

// Upsert inserts a user with the given address if absent. Users are
// never updated after creation.
func (r *userRepository) Upsert(emailAddress string) (*userdomain.User, error) {
	cond := map[string]any{"email_address": emailAddress}

	n, err := r.store.Count(&userdomain.User{}, cond)
	if err != nil {
		return nil, rollback(r.store, err)
	}
	if n == 0 {
		if err := r.store.Insert(&userdomain.User{EmailAddress: emailAddress}); err != nil {
			return nil, rollback(r.store, err)
		}
		if err := r.store.Commit(); err != nil {
			return nil, err
		}
	}

	var user userdomain.User
	if err := r.store.FetchOne(&user, cond); err != nil {
		return nil, rollback(r.store, err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(emailAddress string) (*userdomain.User, error) {
	var user userdomain.User
	err := r.store.FetchOne(&user, map[string]any{"email_address": emailAddress})
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", userdomain.ErrUserNotFound, emailAddress)
	}
	if err != nil {
		return nil, rollback(r.store, err)
	}
	return &user, nil
}
