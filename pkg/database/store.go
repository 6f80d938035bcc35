package database

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by FetchOne when no row matches.
var ErrNotFound = gorm.ErrRecordNotFound

// Store is the storage access facade shared by all repositories. One
// transaction is live at any time; writes accumulate on it until Commit
// closes the logical unit (one email with its child rows, one status
// transition) and opens the next transaction.
type Store interface {
	// Insert creates the record (including any association child rows)
	// and fills its primary key.
	Insert(value any) error
	// Update sets fields on the rows of model matching cond.
	Update(model any, fields map[string]any, cond map[string]any) error
	// Delete removes the rows of model matching cond.
	Delete(model any, cond map[string]any) error
	// Count returns the number of rows of model matching cond.
	Count(model any, cond map[string]any) (int64, error)
	// Fetch loads all rows matching cond into dest.
	Fetch(dest any, cond map[string]any) error
	// FetchOne loads the first row matching cond into dest, or ErrNotFound.
	FetchOne(dest any, cond map[string]any) error
	// Query runs a raw SQL statement with bind parameters and scans the
	// result into dest.
	Query(dest any, sql string, args ...any) error
	// Commit finishes the current transaction and begins a new one.
	Commit() error
	// Rollback discards the current transaction and begins a new one.
	// Repositories call it on every failed operation: Postgres aborts
	// the whole transaction after one failed statement, so leaving it
	// open would poison every following statement until a rollback.
	Rollback() error
}

type gormStore struct {
	db *gorm.DB
	tx *gorm.DB
}

// NewStore wraps a gorm connection in the facade and opens the first
// transaction.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db, tx: db.Begin()}
}

func (s *gormStore) Insert(value any) error {
	return s.tx.Create(value).Error
}

func (s *gormStore) Update(model any, fields map[string]any, cond map[string]any) error {
	return s.tx.Model(model).Where(cond).Updates(fields).Error
}

func (s *gormStore) Delete(model any, cond map[string]any) error {
	return s.tx.Where(cond).Delete(model).Error
}

func (s *gormStore) Count(model any, cond map[string]any) (int64, error) {
	var n int64
	err := s.tx.Model(model).Where(cond).Count(&n).Error
	return n, err
}

func (s *gormStore) Fetch(dest any, cond map[string]any) error {
	return s.tx.Where(cond).Find(dest).Error
}

func (s *gormStore) FetchOne(dest any, cond map[string]any) error {
	err := s.tx.Where(cond).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *gormStore) Query(dest any, sql string, args ...any) error {
	return s.tx.Raw(sql, args...).Scan(dest).Error
}

// Commit and Rollback re-begin unconditionally so the store always
// holds a usable transaction, even when closing the previous one
// failed.
func (s *gormStore) Commit() error {
	err := s.tx.Commit().Error
	s.tx = s.db.Begin()
	return err
}

func (s *gormStore) Rollback() error {
	err := s.tx.Rollback().Error
	s.tx = s.db.Begin()
	return err
}
