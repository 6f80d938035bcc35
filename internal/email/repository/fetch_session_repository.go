package repository

import (
	"time"

	"github.com/google/uuid"

	emaildomain "mailflow/internal/email/domain"
	"mailflow/pkg/database"
)

type fetchSessionRepository struct {
	store database.Store
}

func NewFetchSessionRepository(store database.Store) FetchSessionRepository {
	return &fetchSessionRepository{store: store}
}

func (r *fetchSessionRepository) Start(userID uint, folder string) (*emaildomain.FetchSession, error) {
	session := emaildomain.FetchSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Folder:    folder,
		Status:    emaildomain.FetchRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.store.Insert(&session); err != nil {
		return nil, rollback(r.store, err)
	}
	if err := r.store.Commit(); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *fetchSessionRepository) Finish(sessionID string, status string) error {
	now := time.Now().UTC()
	fields := map[string]any{"status": status, "completed_at": &now}
	cond := map[string]any{"id": sessionID, "status": emaildomain.FetchRunning}
	if err := r.store.Update(&emaildomain.FetchSession{}, fields, cond); err != nil {
		return rollback(r.store, err)
	}
	return r.store.Commit()
}
