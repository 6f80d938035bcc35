package repository

import (
	"time"

	emaildomain "mailflow/internal/email/domain"
	"mailflow/internal/provider"
	"mailflow/pkg/database"
)

type folderRepository struct {
	store database.Store
}

func NewFolderRepository(store database.Store) FolderRepository {
	return &folderRepository{store: store}
}

// Upsert reconciles a provider folder with the stored copy. Matching
// runs on provider id first, then on name, so renamed folders and
// provider-side id changes both resolve to the existing row.
func (r *folderRepository) Upsert(folder provider.Folder, userID uint) (*emaildomain.Folder, error) {
	now := time.Now().UTC()
	byProviderID := map[string]any{"provider_id": folder.ID, "user_id": userID}
	byName := map[string]any{"name": folder.Name, "user_id": userID}

	n, err := r.store.Count(&emaildomain.Folder{}, byProviderID)
	if err != nil {
		return nil, rollback(r.store, err)
	}
	if n > 0 {
		fields := map[string]any{"name": folder.Name, "type": folder.Type, "updated_at": now}
		if err := r.store.Update(&emaildomain.Folder{}, fields, byProviderID); err != nil {
			return nil, rollback(r.store, err)
		}
	} else {
		n, err = r.store.Count(&emaildomain.Folder{}, byName)
		if err != nil {
			return nil, rollback(r.store, err)
		}
		if n > 0 {
			fields := map[string]any{"provider_id": folder.ID, "type": folder.Type, "updated_at": now}
			if err := r.store.Update(&emaildomain.Folder{}, fields, byName); err != nil {
				return nil, rollback(r.store, err)
			}
		} else {
			record := emaildomain.Folder{
				ProviderID: folder.ID,
				Name:       folder.Name,
				Type:       folder.Type,
				UserID:     userID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := r.store.Insert(&record); err != nil {
				return nil, rollback(r.store, err)
			}
		}
	}

	if err := r.store.Commit(); err != nil {
		return nil, err
	}

	var stored emaildomain.Folder
	if err := r.store.FetchOne(&stored, byProviderID); err != nil {
		return nil, rollback(r.store, err)
	}
	return &stored, nil
}

func (r *folderRepository) GetAll(userID uint) ([]emaildomain.Folder, error) {
	var folders []emaildomain.Folder
	if err := r.store.Fetch(&folders, map[string]any{"user_id": userID}); err != nil {
		return nil, rollback(r.store, err)
	}
	return folders, nil
}
