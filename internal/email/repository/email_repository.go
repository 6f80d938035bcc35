package repository

import (
	"time"

	emaildomain "mailflow/internal/email/domain"
	workflowdomain "mailflow/internal/workflow/domain"
	"mailflow/internal/provider"
	"mailflow/pkg/database"
)

type emailRepository struct {
	store database.Store
}

// rollback discards the current transaction after a failed statement,
// so later logical units start on a clean one, and passes the original
// error through.
func rollback(store database.Store, err error) error {
	_ = store.Rollback()
	return err
}

func NewEmailRepository(store database.Store) EmailRepository {
	return &emailRepository{store: store}
}

// Upsert stores a fetched message for the user. Messages already
// present are skipped so re-running a fetch never duplicates rows.
func (r *emailRepository) Upsert(msg provider.Message, userID uint, folders []emaildomain.Folder) error {
	cond := map[string]any{"provider_id": msg.ID, "user_id": userID}
	n, err := r.store.Count(&emaildomain.Email{}, cond)
	if err != nil {
		return rollback(r.store, err)
	}
	if n > 0 {
		return nil
	}

	email := emaildomain.Email{
		ProviderID:         msg.ID,
		UserID:             userID,
		Subject:            msg.Subject,
		Body:               msg.Body,
		BodyPlainText:      msg.BodyPlainText,
		ReceivedTimestamp:  time.UnixMilli(msg.ReceivedTimestamp).UTC(),
		SenderName:         msg.From.Name,
		SenderEmailAddress: msg.From.Email,
		CreatedAt:          time.Now().UTC(),
	}
	for _, addr := range msg.To {
		email.Recipients = append(email.Recipients, emaildomain.EmailRecipient{
			EmailAddress: addr.Email,
			Name:         addr.Name,
			Type:         emaildomain.RecipientTo,
		})
	}
	for _, addr := range msg.Cc {
		email.Recipients = append(email.Recipients, emaildomain.EmailRecipient{
			EmailAddress: addr.Email,
			Name:         addr.Name,
			Type:         emaildomain.RecipientCc,
		})
	}
	for _, att := range msg.Attachments {
		email.Attachments = append(email.Attachments, emaildomain.EmailAttachment{
			Name:     att.Filename,
			MimeType: att.MimeType,
		})
	}

	if err := r.store.Insert(&email); err != nil {
		return rollback(r.store, err)
	}
	for _, folder := range folders {
		link := emaildomain.EmailFolder{EmailID: email.ID, FolderID: folder.ID}
		if err := r.store.Insert(&link); err != nil {
			return rollback(r.store, err)
		}
	}
	return r.store.Commit()
}

// TimestampExtremes reports the received-timestamp range stored for
// the user. An empty folder name means all folders.
func (r *emailRepository) TimestampExtremes(userID uint, folder string) (*time.Time, *time.Time, error) {
	query := "SELECT MAX(emails.received_timestamp) AS newest, MIN(emails.received_timestamp) AS oldest FROM emails"
	args := []any{}
	if folder != "" {
		query += " JOIN email_folders ON email_folders.email_id = emails.id" +
			" JOIN folders ON folders.id = email_folders.folder_id AND LOWER(folders.name) = LOWER(?)"
		args = append(args, folder)
	}
	query += " WHERE emails.user_id = ?"
	args = append(args, userID)

	var extremes struct {
		Newest *time.Time
		Oldest *time.Time
	}
	if err := r.store.Query(&extremes, query, args...); err != nil {
		return nil, nil, rollback(r.store, err)
	}
	return extremes.Newest, extremes.Oldest, nil
}

func (r *emailRepository) FindMatching(doc *workflowdomain.Document, userID uint, lastID uint, batchSize int) ([]RuleMatch, error) {
	query, args, err := BuildRuleQuery(doc, userID, lastID, batchSize)
	if err != nil {
		return nil, err
	}
	var matches []RuleMatch
	if err := r.store.Query(&matches, query, args...); err != nil {
		return nil, rollback(r.store, err)
	}
	return matches, nil
}
