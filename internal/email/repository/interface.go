package repository

import (
	"time"

	emaildomain "mailflow/internal/email/domain"
	workflowdomain "mailflow/internal/workflow/domain"
	"mailflow/internal/provider"
)

// RuleMatch is one email selected by a compiled rule query.
type RuleMatch struct {
	ID         uint
	ProviderID string
}

type EmailRepository interface {
	// Upsert stores a fetched message with its recipients, attachments
	// and folder links. Messages already present for the user are left
	// untouched.
	Upsert(msg provider.Message, userID uint, folders []emaildomain.Folder) error
	// TimestampExtremes returns the newest and oldest received
	// timestamps stored for the user, optionally scoped to a folder
	// name. Both are nil when no emails are stored yet.
	TimestampExtremes(userID uint, folder string) (newest, oldest *time.Time, err error)
	// FindMatching runs a compiled rule query and returns the next
	// batch of matching emails older than lastID.
	FindMatching(doc *workflowdomain.Document, userID uint, lastID uint, batchSize int) ([]RuleMatch, error)
}

type FolderRepository interface {
	Upsert(folder provider.Folder, userID uint) (*emaildomain.Folder, error)
	GetAll(userID uint) ([]emaildomain.Folder, error)
}

type FetchSessionRepository interface {
	Start(userID uint, folder string) (*emaildomain.FetchSession, error)
	Finish(sessionID string, status string) error
}
