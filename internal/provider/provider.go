// Package provider defines the mail-provider capability boundary. The
// ingestion and workflow engines depend only on this interface, so
// alternate providers can be substituted without touching either.
package provider

import (
	"context"
	"errors"
	"time"

	"mailflow/pkg/mailparse"
)

// ErrNotAuthenticated is returned when an operation is attempted before
// a successful Authenticate call.
var ErrNotAuthenticated = errors.New("email authentication is not performed")

// Attachment carries attachment metadata only; contents are left with
// the provider.
type Attachment struct {
	Filename string
	MimeType string
}

// Message is a provider-neutral view of one mail message.
type Message struct {
	ID                string
	Subject           string
	From              mailparse.Address
	To                []mailparse.Address
	Cc                []mailparse.Address
	ReceivedTimestamp int64 // epoch milliseconds
	Body              string
	BodyPlainText     string
	Folders           []string
	Attachments       []Attachment
}

// Folder is a provider folder or label.
type Folder struct {
	ID   string
	Name string
	Type string
}

// Filters narrows a fetch pass. Zero values are omitted from the
// provider query. Before and After bound the received timestamp.
type Filters struct {
	In      string
	From    string
	To      string
	Subject string
	Before  *time.Time
	After   *time.Time
}

// FetchOptions drives one paginated fetch pass.
type FetchOptions struct {
	BatchSize int
	Folder    string
	Filters   Filters
}

// EmailClient is the capability set consumed from a mail provider.
type EmailClient interface {
	// Authenticate performs the provider's auth flow and returns the
	// account's email address.
	Authenticate(ctx context.Context) (string, error)
	// GetFolders lists the account's folders.
	GetFolders(ctx context.Context) ([]Folder, error)
	// ForEachMessageBatch fetches messages matching opts in batches of
	// opts.BatchSize and invokes fn once per batch. A non-nil error
	// from fn stops the iteration.
	ForEachMessageBatch(ctx context.Context, opts FetchOptions, fn func(batch []Message) error) error
	// MarkAsRead marks the message as read.
	MarkAsRead(ctx context.Context, messageID string) error
	// MoveToFolder moves the message to the named folder.
	MoveToFolder(ctx context.Context, messageID, folder string) error
}
