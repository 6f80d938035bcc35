package usecase

import "context"

type EmailFetcher interface {
	// Fetch authenticates against the mail provider and ingests
	// messages into the store. An empty folder means all mail.
	Fetch(ctx context.Context, folder string) error
}
