package usecase

import (
	"context"
	"fmt"
	"strings"

	emaildomain "mailflow/internal/email/domain"
	emailrepo "mailflow/internal/email/repository"
	"mailflow/internal/provider"
	userrepo "mailflow/internal/user/repository"
	"mailflow/pkg/logger"
)

const fetchBatchSize = 50

type emailFetcher struct {
	client   provider.EmailClient
	users    userrepo.UserRepository
	emails   emailrepo.EmailRepository
	folders  emailrepo.FolderRepository
	sessions emailrepo.FetchSessionRepository
}

func NewEmailFetcher(
	client provider.EmailClient,
	users userrepo.UserRepository,
	emails emailrepo.EmailRepository,
	folders emailrepo.FolderRepository,
	sessions emailrepo.FetchSessionRepository,
) EmailFetcher {
	return &emailFetcher{
		client:   client,
		users:    users,
		emails:   emails,
		folders:  folders,
		sessions: sessions,
	}
}

func (f *emailFetcher) Fetch(ctx context.Context, folder string) error {
	address, err := f.client.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	logger.Info("authenticated", "address", address)

	user, err := f.users.Upsert(address)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	stored, err := f.syncFolders(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("sync folders: %w", err)
	}

	session, err := f.sessions.Start(user.ID, folder)
	if err != nil {
		return fmt.Errorf("start fetch session: %w", err)
	}

	if err := f.fetchMessages(ctx, user.ID, folder, stored); err != nil {
		if finishErr := f.sessions.Finish(session.ID, emaildomain.FetchFailed); finishErr != nil {
			logger.Error("failed to close fetch session", "session_id", session.ID, "error", finishErr)
		}
		return err
	}
	return f.sessions.Finish(session.ID, emaildomain.FetchCompleted)
}

// syncFolders reconciles provider folders into the store and returns a
// lookup keyed by both provider id and lowercased name.
func (f *emailFetcher) syncFolders(ctx context.Context, userID uint) (map[string]emaildomain.Folder, error) {
	providerFolders, err := f.client.GetFolders(ctx)
	if err != nil {
		return nil, err
	}
	lookup := make(map[string]emaildomain.Folder, len(providerFolders)*2)
	for _, pf := range providerFolders {
		record, err := f.folders.Upsert(pf, userID)
		if err != nil {
			return nil, err
		}
		lookup[record.ProviderID] = *record
		lookup[strings.ToLower(record.Name)] = *record
	}
	return lookup, nil
}

// fetchMessages decides the fetch window from what is already stored:
// a first run pulls everything, later runs pull messages from the
// newest stored timestamp onwards and from the oldest backwards.
func (f *emailFetcher) fetchMessages(ctx context.Context, userID uint, folder string, lookup map[string]emaildomain.Folder) error {
	newest, oldest, err := f.emails.TimestampExtremes(userID, folder)
	if err != nil {
		return fmt.Errorf("timestamp extremes: %w", err)
	}

	if newest == nil || oldest == nil {
		return f.runPass(ctx, userID, folder, provider.Filters{In: folder}, lookup)
	}

	// Both bounds are passed inclusively: providers resolve them at
	// second granularity, and the idempotent upsert drops the boundary
	// messages that come back again.
	if err := f.runPass(ctx, userID, folder, provider.Filters{In: folder, After: newest}, lookup); err != nil {
		return err
	}
	return f.runPass(ctx, userID, folder, provider.Filters{In: folder, Before: oldest}, lookup)
}

func (f *emailFetcher) runPass(ctx context.Context, userID uint, folder string, filters provider.Filters, lookup map[string]emaildomain.Folder) error {
	opts := provider.FetchOptions{
		BatchSize: fetchBatchSize,
		Folder:    folder,
		Filters:   filters,
	}
	stored := 0
	err := f.client.ForEachMessageBatch(ctx, opts, func(batch []provider.Message) error {
		for _, msg := range batch {
			folders := resolveFolders(msg.Folders, lookup)
			if err := f.emails.Upsert(msg, userID, folders); err != nil {
				logger.Error("failed to store message", "provider_id", msg.ID, "error", err)
				continue
			}
			stored++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}
	logger.Info("fetch pass done", "folder", folder, "stored", stored)
	return nil
}

// resolveFolders maps provider folder references onto stored rows.
// References to folders the provider no longer reports are skipped.
func resolveFolders(refs []string, lookup map[string]emaildomain.Folder) []emaildomain.Folder {
	var folders []emaildomain.Folder
	seen := make(map[uint]struct{}, len(refs))
	for _, ref := range refs {
		record, ok := lookup[ref]
		if !ok {
			record, ok = lookup[strings.ToLower(ref)]
		}
		if !ok {
			continue
		}
		if _, dup := seen[record.ID]; dup {
			continue
		}
		seen[record.ID] = struct{}{}
		folders = append(folders, record)
	}
	return folders
}
