package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emaildomain "mailflow/internal/email/domain"
	emailrepo "mailflow/internal/email/repository"
	"mailflow/internal/provider"
	userdomain "mailflow/internal/user/domain"
	workflowdomain "mailflow/internal/workflow/domain"
)

type fetchFakeClient struct {
	folders  []provider.Folder
	messages []provider.Message
	fetchErr error
	passes   []provider.Filters
}

func (c *fetchFakeClient) Authenticate(ctx context.Context) (string, error) {
	return "user@example.com", nil
}

func (c *fetchFakeClient) GetFolders(ctx context.Context) ([]provider.Folder, error) {
	return c.folders, nil
}

func (c *fetchFakeClient) ForEachMessageBatch(ctx context.Context, opts provider.FetchOptions, fn func([]provider.Message) error) error {
	c.passes = append(c.passes, opts.Filters)
	if c.fetchErr != nil {
		return c.fetchErr
	}
	for start := 0; start < len(c.messages); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(c.messages) {
			end = len(c.messages)
		}
		if err := fn(c.messages[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *fetchFakeClient) MarkAsRead(ctx context.Context, messageID string) error { return nil }

func (c *fetchFakeClient) MoveToFolder(ctx context.Context, messageID, folder string) error {
	return nil
}

type fakeUserRepo struct {
	upserted string
}

func (u *fakeUserRepo) Upsert(emailAddress string) (*userdomain.User, error) {
	u.upserted = emailAddress
	return &userdomain.User{ID: 7, EmailAddress: emailAddress}, nil
}

func (u *fakeUserRepo) GetByEmail(emailAddress string) (*userdomain.User, error) {
	return &userdomain.User{ID: 7, EmailAddress: emailAddress}, nil
}

type fakeEmailRepo struct {
	newest  *time.Time
	oldest  *time.Time
	stored  map[string][]uint
	failIDs map[string]bool
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{stored: map[string][]uint{}, failIDs: map[string]bool{}}
}

func (e *fakeEmailRepo) Upsert(msg provider.Message, userID uint, folders []emaildomain.Folder) error {
	if e.failIDs[msg.ID] {
		return errors.New("constraint violation")
	}
	ids := make([]uint, 0, len(folders))
	for _, f := range folders {
		ids = append(ids, f.ID)
	}
	e.stored[msg.ID] = ids
	return nil
}

func (e *fakeEmailRepo) TimestampExtremes(userID uint, folder string) (*time.Time, *time.Time, error) {
	return e.newest, e.oldest, nil
}

func (e *fakeEmailRepo) FindMatching(doc *workflowdomain.Document, userID uint, lastID uint, batchSize int) ([]emailrepo.RuleMatch, error) {
	panic("not used")
}

type fakeFolderRepo struct {
	nextID uint
	stored []emaildomain.Folder
}

func (f *fakeFolderRepo) Upsert(folder provider.Folder, userID uint) (*emaildomain.Folder, error) {
	f.nextID++
	record := emaildomain.Folder{
		ID:         f.nextID,
		ProviderID: folder.ID,
		Name:       folder.Name,
		Type:       folder.Type,
		UserID:     userID,
	}
	f.stored = append(f.stored, record)
	return &record, nil
}

func (f *fakeFolderRepo) GetAll(userID uint) ([]emaildomain.Folder, error) {
	return f.stored, nil
}

type fakeSessionRepo struct {
	started    bool
	folder     string
	lastStatus string
}

func (s *fakeSessionRepo) Start(userID uint, folder string) (*emaildomain.FetchSession, error) {
	s.started = true
	s.folder = folder
	return &emaildomain.FetchSession{ID: "session-1", UserID: userID, Folder: folder}, nil
}

func (s *fakeSessionRepo) Finish(sessionID string, status string) error {
	s.lastStatus = status
	return nil
}

func message(id string, folders ...string) provider.Message {
	return provider.Message{
		ID:                id,
		Subject:           "hello",
		ReceivedTimestamp: time.Now().UnixMilli(),
		Folders:           folders,
	}
}

func newFetcherFixture() (*fetchFakeClient, *fakeUserRepo, *fakeEmailRepo, *fakeFolderRepo, *fakeSessionRepo, EmailFetcher) {
	client := &fetchFakeClient{
		folders: []provider.Folder{
			{ID: "INBOX", Name: "Inbox", Type: "system"},
			{ID: "Label_42", Name: "Receipts", Type: "user"},
		},
	}
	users := &fakeUserRepo{}
	emails := newFakeEmailRepo()
	folders := &fakeFolderRepo{}
	sessions := &fakeSessionRepo{}
	fetcher := NewEmailFetcher(client, users, emails, folders, sessions)
	return client, users, emails, folders, sessions, fetcher
}

func TestFetchFirstRunSinglePass(t *testing.T) {
	client, users, emails, folders, sessions, fetcher := newFetcherFixture()
	client.messages = []provider.Message{
		message("m1", "INBOX"),
		message("m2", "Label_42"),
	}

	require.NoError(t, fetcher.Fetch(context.Background(), ""))

	assert.Equal(t, "user@example.com", users.upserted)
	assert.Len(t, folders.stored, 2)
	require.Len(t, client.passes, 1)
	assert.Nil(t, client.passes[0].Before)
	assert.Nil(t, client.passes[0].After)
	assert.Len(t, emails.stored, 2)
	assert.Equal(t, emaildomain.FetchCompleted, sessions.lastStatus)
}

func TestFetchIncrementalRunsTwoPasses(t *testing.T) {
	client, _, emails, _, sessions, fetcher := newFetcherFixture()
	newest := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	oldest := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	emails.newest = &newest
	emails.oldest = &oldest

	require.NoError(t, fetcher.Fetch(context.Background(), "Inbox"))

	require.Len(t, client.passes, 2)
	require.NotNil(t, client.passes[0].After)
	assert.Equal(t, newest, *client.passes[0].After)
	require.NotNil(t, client.passes[1].Before)
	assert.Equal(t, oldest, *client.passes[1].Before)
	assert.Equal(t, emaildomain.FetchCompleted, sessions.lastStatus)
}

func TestFetchLinksMessagesToFolders(t *testing.T) {
	client, _, emails, folders, _, fetcher := newFetcherFixture()
	client.messages = []provider.Message{
		message("m1", "INBOX", "Label_42", "Label_unknown"),
	}

	require.NoError(t, fetcher.Fetch(context.Background(), ""))

	inboxID := folders.stored[0].ID
	receiptsID := folders.stored[1].ID
	assert.ElementsMatch(t, []uint{inboxID, receiptsID}, emails.stored["m1"])
}

func TestFetchResolvesFoldersByName(t *testing.T) {
	client, _, emails, folders, _, fetcher := newFetcherFixture()
	client.messages = []provider.Message{
		message("m1", "Receipts"),
	}

	require.NoError(t, fetcher.Fetch(context.Background(), ""))

	assert.Equal(t, []uint{folders.stored[1].ID}, emails.stored["m1"])
}

func TestFetchIsolatesStoreFailures(t *testing.T) {
	client, _, emails, _, sessions, fetcher := newFetcherFixture()
	client.messages = []provider.Message{
		message("m1", "INBOX"),
		message("m2", "INBOX"),
		message("m3", "INBOX"),
	}
	emails.failIDs["m2"] = true

	require.NoError(t, fetcher.Fetch(context.Background(), ""))

	assert.Len(t, emails.stored, 2)
	assert.NotContains(t, emails.stored, "m2")
	assert.Equal(t, emaildomain.FetchCompleted, sessions.lastStatus)
}

func TestFetchMarksSessionFailed(t *testing.T) {
	client, _, _, _, sessions, fetcher := newFetcherFixture()
	client.fetchErr = errors.New("connection reset")

	err := fetcher.Fetch(context.Background(), "")
	require.Error(t, err)
	assert.True(t, sessions.started)
	assert.Equal(t, emaildomain.FetchFailed, sessions.lastStatus)
}
