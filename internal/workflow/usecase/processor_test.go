package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
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

type fakeClient struct {
	markedRead []string
	moved      map[string]string
	failIDs    map[string]bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{moved: map[string]string{}, failIDs: map[string]bool{}}
}

func (c *fakeClient) Authenticate(ctx context.Context) (string, error) {
	return "user@example.com", nil
}

func (c *fakeClient) GetFolders(ctx context.Context) ([]provider.Folder, error) {
	return nil, nil
}

func (c *fakeClient) ForEachMessageBatch(ctx context.Context, opts provider.FetchOptions, fn func([]provider.Message) error) error {
	return nil
}

func (c *fakeClient) MarkAsRead(ctx context.Context, messageID string) error {
	if c.failIDs[messageID] {
		return errors.New("provider rejected the update")
	}
	c.markedRead = append(c.markedRead, messageID)
	return nil
}

func (c *fakeClient) MoveToFolder(ctx context.Context, messageID, folder string) error {
	if c.failIDs[messageID] {
		return errors.New("provider rejected the move")
	}
	c.moved[messageID] = folder
	return nil
}

type fakeUsers struct {
	user *userdomain.User
}

func (u *fakeUsers) Upsert(emailAddress string) (*userdomain.User, error) {
	return u.user, nil
}

func (u *fakeUsers) GetByEmail(emailAddress string) (*userdomain.User, error) {
	if u.user == nil {
		return nil, userdomain.ErrUserNotFound
	}
	return u.user, nil
}

type fakeEmails struct {
	matches  []emailrepo.RuleMatch
	queryErr error
	queries  int
}

func (e *fakeEmails) Upsert(msg provider.Message, userID uint, folders []emaildomain.Folder) error {
	panic("not used")
}

func (e *fakeEmails) TimestampExtremes(userID uint, folder string) (*time.Time, *time.Time, error) {
	panic("not used")
}

func (e *fakeEmails) FindMatching(doc *workflowdomain.Document, userID uint, lastID uint, batchSize int) ([]emailrepo.RuleMatch, error) {
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	e.queries++
	var batch []emailrepo.RuleMatch
	for _, m := range e.matches {
		if m.ID < lastID {
			batch = append(batch, m)
			if len(batch) == batchSize {
				break
			}
		}
	}
	return batch, nil
}

type fakeWorkflows struct {
	runID       uint
	started     bool
	completed   bool
	successful  bool
	activities  []string
	activityIDs []uint
}

func (w *fakeWorkflows) AddRun(doc *workflowdomain.Document) (uint, uint, error) {
	w.runID = 11
	return 1, w.runID, nil
}

func (w *fakeWorkflows) MarkRunStarted(runID uint) error {
	w.started = true
	return nil
}

func (w *fakeWorkflows) MarkRunCompleted(runID uint, successful bool) error {
	w.completed = true
	w.successful = successful
	return nil
}

func (w *fakeWorkflows) AddActivity(runID uint, emailID uint, actionType string) error {
	w.activities = append(w.activities, actionType)
	w.activityIDs = append(w.activityIDs, emailID)
	return nil
}

func (w *fakeWorkflows) ListWorkflows() ([]workflowdomain.Workflow, error) { return nil, nil }
func (w *fakeWorkflows) ListRuns(workflowID uint) ([]workflowdomain.Run, error) {
	return nil, nil
}
func (w *fakeWorkflows) ListActivities(runID uint) ([]workflowdomain.RunActivity, error) {
	return nil, nil
}

func writeWorkflowFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const markReadWorkflow = `{
	"condition": "all",
	"rules": [{"field_name": "subject", "predicate": "contains", "value": "invoice"}],
	"action": "mark_read"
}`

const moveWorkflow = `{
	"condition": "all",
	"rules": [{"field_name": "subject", "predicate": "contains", "value": "invoice"}],
	"action": "move",
	"action_target": "Archive"
}`

func matchFixture(n int) []emailrepo.RuleMatch {
	matches := make([]emailrepo.RuleMatch, 0, n)
	for i := n; i >= 1; i-- {
		matches = append(matches, emailrepo.RuleMatch{ID: uint(i), ProviderID: fmt.Sprintf("msg-%d", i)})
	}
	return matches
}

func TestProcessAppliesActionToAllMatches(t *testing.T) {
	client := newFakeClient()
	emails := &fakeEmails{matches: matchFixture(120)}
	workflows := &fakeWorkflows{}
	users := &fakeUsers{user: &userdomain.User{ID: 7, EmailAddress: "user@example.com"}}

	p := NewWorkflowProcessor(client, users, emails, workflows)
	err := p.Process(context.Background(), writeWorkflowFile(t, markReadWorkflow))
	require.NoError(t, err)

	assert.True(t, workflows.started)
	assert.True(t, workflows.completed)
	assert.True(t, workflows.successful)
	assert.Len(t, client.markedRead, 120)
	assert.Len(t, workflows.activities, 120)
	assert.Equal(t, 3, emails.queries)
}

func TestProcessMoveAction(t *testing.T) {
	client := newFakeClient()
	emails := &fakeEmails{matches: matchFixture(2)}
	workflows := &fakeWorkflows{}
	users := &fakeUsers{user: &userdomain.User{ID: 7}}

	p := NewWorkflowProcessor(client, users, emails, workflows)
	err := p.Process(context.Background(), writeWorkflowFile(t, moveWorkflow))
	require.NoError(t, err)

	assert.Equal(t, "Archive", client.moved["msg-1"])
	assert.Equal(t, "Archive", client.moved["msg-2"])
	assert.Equal(t, []string{workflowdomain.ActionMove, workflowdomain.ActionMove}, workflows.activities)
}

func TestProcessIsolatesPerEmailFailures(t *testing.T) {
	client := newFakeClient()
	client.failIDs["msg-2"] = true
	emails := &fakeEmails{matches: matchFixture(3)}
	workflows := &fakeWorkflows{}
	users := &fakeUsers{user: &userdomain.User{ID: 7}}

	p := NewWorkflowProcessor(client, users, emails, workflows)
	err := p.Process(context.Background(), writeWorkflowFile(t, markReadWorkflow))
	require.NoError(t, err)

	assert.True(t, workflows.successful)
	assert.Len(t, client.markedRead, 2)
	assert.NotContains(t, workflows.activityIDs, uint(2))
}

func TestProcessMarksRunFailedOnQueryError(t *testing.T) {
	client := newFakeClient()
	emails := &fakeEmails{queryErr: errors.New("relation does not exist")}
	workflows := &fakeWorkflows{}
	users := &fakeUsers{user: &userdomain.User{ID: 7}}

	p := NewWorkflowProcessor(client, users, emails, workflows)
	err := p.Process(context.Background(), writeWorkflowFile(t, markReadWorkflow))
	require.Error(t, err)

	assert.True(t, workflows.started)
	assert.True(t, workflows.completed)
	assert.False(t, workflows.successful)
}

func TestProcessRejectsInvalidDocument(t *testing.T) {
	client := newFakeClient()
	workflows := &fakeWorkflows{}
	users := &fakeUsers{user: &userdomain.User{ID: 7}}

	invalid := `{"condition": "all", "rules": [], "action": "mark_read"}`
	p := NewWorkflowProcessor(client, users, &fakeEmails{}, workflows)
	err := p.Process(context.Background(), writeWorkflowFile(t, invalid))

	assert.ErrorIs(t, err, workflowdomain.ErrInvalidWorkflow)
	assert.Zero(t, workflows.runID)
	assert.False(t, workflows.started)
}

func TestProcessRequiresKnownUser(t *testing.T) {
	client := newFakeClient()
	workflows := &fakeWorkflows{}
	users := &fakeUsers{}

	p := NewWorkflowProcessor(client, users, &fakeEmails{}, workflows)
	err := p.Process(context.Background(), writeWorkflowFile(t, markReadWorkflow))

	assert.ErrorIs(t, err, userdomain.ErrUserNotFound)
	assert.False(t, workflows.started)
}
