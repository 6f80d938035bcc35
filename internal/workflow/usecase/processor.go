package usecase

import (
	"context"
	"fmt"
	"math"

	emailrepo "mailflow/internal/email/repository"
	"mailflow/internal/provider"
	userrepo "mailflow/internal/user/repository"
	workflowdomain "mailflow/internal/workflow/domain"
	workflowrepo "mailflow/internal/workflow/repository"
	"mailflow/pkg/logger"
)

const matchBatchSize = 50

type workflowProcessor struct {
	client    provider.EmailClient
	users     userrepo.UserRepository
	emails    emailrepo.EmailRepository
	workflows workflowrepo.WorkflowRepository
}

func NewWorkflowProcessor(
	client provider.EmailClient,
	users userrepo.UserRepository,
	emails emailrepo.EmailRepository,
	workflows workflowrepo.WorkflowRepository,
) WorkflowProcessor {
	return &workflowProcessor{
		client:    client,
		users:     users,
		emails:    emails,
		workflows: workflows,
	}
}

func (p *workflowProcessor) Process(ctx context.Context, workflowFilePath string) error {
	doc, err := workflowdomain.ParseFile(workflowFilePath)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	address, err := p.client.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	user, err := p.users.GetByEmail(address)
	if err != nil {
		return err
	}

	workflowID, runID, err := p.workflows.AddRun(doc)
	if err != nil {
		return fmt.Errorf("register run: %w", err)
	}
	logger.Info("workflow run registered", "workflow_id", workflowID, "run_id", runID)

	if err := p.workflows.MarkRunStarted(runID); err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	applied, err := p.applyWorkflow(ctx, doc, user.ID, runID)
	if err != nil {
		if markErr := p.workflows.MarkRunCompleted(runID, false); markErr != nil {
			logger.Error("failed to close run", "run_id", runID, "error", markErr)
		}
		return err
	}

	if err := p.workflows.MarkRunCompleted(runID, true); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	logger.Info("workflow run completed", "run_id", runID, "applied", applied)
	return nil
}

// applyWorkflow walks matching emails newest first with a keyset
// cursor, applying the workflow action batch by batch. A failure on a
// single email is logged and skipped; only query failures abort the
// run.
func (p *workflowProcessor) applyWorkflow(ctx context.Context, doc *workflowdomain.Document, userID uint, runID uint) (int, error) {
	applied := 0
	lastID := uint(math.MaxInt64)
	for {
		matches, err := p.emails.FindMatching(doc, userID, lastID, matchBatchSize)
		if err != nil {
			return applied, fmt.Errorf("find matching emails: %w", err)
		}
		if len(matches) == 0 {
			return applied, nil
		}

		for _, match := range matches {
			if err := p.applyAction(ctx, doc, match); err != nil {
				logger.Error("action failed", "email_id", match.ID, "action", doc.Action, "error", err)
				continue
			}
			if err := p.workflows.AddActivity(runID, match.ID, doc.Action); err != nil {
				return applied, fmt.Errorf("record activity: %w", err)
			}
			applied++
		}

		lastID = matches[len(matches)-1].ID
		if len(matches) < matchBatchSize {
			return applied, nil
		}
	}
}

func (p *workflowProcessor) applyAction(ctx context.Context, doc *workflowdomain.Document, match emailrepo.RuleMatch) error {
	switch doc.Action {
	case workflowdomain.ActionMarkRead:
		return p.client.MarkAsRead(ctx, match.ProviderID)
	case workflowdomain.ActionMove:
		return p.client.MoveToFolder(ctx, match.ProviderID, doc.ActionTarget)
	}
	return fmt.Errorf("%w: unknown action %q", workflowdomain.ErrInvalidWorkflow, doc.Action)
}
