package repository

import (
	workflowdomain "mailflow/internal/workflow/domain"
)

type WorkflowRepository interface {
	// AddRun registers a workflow document and opens a new run for it.
	// Documents are deduplicated by content hash, so resubmitting the
	// same rules reuses the stored workflow row.
	AddRun(doc *workflowdomain.Document) (workflowID uint, runID uint, err error)
	MarkRunStarted(runID uint) error
	MarkRunCompleted(runID uint, successful bool) error
	AddActivity(runID uint, emailID uint, actionType string) error

	ListWorkflows() ([]workflowdomain.Workflow, error)
	ListRuns(workflowID uint) ([]workflowdomain.Run, error)
	ListActivities(runID uint) ([]workflowdomain.RunActivity, error)
}
