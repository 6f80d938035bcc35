package usecase

import "context"

type WorkflowProcessor interface {
	// Process loads a workflow document from disk, records a run for
	// it and applies its action to every stored email matching its
	// rules.
	Process(ctx context.Context, workflowFilePath string) error
}
