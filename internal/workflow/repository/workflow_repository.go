package repository

import (
	"time"

	workflowdomain "mailflow/internal/workflow/domain"
	"mailflow/pkg/database"
)

type workflowRepository struct {
	store database.Store
}

func NewWorkflowRepository(store database.Store) WorkflowRepository {
	return &workflowRepository{store: store}
}

// rollback discards the current transaction after a failed statement,
// so later logical units start on a clean one, and passes the original
// error through.
func rollback(store database.Store, err error) error {
	_ = store.Rollback()
	return err
}

func (r *workflowRepository) AddRun(doc *workflowdomain.Document) (uint, uint, error) {
	content, err := doc.CanonicalJSON()
	if err != nil {
		return 0, 0, err
	}
	hash, err := doc.Hash()
	if err != nil {
		return 0, 0, err
	}
	cond := map[string]any{"hash": hash}

	n, err := r.store.Count(&workflowdomain.Workflow{}, cond)
	if err != nil {
		return 0, 0, rollback(r.store, err)
	}
	if n == 0 {
		record := workflowdomain.Workflow{
			Hash:      hash,
			Content:   string(content),
			CreatedAt: time.Now().UTC(),
		}
		if err := r.store.Insert(&record); err != nil {
			return 0, 0, rollback(r.store, err)
		}
	}

	var workflow workflowdomain.Workflow
	if err := r.store.FetchOne(&workflow, cond); err != nil {
		return 0, 0, rollback(r.store, err)
	}

	run := workflowdomain.Run{
		WorkflowID: workflow.ID,
		Status:     workflowdomain.StatusYetToStart,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.Insert(&run); err != nil {
		return 0, 0, rollback(r.store, err)
	}
	if err := r.store.Commit(); err != nil {
		return 0, 0, err
	}
	return workflow.ID, run.ID, nil
}

// MarkRunStarted moves a run to running. The status condition keeps
// the transition one-way: a run that already left yet_to_start is
// never restarted.
func (r *workflowRepository) MarkRunStarted(runID uint) error {
	now := time.Now().UTC()
	fields := map[string]any{"status": workflowdomain.StatusRunning, "started_at": &now}
	cond := map[string]any{"id": runID, "status": workflowdomain.StatusYetToStart}
	if err := r.store.Update(&workflowdomain.Run{}, fields, cond); err != nil {
		return rollback(r.store, err)
	}
	return r.store.Commit()
}

func (r *workflowRepository) MarkRunCompleted(runID uint, successful bool) error {
	status := workflowdomain.StatusCompleted
	if !successful {
		status = workflowdomain.StatusFailed
	}
	now := time.Now().UTC()
	fields := map[string]any{"status": status, "completed_at": &now}
	cond := map[string]any{"id": runID, "status": workflowdomain.StatusRunning}
	if err := r.store.Update(&workflowdomain.Run{}, fields, cond); err != nil {
		return rollback(r.store, err)
	}
	return r.store.Commit()
}

func (r *workflowRepository) AddActivity(runID uint, emailID uint, actionType string) error {
	activity := workflowdomain.RunActivity{
		RunID:      runID,
		EmailID:    emailID,
		ActionType: actionType,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.store.Insert(&activity); err != nil {
		return rollback(r.store, err)
	}
	return r.store.Commit()
}

func (r *workflowRepository) ListWorkflows() ([]workflowdomain.Workflow, error) {
	var workflows []workflowdomain.Workflow
	if err := r.store.Fetch(&workflows, map[string]any{}); err != nil {
		return nil, rollback(r.store, err)
	}
	return workflows, nil
}

func (r *workflowRepository) ListRuns(workflowID uint) ([]workflowdomain.Run, error) {
	var runs []workflowdomain.Run
	if err := r.store.Fetch(&runs, map[string]any{"workflow_id": workflowID}); err != nil {
		return nil, rollback(r.store, err)
	}
	return runs, nil
}

func (r *workflowRepository) ListActivities(runID uint) ([]workflowdomain.RunActivity, error) {
	var activities []workflowdomain.RunActivity
	if err := r.store.Fetch(&activities, map[string]any{"run_id": runID}); err != nil {
		return nil, rollback(r.store, err)
	}
	return activities, nil
}
