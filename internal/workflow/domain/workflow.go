package domain

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"lukechampine.com/blake3"
)

// ErrInvalidWorkflow is returned when a workflow document fails
// validation. The run is never created in that case.
var ErrInvalidWorkflow = errors.New("invalid workflow document")

// Workflow actions.
const (
	ActionMarkRead = "mark_read"
	ActionMove     = "move"
)

// Conditions joining the rule list.
const (
	ConditionAll = "all"
	ConditionAny = "any"
)

// Run statuses. Transitions are monotonic: yet_to_start -> running ->
// completed | failed, never backwards.
const (
	StatusYetToStart = "yet_to_start"
	StatusRunning    = "running"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Rule is one field/predicate/value triple of a workflow document.
type Rule struct {
	FieldName string `json:"field_name" validate:"required"`
	Predicate string `json:"predicate" validate:"required"`
	Value     string `json:"value" validate:"required"`
	ValueUnit string `json:"value_unit,omitempty"`
}

// Document is the declarative workflow shape submitted by the user.
type Document struct {
	Condition    string `json:"condition" validate:"required,oneof=all any"`
	Rules        []Rule `json:"rules" validate:"required,min=1,dive"`
	Action       string `json:"action" validate:"required,oneof=mark_read move"`
	ActionTarget string `json:"action_target,omitempty" validate:"required_if=Action move"`
}

var validate = validator.New()

// ParseFile reads and decodes a workflow document from a JSON file.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read workflow file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflow, err)
	}
	return &doc, nil
}

// Validate checks the document against the workflow schema. An empty
// rule list is rejected: a vacuous workflow would act on every stored
// email, which is never what an author wants silently.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWorkflow, err)
	}
	return nil
}

// CanonicalJSON is the stable serialization used for content
// addressing. Struct field order keeps it deterministic.
func (d *Document) CanonicalJSON() ([]byte, error) {
	return json.Marshal(d)
}

// Hash returns the BLAKE3 content hash of the canonical serialization.
// Identical rule definitions share one Workflow record.
func (d *Document) Hash() (string, error) {
	content, err := d.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

// Workflow is a persisted, content-addressed rule document.
type Workflow struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Hash      string    `json:"hash" gorm:"uniqueIndex;not null"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is one execution attempt of a workflow.
type Run struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	WorkflowID  uint       `json:"workflow_id" gorm:"index;not null"`
	Status      string     `json:"status" gorm:"not null"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (Run) TableName() string { return "workflow_runs" }

// RunActivity is one append-only audit row: the action applied to one
// email during one run.
type RunActivity struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	RunID      uint      `json:"run_id" gorm:"index;not null"`
	EmailID    uint      `json:"email_id" gorm:"not null"`
	ActionType string    `json:"action_type" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (RunActivity) TableName() string { return "workflow_run_activities" }
