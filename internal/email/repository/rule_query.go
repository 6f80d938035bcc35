package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	emaildomain "mailflow/internal/email/domain"
	workflowdomain "mailflow/internal/workflow/domain"
)

var (
	ErrUnsupportedField     = errors.New("rule references an unsupported field")
	ErrUnsupportedPredicate = errors.New("rule uses a predicate the field does not support")
	ErrMissingValueUnit     = errors.New("date rule is missing a value unit")
	ErrInvalidValueUnit     = errors.New("date rule uses an unsupported value unit")
	ErrInvalidRuleValue     = errors.New("date rule value is not a number")
)

type fieldKind int

const (
	fieldString fieldKind = iota
	fieldDate
)

// ruleField maps a rule field name to the SQL expression it filters
// on. Fulltext fields get tsvector matching for contains predicates,
// the rest fall back to ILIKE.
type ruleField struct {
	expr            string
	kind            fieldKind
	fulltext        bool
	needsRecipients bool
}

var ruleFields = map[string]ruleField{
	"subject":       {expr: "emails.subject", kind: fieldString, fulltext: true},
	"from":          {expr: "CONCAT(emails.sender_name, ' ', emails.sender_email_address)", kind: fieldString},
	"to":            {expr: "recipients.addresses", kind: fieldString, needsRecipients: true},
	"date_received": {expr: "emails.received_timestamp", kind: fieldDate},
}

var intervalUnits = map[string]struct{}{
	"minutes": {},
	"hours":   {},
	"days":    {},
	"weeks":   {},
	"months":  {},
}

// Only to-recipients participate in "to" rules; cc entries are in the
// same table but carry a different type. Address and display name are
// aggregated together so either can match.
const recipientsJoin = "LEFT JOIN (" +
	"SELECT email_id, STRING_AGG(CONCAT(email_address, ' ', name), ' ') AS addresses " +
	"FROM email_recipients WHERE type = '" + emaildomain.RecipientTo + "' GROUP BY email_id" +
	") recipients ON recipients.email_id = emails.id"

// BuildRuleQuery compiles a workflow document into one parameterized
// SELECT over the emails table. Pagination is keyset-based: only rows
// with id below lastID are returned, newest first, capped at
// batchSize.
func BuildRuleQuery(doc *workflowdomain.Document, userID uint, lastID uint, batchSize int) (string, []any, error) {
	var (
		predicates []string
		args       []any
		joinNeeded bool
	)

	for _, rule := range doc.Rules {
		field, ok := ruleFields[rule.FieldName]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedField, rule.FieldName)
		}
		joinNeeded = joinNeeded || field.needsRecipients

		clause, clauseArgs, err := compilePredicate(field, rule)
		if err != nil {
			return "", nil, err
		}
		predicates = append(predicates, clause)
		args = append(args, clauseArgs...)
	}

	connector := " AND "
	if doc.Condition == workflowdomain.ConditionAny {
		connector = " OR "
	}

	var sb strings.Builder
	sb.WriteString("SELECT emails.id, emails.provider_id FROM emails")
	if joinNeeded {
		sb.WriteString(" ")
		sb.WriteString(recipientsJoin)
	}
	sb.WriteString(" WHERE emails.user_id = ? AND emails.id < ? AND (")
	sb.WriteString(strings.Join(predicates, connector))
	sb.WriteString(") ORDER BY emails.id DESC LIMIT ?")

	finalArgs := append([]any{userID, lastID}, args...)
	finalArgs = append(finalArgs, batchSize)
	return sb.String(), finalArgs, nil
}

func compilePredicate(field ruleField, rule workflowdomain.Rule) (string, []any, error) {
	switch field.kind {
	case fieldString:
		return compileStringPredicate(field, rule)
	case fieldDate:
		return compileDatePredicate(field, rule)
	}
	return "", nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedPredicate, rule.Predicate, rule.FieldName)
}

func compileStringPredicate(field ruleField, rule workflowdomain.Rule) (string, []any, error) {
	// Equality is exact; only the substring predicates fold case.
	switch rule.Predicate {
	case "equals":
		return fmt.Sprintf("%s = ?", field.expr), []any{rule.Value}, nil
	case "not_equals":
		return fmt.Sprintf("%s != ?", field.expr), []any{rule.Value}, nil
	case "contains":
		return containsClause(field, false), []any{containsArg(field, rule.Value)}, nil
	case "does_not_contains":
		return containsClause(field, true), []any{containsArg(field, rule.Value)}, nil
	}
	return "", nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedPredicate, rule.Predicate, rule.FieldName)
}

func containsClause(field ruleField, negated bool) string {
	var clause string
	if field.fulltext {
		clause = fmt.Sprintf("to_tsvector('english', %s) @@ plainto_tsquery('english', ?)", field.expr)
	} else {
		clause = fmt.Sprintf("%s ILIKE ?", field.expr)
	}
	if negated {
		return "NOT (" + clause + ")"
	}
	return clause
}

func containsArg(field ruleField, value string) string {
	if field.fulltext {
		return value
	}
	return "%" + value + "%"
}

func compileDatePredicate(field ruleField, rule workflowdomain.Rule) (string, []any, error) {
	if _, err := strconv.Atoi(rule.Value); err != nil {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidRuleValue, rule.Value)
	}
	if rule.ValueUnit == "" {
		return "", nil, fmt.Errorf("%w: field %s", ErrMissingValueUnit, rule.FieldName)
	}
	if _, ok := intervalUnits[rule.ValueUnit]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidValueUnit, rule.ValueUnit)
	}
	interval := rule.Value + " " + rule.ValueUnit

	switch rule.Predicate {
	case "less_than":
		// Received within the last N units.
		return fmt.Sprintf("%s > (NOW() - CAST(? AS interval))", field.expr), []any{interval}, nil
	case "greater_than":
		// Received more than N units ago.
		return fmt.Sprintf("%s < (NOW() - CAST(? AS interval))", field.expr), []any{interval}, nil
	}
	return "", nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedPredicate, rule.Predicate, rule.FieldName)
}
