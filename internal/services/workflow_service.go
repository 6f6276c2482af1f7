package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/flowdesk/flowdesk/internal/models"
)

// WorkflowStore abstracts persistence operations required by WorkflowService.
type WorkflowStore interface {
	InsertWorkflow(wf *models.Workflow) error
	GetWorkflow(id string) (*models.Workflow, error)
	UpdateWorkflow(wf *models.Workflow) error
	ListWorkflowsByTenant(tenantID string) ([]*models.Workflow, error)
}

// WorkflowService owns the authoring lifecycle: drafts are editable, publish
// runs the design-time lint and freezes the definition for ticket use.
type WorkflowService struct {
	store WorkflowStore
	now   func() time.Time
	idGen func(n int) string
}

func NewWorkflowService(store WorkflowStore) *WorkflowService {
	return &WorkflowService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: shortID,
	}
}

// LintSeverity separates publish-blocking problems from advisories.
type LintSeverity string

const (
	LintError   LintSeverity = "error"
	LintWarning LintSeverity = "warning"
)

// LintIssue is one problem found in a workflow definition.
type LintIssue struct {
	Severity LintSeverity `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	StepID   string       `json:"step_id,omitempty"`
	FieldKey string       `json:"field_key,omitempty"`
	RuleID   string       `json:"rule_id,omitempty"`
}

func (s *WorkflowService) CreateWorkflow(tenantID, userID string, wf models.Workflow) (*models.Workflow, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	if strings.TrimSpace(wf.Name) == "" {
		return nil, NewInvalidError("workflow name required")
	}
	now := s.now()
	wf.ID = "wf" + s.idGen(8)
	wf.TenantID = tenantID
	wf.CreatedBy = userID
	wf.Status = models.WorkflowDraft
	wf.Version = 1
	wf.CreatedAt = now
	wf.UpdatedAt = now
	assignStepIDs(&wf, s.idGen)
	if err := s.store.InsertWorkflow(&wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

func (s *WorkflowService) GetWorkflow(tenantID, id string) (*models.Workflow, error) {
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		return nil, err
	}
	if wf == nil || wf.TenantID != tenantID {
		return nil, NewNotFoundError("workflow not found")
	}
	return wf, nil
}

func (s *WorkflowService) ListWorkflows(tenantID string) ([]*models.Workflow, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.ListWorkflowsByTenant(tenantID)
}

// UpdateWorkflow replaces a draft's definition. Published workflows are
// immutable; tickets in flight depend on them.
func (s *WorkflowService) UpdateWorkflow(tenantID, id string, wf models.Workflow) (*models.Workflow, error) {
	existing, err := s.GetWorkflow(tenantID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != models.WorkflowDraft {
		return nil, NewConflictError("only draft workflows can be edited")
	}
	if strings.TrimSpace(wf.Name) != "" {
		existing.Name = wf.Name
	}
	existing.Description = wf.Description
	existing.Steps = wf.Steps
	existing.Transitions = wf.Transitions
	existing.UpdatedAt = s.now()
	assignStepIDs(existing, s.idGen)
	if err := s.store.UpdateWorkflow(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// PublishWorkflow lints the definition and, when no errors remain, marks it
// published. Warnings are returned alongside the workflow either way.
func (s *WorkflowService) PublishWorkflow(tenantID, id string) (*models.Workflow, []LintIssue, error) {
	wf, err := s.GetWorkflow(tenantID, id)
	if err != nil {
		return nil, nil, err
	}
	if wf.Status == models.WorkflowPublished {
		return nil, nil, NewConflictError("workflow already published")
	}
	issues := LintWorkflow(wf)
	for _, iss := range issues {
		if iss.Severity == LintError {
			return nil, issues, NewInvalidError("workflow has lint errors")
		}
	}
	wf.Status = models.WorkflowPublished
	wf.UpdatedAt = s.now()
	if err := s.store.UpdateWorkflow(wf); err != nil {
		return nil, issues, err
	}
	return wf, issues, nil
}

func (s *WorkflowService) ArchiveWorkflow(tenantID, id string) (*models.Workflow, error) {
	wf, err := s.GetWorkflow(tenantID, id)
	if err != nil {
		return nil, err
	}
	wf.Status = models.WorkflowArchived
	wf.UpdatedAt = s.now()
	if err := s.store.UpdateWorkflow(wf); err != nil {
		return nil, err
	}
	return wf, nil
}

func assignStepIDs(wf *models.Workflow, idGen func(int) string) {
	for i := range wf.Steps {
		if wf.Steps[i].StepID == "" {
			wf.Steps[i].StepID = "st" + idGen(8)
		}
	}
	for i := range wf.Transitions {
		if wf.Transitions[i].TransitionID == "" {
			wf.Transitions[i].TransitionID = "tr" + idGen(8)
		}
	}
}

// LintWorkflow checks a definition once at publish time so ticket-time rule
// evaluation never has to validate the configuration it runs against.
// Broken references and duplicate identifiers are errors; shapes the engine
// tolerates at runtime (ignored date outcomes, unsatisfiable date combos,
// colliding field keys across steps) are warnings.
func LintWorkflow(wf *models.Workflow) []LintIssue {
	var issues []LintIssue
	add := func(iss LintIssue) { issues = append(issues, iss) }

	if len(wf.Steps) == 0 {
		add(LintIssue{Severity: LintError, Code: "no_steps", Message: "workflow has no steps"})
	}

	stepIDs := make(map[string]bool, len(wf.Steps))
	fieldOwners := map[string][]string{} // field key -> step ids declaring it
	for _, step := range wf.Steps {
		if stepIDs[step.StepID] {
			add(LintIssue{Severity: LintError, Code: "duplicate_step", StepID: step.StepID,
				Message: fmt.Sprintf("step id %q is used more than once", step.StepID)})
		}
		stepIDs[step.StepID] = true
		for _, f := range step.Fields {
			fieldOwners[f.FieldKey] = append(fieldOwners[f.FieldKey], step.StepID)
		}
	}

	for key, owners := range fieldOwners {
		if len(owners) > 1 {
			add(LintIssue{Severity: LintWarning, Code: "field_key_collision", FieldKey: key,
				Message: fmt.Sprintf("field key %q appears in %d steps; cross-step conditions on it are ambiguous", key, len(owners))})
		}
	}

	for _, step := range wf.Steps {
		sections := make(map[string]models.FormSection, len(step.Sections))
		for _, sec := range step.Sections {
			sections[sec.SectionID] = sec
			if sec.MinRows > 0 && !sec.IsRepeating {
				add(LintIssue{Severity: LintError, Code: "min_rows_not_repeating", StepID: step.StepID,
					Message: fmt.Sprintf("section %q sets min_rows but is not repeating", sec.SectionID)})
			}
		}
		for _, f := range step.Fields {
			if f.SectionID != "" {
				if _, ok := sections[f.SectionID]; !ok {
					add(LintIssue{Severity: LintError, Code: "unknown_section", StepID: step.StepID, FieldKey: f.FieldKey,
						Message: fmt.Sprintf("field %q references unknown section %q", f.FieldKey, f.SectionID)})
				}
			}
			lintFieldRules(step, f, fieldOwners, add)
			if f.FieldType == models.FieldDate && f.Validation != nil && f.Validation.DateValidation != nil {
				lintDateCombo(*f.Validation.DateValidation, step.StepID, f.FieldKey, "", add)
			}
		}
	}

	for _, tr := range wf.Transitions {
		if !stepIDs[tr.FromStepID] || !stepIDs[tr.ToStepID] {
			add(LintIssue{Severity: LintError, Code: "dangling_transition",
				Message: fmt.Sprintf("transition %q connects unknown steps %q -> %q", tr.TransitionID, tr.FromStepID, tr.ToStepID)})
		}
		for _, c := range tr.Conditions {
			if _, ok := fieldOwners[c.FieldKey]; !ok {
				add(LintIssue{Severity: LintError, Code: "broken_reference", FieldKey: c.FieldKey,
					Message: fmt.Sprintf("transition %q condition references unknown field %q", tr.TransitionID, c.FieldKey)})
			}
		}
	}

	return issues
}

func lintFieldRules(step models.WorkflowStep, f models.FormField, fieldOwners map[string][]string, add func(LintIssue)) {
	seen := make(map[string]bool, len(f.ConditionalRules))
	for _, r := range f.ConditionalRules {
		if seen[r.RuleID] {
			add(LintIssue{Severity: LintError, Code: "duplicate_rule", StepID: step.StepID, FieldKey: f.FieldKey, RuleID: r.RuleID,
				Message: fmt.Sprintf("rule id %q is used more than once on field %q", r.RuleID, f.FieldKey)})
		}
		seen[r.RuleID] = true
		for _, c := range append([]models.Condition{r.Condition}, r.Conditions...) {
			if _, ok := fieldOwners[c.FieldKey]; !ok {
				add(LintIssue{Severity: LintError, Code: "broken_reference", StepID: step.StepID, FieldKey: f.FieldKey, RuleID: r.RuleID,
					Message: fmt.Sprintf("rule %q references unknown field %q", r.RuleID, c.FieldKey)})
			}
		}
		if r.Outcome.DateValidation != nil {
			if f.FieldType != models.FieldDate {
				add(LintIssue{Severity: LintWarning, Code: "date_rule_on_non_date", StepID: step.StepID, FieldKey: f.FieldKey, RuleID: r.RuleID,
					Message: fmt.Sprintf("field %q is %s; its rule's date restrictions are ignored", f.FieldKey, f.FieldType)})
			} else {
				lintDateCombo(*r.Outcome.DateValidation, step.StepID, f.FieldKey, r.RuleID, add)
			}
		}
	}
}

func lintDateCombo(dv models.DateValidation, stepID, fieldKey, ruleID string, add func(LintIssue)) {
	if !dv.AllowPastDates && !dv.AllowToday && !dv.AllowFutureDates {
		add(LintIssue{Severity: LintWarning, Code: "unsatisfiable_dates", StepID: stepID, FieldKey: fieldKey, RuleID: ruleID,
			Message: fmt.Sprintf("field %q disallows past, today and future; no date can be entered", fieldKey)})
	}
}
