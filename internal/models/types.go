package models

import "time"

// FieldType enumerates the input kinds a workflow designer can place on a form.
type FieldType string

const (
	FieldText             FieldType = "TEXT"
	FieldTextarea         FieldType = "TEXTAREA"
	FieldNumber           FieldType = "NUMBER"
	FieldDate             FieldType = "DATE"
	FieldSelect           FieldType = "SELECT"
	FieldMultiSelect      FieldType = "MULTISELECT"
	FieldCheckbox         FieldType = "CHECKBOX"
	FieldFile             FieldType = "FILE"
	FieldUserSelect       FieldType = "USER_SELECT"
	FieldLookupUserSelect FieldType = "LOOKUP_USER_SELECT"
)

// Operator names a comparison applied by the rule engine.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "not_equals"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpIsEmpty    Operator = "is_empty"
	OpIsNotEmpty Operator = "is_not_empty"
)

// Logic combines a rule's primary condition with its additional conditions.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition compares one form field's current value against an expected value.
// StepID is advisory metadata for cross-step authoring UIs; evaluation keys off
// FieldKey against the value context the caller supplies.
type Condition struct {
	FieldKey string   `json:"field_key"`
	StepID   string   `json:"step_id,omitempty"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// DateValidation restricts which calendar days a DATE field accepts.
// The zero value is NOT the default; use DefaultDateValidation.
type DateValidation struct {
	AllowPastDates   bool `json:"allow_past_dates"`
	AllowToday       bool `json:"allow_today"`
	AllowFutureDates bool `json:"allow_future_dates"`
}

// DefaultDateValidation permits every day.
func DefaultDateValidation() DateValidation {
	return DateValidation{AllowPastDates: true, AllowToday: true, AllowFutureDates: true}
}

// RuleOutcome is what a matched conditional rule decides for its field.
type RuleOutcome struct {
	Required       bool            `json:"required"`
	DateValidation *DateValidation `json:"date_validation,omitempty"`
}

// ConditionalRule makes a field's requiredness (and, for DATE fields, its
// accepted date range) depend on other field values. Rules on a field are
// ordered; the first whose conditions hold wins.
type ConditionalRule struct {
	RuleID     string      `json:"rule_id"`
	Condition  Condition   `json:"condition"`
	Logic      Logic       `json:"logic,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Outcome    RuleOutcome `json:"outcome"`
}

// FieldValidation holds the static constraints a designer can put on a field.
type FieldValidation struct {
	MinLength      int             `json:"min_length,omitempty"`
	MaxLength      int             `json:"max_length,omitempty"`
	RegexPattern   string          `json:"regex_pattern,omitempty"`
	MinValue       *float64        `json:"min_value,omitempty"`
	MaxValue       *float64        `json:"max_value,omitempty"`
	DateValidation *DateValidation `json:"date_validation,omitempty"`
}

// FormField is one input on a workflow step's form. Immutable once the owning
// workflow is published.
type FormField struct {
	FieldKey         string            `json:"field_key"`
	Label            string            `json:"label"`
	FieldType        FieldType         `json:"field_type"`
	Required         bool              `json:"required"`
	Options          []string          `json:"options,omitempty"`
	Validation       *FieldValidation  `json:"validation,omitempty"`
	SectionID        string            `json:"section_id,omitempty"`
	ConditionalRules []ConditionalRule `json:"conditional_requirements,omitempty"`
}

// FormSection groups fields. A repeating section yields N rows at fill time,
// each row an independent value context for its fields.
type FormSection struct {
	SectionID   string `json:"section_id"`
	Title       string `json:"title"`
	IsRepeating bool   `json:"is_repeating,omitempty"`
	MinRows     int    `json:"min_rows,omitempty"`
}

// Transition routes a ticket from one step to another. Transitions out of a
// step are tried in Priority order; the first whose condition group passes is
// taken, and a transition without conditions always passes (the default route).
type Transition struct {
	TransitionID string      `json:"transition_id"`
	FromStepID   string      `json:"from_step_id"`
	ToStepID     string      `json:"to_step_id"`
	Priority     int         `json:"priority"`
	Conditions   []Condition `json:"conditions,omitempty"`
	Logic        Logic       `json:"logic,omitempty"`
}

// WorkflowStep is one form in a workflow, handled by one role.
type WorkflowStep struct {
	StepID       string        `json:"step_id"`
	Name         string        `json:"name"`
	AssignedRole string        `json:"assigned_role,omitempty"`
	Fields       []FormField   `json:"fields"`
	Sections     []FormSection `json:"sections,omitempty"`
}

// WorkflowStatus is the authoring lifecycle of a workflow definition.
type WorkflowStatus string

const (
	WorkflowDraft     WorkflowStatus = "draft"
	WorkflowPublished WorkflowStatus = "published"
	WorkflowArchived  WorkflowStatus = "archived"
)

// Workflow is a designer-authored approval process definition.
type Workflow struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Status      WorkflowStatus `json:"status"`
	Version     int            `json:"version"`
	Steps       []WorkflowStep `json:"steps"`
	Transitions []Transition   `json:"transitions,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TicketStatus is the runtime lifecycle of a submitted ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketApproved   TicketStatus = "approved"
	TicketRejected   TicketStatus = "rejected"
	TicketCancelled  TicketStatus = "cancelled"
)

// HistoryEntry records one action taken on a ticket.
type HistoryEntry struct {
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

// Ticket is a requester's submission moving through a published workflow.
// StepValues maps step id to that step's submitted form values; repeating
// section rows live under the synthetic "__section_<id>" key as list entries.
type Ticket struct {
	ID            string                    `json:"id"`
	TenantID      string                    `json:"tenant_id,omitempty"`
	WorkflowID    string                    `json:"workflow_id"`
	Title         string                    `json:"title"`
	Status        TicketStatus              `json:"status"`
	CurrentStepID string                    `json:"current_step_id,omitempty"`
	RequesterID   string                    `json:"requester_id"`
	AssigneeID    string                    `json:"assignee_id,omitempty"`
	StepValues    map[string]map[string]any `json:"step_values,omitempty"`
	History       []HistoryEntry            `json:"history,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// Role controls which ticket operations a user may perform.
type Role string

const (
	RoleRequester Role = "requester"
	RoleManager   Role = "manager"
	RoleAgent     Role = "agent"
	RoleAdmin     Role = "admin"
)

// User is an authenticated account within a tenant.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Role      Role      `json:"role"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Tenant is an isolated organization.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
