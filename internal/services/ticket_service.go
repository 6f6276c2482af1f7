package services

import (
	"sort"
	"strings"
	"time"

	"github.com/flowdesk/flowdesk/internal/models"
	"github.com/flowdesk/flowdesk/internal/rules"
)

// TicketStore abstracts persistence operations required by TicketService.
type TicketStore interface {
	GetWorkflow(id string) (*models.Workflow, error)
	InsertTicket(tk *models.Ticket) error
	GetTicket(id string) (*models.Ticket, error)
	UpdateTicket(tk *models.Ticket) error
	ListTicketsByTenant(tenantID string) ([]*models.Ticket, error)
}

// TicketService runs the ticket lifecycle: creation gates on the rule engine's
// validation of the first step's values, each submission routes through the
// workflow's transitions, and approval actions are role-guarded.
type TicketService struct {
	store TicketStore
	now   func() time.Time
	idGen func(n int) string
}

func NewTicketService(store TicketStore) *TicketService {
	return &TicketService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: shortID,
	}
}

// CreateTicketRequest carries a requester's initial submission.
type CreateTicketRequest struct {
	WorkflowID string
	Title      string
	Values     map[string]any
}

// CreateTicket validates the first step's values and, when they pass, opens
// the ticket and routes it to the next step. Validation failures come back as
// violations with a nil ticket; the error is an invalid ServiceError so
// handlers can distinguish user input problems from store failures.
func (s *TicketService) CreateTicket(tenantID, requesterID string, req CreateTicketRequest) (*models.Ticket, []rules.Violation, error) {
	if tenantID == "" {
		return nil, nil, NewForbiddenError("unauthorized")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, nil, NewInvalidError("ticket title required")
	}
	wf, err := s.publishedWorkflow(tenantID, req.WorkflowID)
	if err != nil {
		return nil, nil, err
	}
	first := wf.Steps[0]
	violations := rules.ValidateStep(first, rules.ValueContext(req.Values), s.now())
	if len(violations) > 0 {
		return nil, violations, NewInvalidError("submitted values failed validation")
	}

	now := s.now()
	tk := &models.Ticket{
		ID:          "tk" + s.idGen(8),
		TenantID:    tenantID,
		WorkflowID:  wf.ID,
		Title:       req.Title,
		Status:      models.TicketOpen,
		RequesterID: requesterID,
		StepValues:  map[string]map[string]any{first.StepID: req.Values},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tk.History = append(tk.History, models.HistoryEntry{Actor: requesterID, Action: "created", At: now})
	s.route(tk, wf, first.StepID)
	if err := s.store.InsertTicket(tk); err != nil {
		return nil, nil, err
	}
	return tk, nil, nil
}

// SubmitStep validates and records the current step's values, then routes the
// ticket onward. Only the assignee (or any actor when the step is unassigned)
// may submit; admins always can.
func (s *TicketService) SubmitStep(tenantID, actorID string, role models.Role, ticketID string, values map[string]any) (*models.Ticket, []rules.Violation, error) {
	tk, err := s.GetTicket(tenantID, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if tk.Status != models.TicketOpen && tk.Status != models.TicketInProgress {
		return nil, nil, NewConflictError("ticket is no longer active")
	}
	if tk.AssigneeID != "" && tk.AssigneeID != actorID && role != models.RoleAdmin {
		return nil, nil, NewForbiddenError("ticket is assigned to another user")
	}
	wf, err := s.publishedWorkflow(tenantID, tk.WorkflowID)
	if err != nil {
		return nil, nil, err
	}
	step, ok := findStep(wf, tk.CurrentStepID)
	if !ok {
		return nil, nil, NewConflictError("ticket has no pending step")
	}
	// Rule conditions may reference fields from earlier steps, so validate
	// against the merged history with this submission overlaid on top.
	ctx := MergeStepValues(tk)
	for k, v := range values {
		ctx[k] = v
	}
	violations := rules.ValidateStep(step, ctx, s.now())
	if len(violations) > 0 {
		return nil, violations, NewInvalidError("submitted values failed validation")
	}

	now := s.now()
	if tk.StepValues == nil {
		tk.StepValues = map[string]map[string]any{}
	}
	tk.StepValues[step.StepID] = values
	tk.History = append(tk.History, models.HistoryEntry{Actor: actorID, Action: "submitted " + step.Name, At: now})
	tk.UpdatedAt = now
	s.route(tk, wf, step.StepID)
	if err := s.store.UpdateTicket(tk); err != nil {
		return nil, nil, err
	}
	return tk, nil, nil
}

// Approve finishes the ticket. Managers and admins only.
func (s *TicketService) Approve(tenantID, actorID string, role models.Role, ticketID, note string) (*models.Ticket, error) {
	return s.decide(tenantID, actorID, role, ticketID, note, models.TicketApproved, "approved")
}

// Reject finishes the ticket negatively. Managers and admins only.
func (s *TicketService) Reject(tenantID, actorID string, role models.Role, ticketID, note string) (*models.Ticket, error) {
	return s.decide(tenantID, actorID, role, ticketID, note, models.TicketRejected, "rejected")
}

func (s *TicketService) decide(tenantID, actorID string, role models.Role, ticketID, note string, status models.TicketStatus, action string) (*models.Ticket, error) {
	if role != models.RoleManager && role != models.RoleAdmin {
		return nil, NewForbiddenError("only managers can decide tickets")
	}
	tk, err := s.GetTicket(tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if tk.Status != models.TicketOpen && tk.Status != models.TicketInProgress {
		return nil, NewConflictError("ticket is no longer active")
	}
	now := s.now()
	tk.Status = status
	tk.CurrentStepID = ""
	tk.History = append(tk.History, models.HistoryEntry{Actor: actorID, Action: action, Note: note, At: now})
	tk.UpdatedAt = now
	if err := s.store.UpdateTicket(tk); err != nil {
		return nil, err
	}
	return tk, nil
}

// Reassign hands the ticket's pending work to another user.
func (s *TicketService) Reassign(tenantID, actorID string, role models.Role, ticketID, assigneeID string) (*models.Ticket, error) {
	if role != models.RoleManager && role != models.RoleAdmin {
		return nil, NewForbiddenError("only managers can reassign tickets")
	}
	tk, err := s.GetTicket(tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if tk.Status != models.TicketOpen && tk.Status != models.TicketInProgress {
		return nil, NewConflictError("ticket is no longer active")
	}
	now := s.now()
	tk.AssigneeID = assigneeID
	tk.History = append(tk.History, models.HistoryEntry{Actor: actorID, Action: "reassigned to " + assigneeID, At: now})
	tk.UpdatedAt = now
	if err := s.store.UpdateTicket(tk); err != nil {
		return nil, err
	}
	return tk, nil
}

// Cancel lets the requester withdraw their own active ticket.
func (s *TicketService) Cancel(tenantID, actorID, ticketID string) (*models.Ticket, error) {
	tk, err := s.GetTicket(tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if tk.RequesterID != actorID {
		return nil, NewForbiddenError("only the requester can cancel a ticket")
	}
	if tk.Status != models.TicketOpen && tk.Status != models.TicketInProgress {
		return nil, NewConflictError("ticket is no longer active")
	}
	now := s.now()
	tk.Status = models.TicketCancelled
	tk.CurrentStepID = ""
	tk.History = append(tk.History, models.HistoryEntry{Actor: actorID, Action: "cancelled", At: now})
	tk.UpdatedAt = now
	if err := s.store.UpdateTicket(tk); err != nil {
		return nil, err
	}
	return tk, nil
}

func (s *TicketService) GetTicket(tenantID, id string) (*models.Ticket, error) {
	tk, err := s.store.GetTicket(id)
	if err != nil {
		return nil, err
	}
	if tk == nil || tk.TenantID != tenantID {
		return nil, NewNotFoundError("ticket not found")
	}
	return tk, nil
}

func (s *TicketService) ListTickets(tenantID string) ([]*models.Ticket, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.ListTicketsByTenant(tenantID)
}

func (s *TicketService) publishedWorkflow(tenantID, id string) (*models.Workflow, error) {
	wf, err := s.store.GetWorkflow(id)
	if err != nil {
		return nil, err
	}
	if wf == nil || wf.TenantID != tenantID {
		return nil, NewNotFoundError("workflow not found")
	}
	if wf.Status != models.WorkflowPublished {
		return nil, NewConflictError("workflow is not published")
	}
	if len(wf.Steps) == 0 {
		return nil, NewConflictError("workflow has no steps")
	}
	return wf, nil
}

// route advances the ticket out of fromStepID. Transitions are tried in
// priority order against the merged values of every submitted step; the first
// passing transition wins. A step with no passing transition is terminal and
// the ticket is approved.
func (s *TicketService) route(tk *models.Ticket, wf *models.Workflow, fromStepID string) {
	merged := MergeStepValues(tk)
	next, ok := NextStep(wf, fromStepID, merged)
	now := s.now()
	if !ok {
		tk.Status = models.TicketApproved
		tk.CurrentStepID = ""
		tk.History = append(tk.History, models.HistoryEntry{Actor: "system", Action: "completed", At: now})
		return
	}
	tk.Status = models.TicketInProgress
	tk.CurrentStepID = next
	if step, found := findStep(wf, next); found {
		tk.History = append(tk.History, models.HistoryEntry{Actor: "system", Action: "routed to " + step.Name, At: now})
	}
}

// MergeStepValues flattens every submitted step's values into one context for
// transition evaluation. Field keys are not step-qualified; the publish lint
// warns when keys collide across steps.
func MergeStepValues(tk *models.Ticket) rules.ValueContext {
	stepIDs := make([]string, 0, len(tk.StepValues))
	for id := range tk.StepValues {
		stepIDs = append(stepIDs, id)
	}
	sort.Strings(stepIDs)
	merged := rules.ValueContext{}
	for _, id := range stepIDs {
		for k, v := range tk.StepValues[id] {
			merged[k] = v
		}
	}
	return merged
}

// NextStep picks the destination of the first passing transition out of
// fromStepID, in priority order.
func NextStep(wf *models.Workflow, fromStepID string, values rules.ValueContext) (string, bool) {
	var outgoing []models.Transition
	for _, tr := range wf.Transitions {
		if tr.FromStepID == fromStepID {
			outgoing = append(outgoing, tr)
		}
	}
	sort.SliceStable(outgoing, func(i, j int) bool { return outgoing[i].Priority < outgoing[j].Priority })
	for _, tr := range outgoing {
		if rules.EvaluateGroup(tr.Conditions, tr.Logic, values, nil) {
			return tr.ToStepID, true
		}
	}
	return "", false
}

func findStep(wf *models.Workflow, stepID string) (models.WorkflowStep, bool) {
	for _, st := range wf.Steps {
		if st.StepID == stepID {
			return st, true
		}
	}
	return models.WorkflowStep{}, false
}
