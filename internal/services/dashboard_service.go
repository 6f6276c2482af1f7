package services

import (
	"sort"
	"time"

	"github.com/flowdesk/flowdesk/internal/models"
)

// DashboardStore abstracts the reads the admin dashboard needs.
type DashboardStore interface {
	ListWorkflowsByTenant(tenantID string) ([]*models.Workflow, error)
	ListTicketsByTenant(tenantID string) ([]*models.Ticket, error)
}

// DashboardService aggregates ticket state for the monitoring views.
type DashboardService struct {
	store DashboardStore
}

func NewDashboardService(store DashboardStore) *DashboardService {
	return &DashboardService{store: store}
}

// WorkflowLoad is the open-ticket count for one workflow.
type WorkflowLoad struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`
	OpenTickets  int    `json:"open_tickets"`
}

// Activity is one recent history entry across all tickets.
type Activity struct {
	TicketID    string    `json:"ticket_id"`
	TicketTitle string    `json:"ticket_title"`
	Actor       string    `json:"actor"`
	Action      string    `json:"action"`
	At          time.Time `json:"at"`
}

// Summary is the dashboard payload.
type Summary struct {
	TicketsByStatus map[models.TicketStatus]int `json:"tickets_by_status"`
	WorkflowLoads   []WorkflowLoad              `json:"workflow_loads"`
	RecentActivity  []Activity                  `json:"recent_activity"`
}

const recentActivityLimit = 20

func (s *DashboardService) Summarize(tenantID string) (*Summary, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	workflows, err := s.store.ListWorkflowsByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.store.ListTicketsByTenant(tenantID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(workflows))
	for _, wf := range workflows {
		names[wf.ID] = wf.Name
	}

	sum := &Summary{TicketsByStatus: map[models.TicketStatus]int{}}
	open := map[string]int{}
	var activity []Activity
	for _, tk := range tickets {
		sum.TicketsByStatus[tk.Status]++
		if tk.Status == models.TicketOpen || tk.Status == models.TicketInProgress {
			open[tk.WorkflowID]++
		}
		for _, h := range tk.History {
			activity = append(activity, Activity{TicketID: tk.ID, TicketTitle: tk.Title, Actor: h.Actor, Action: h.Action, At: h.At})
		}
	}

	for id, n := range open {
		sum.WorkflowLoads = append(sum.WorkflowLoads, WorkflowLoad{WorkflowID: id, WorkflowName: names[id], OpenTickets: n})
	}
	sort.Slice(sum.WorkflowLoads, func(i, j int) bool {
		if sum.WorkflowLoads[i].OpenTickets != sum.WorkflowLoads[j].OpenTickets {
			return sum.WorkflowLoads[i].OpenTickets > sum.WorkflowLoads[j].OpenTickets
		}
		return sum.WorkflowLoads[i].WorkflowID < sum.WorkflowLoads[j].WorkflowID
	})

	sort.Slice(activity, func(i, j int) bool { return activity[i].At.After(activity[j].At) })
	if len(activity) > recentActivityLimit {
		activity = activity[:recentActivityLimit]
	}
	sum.RecentActivity = activity
	return sum, nil
}
