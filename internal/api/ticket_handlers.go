package api

import (
	"net/http"
	"strings"

	"github.com/flowdesk/flowdesk/internal/services"
)

// POST /api/tickets, GET /api/tickets
func (rt *Router) handleTickets(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req struct {
			WorkflowID string         `json:"workflow_id"`
			Title      string         `json:"title"`
			Values     map[string]any `json:"values"`
		}
		if !decode(w, r, &req) {
			return
		}
		tk, violations, err := rt.tickets.CreateTicket(claims.TID, claims.UID, services.CreateTicketRequest{
			WorkflowID: req.WorkflowID,
			Title:      req.Title,
			Values:     req.Values,
		})
		if err != nil {
			if len(violations) > 0 {
				writeViolations(w, err, violations)
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tk)
	case http.MethodGet:
		list, err := rt.tickets.ListTickets(claims.TID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tickets": list})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/tickets/{id} and POST /api/tickets/{id}/{submit|approve|reject|reassign|cancel}
func (rt *Router) handleTicketByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tk, err := rt.tickets.GetTicket(claims.TID, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tk)
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	switch parts[1] {
	case "submit":
		var req struct {
			Values map[string]any `json:"values"`
		}
		if !decode(w, r, &req) {
			return
		}
		tk, violations, err := rt.tickets.SubmitStep(claims.TID, claims.UID, claims.Role, id, req.Values)
		if err != nil {
			if len(violations) > 0 {
				writeViolations(w, err, violations)
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tk)
	case "approve", "reject":
		var req struct {
			Note string `json:"note"`
		}
		if !decode(w, r, &req) {
			return
		}
		decide := rt.tickets.Approve
		if parts[1] == "reject" {
			decide = rt.tickets.Reject
		}
		tk, err := decide(claims.TID, claims.UID, claims.Role, id, req.Note)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tk)
	case "reassign":
		var req struct {
			AssigneeID string `json:"assignee_id"`
		}
		if !decode(w, r, &req) {
			return
		}
		tk, err := rt.tickets.Reassign(claims.TID, claims.UID, claims.Role, id, req.AssigneeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tk)
	case "cancel":
		tk, err := rt.tickets.Cancel(claims.TID, claims.UID, id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tk)
	default:
		http.NotFound(w, r)
	}
}

// GET /api/dashboard/summary
func (rt *Router) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	sum, err := rt.dashboard.Summarize(claims.TID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
