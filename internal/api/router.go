package api

import (
	"encoding/json"
	"net/http"

	"github.com/flowdesk/flowdesk/internal/middleware"
	"github.com/flowdesk/flowdesk/internal/rules"
	"github.com/flowdesk/flowdesk/internal/services"
)

// Router wires the HTTP surface to the services.
type Router struct {
	auth      *services.AuthService
	workflows *services.WorkflowService
	tickets   *services.TicketService
	dashboard *services.DashboardService
}

func NewRouter(store Store) *Router {
	return &Router{
		auth:      services.NewAuthService(store, middleware.SignToken),
		workflows: services.NewWorkflowService(store),
		tickets:   services.NewTicketService(store),
		dashboard: services.NewDashboardService(store),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)    // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)          // POST
	mux.HandleFunc("/api/auth/users", rt.handleAddUser)        // POST (admin)
	mux.HandleFunc("/api/workflows", rt.handleWorkflows)       // POST, GET
	mux.HandleFunc("/api/workflows/", rt.handleWorkflowByID)   // GET /{id}, PUT /{id}, POST /{id}/publish
	mux.HandleFunc("/api/tickets", rt.handleTickets)           // POST, GET
	mux.HandleFunc("/api/tickets/", rt.handleTicketByID)       // GET /{id}, POST /{id}/<action>
	mux.HandleFunc("/api/dashboard/summary", rt.handleSummary) // GET
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if se, ok := services.AsServiceError(err); ok {
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeViolations reports a refused submission: the error plus the structured
// violations the frontend renders inline.
func writeViolations(w http.ResponseWriter, err error, violations []rules.Violation) {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message())
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":      err.Error(),
		"violations": violations,
		"messages":   msgs,
	})
}

func requireClaims(w http.ResponseWriter, r *http.Request) (*middleware.Claims, bool) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return c, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
