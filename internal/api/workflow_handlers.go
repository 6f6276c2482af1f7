package api

import (
	"net/http"
	"strings"

	"github.com/flowdesk/flowdesk/internal/models"
)

// POST /api/workflows, GET /api/workflows
func (rt *Router) handleWorkflows(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var def models.Workflow
		if !decode(w, r, &def) {
			return
		}
		wf, err := rt.workflows.CreateWorkflow(claims.TID, claims.UID, def)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, wf)
	case http.MethodGet:
		list, err := rt.workflows.ListWorkflows(claims.TID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"workflows": list})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/workflows/{id}, PUT /api/workflows/{id}, POST /api/workflows/{id}/publish
func (rt *Router) handleWorkflowByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/workflows/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			wf, err := rt.workflows.GetWorkflow(claims.TID, id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, wf)
		case http.MethodPut:
			var def models.Workflow
			if !decode(w, r, &def) {
				return
			}
			wf, err := rt.workflows.UpdateWorkflow(claims.TID, id, def)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, wf)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "publish" {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wf, issues, err := rt.workflows.PublishWorkflow(claims.TID, id)
		if err != nil {
			// Lint refusals include the issue list so the designer can fix them.
			if len(issues) > 0 {
				writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "issues": issues})
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"workflow": wf, "issues": issues})
		return
	}

	http.NotFound(w, r)
}
