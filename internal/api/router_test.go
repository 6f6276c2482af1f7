package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowdesk/flowdesk/internal/middleware"
	"github.com/flowdesk/flowdesk/internal/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewRouter(NewMemoryStore()).Register(mux)
	srv := httptest.NewServer(middleware.WithAuth(mux))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestTicketJourney(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL

	var reg struct {
		Token    string `json:"token"`
		TenantID string `json:"tenant_id"`
	}
	if code := doJSON(t, http.MethodPost, base+"/api/auth/register", "", map[string]string{
		"email": "admin@acme.test", "password": "Secret123", "tenantName": "Acme",
	}, &reg); code != http.StatusOK {
		t.Fatalf("register status = %d", code)
	}
	if reg.Token == "" {
		t.Fatalf("register returned no token")
	}
	token := reg.Token

	// Author and publish a workflow with a conditional requirement.
	def := models.Workflow{
		Name: "Expense Approval",
		Steps: []models.WorkflowStep{
			{
				StepID: "request", Name: "Request",
				Fields: []models.FormField{
					{FieldKey: "request_type", Label: "Request Type", FieldType: models.FieldSelect, Required: true, Options: []string{"EXPENSE", "LEAVE"}},
					{
						FieldKey: "amount", Label: "Amount", FieldType: models.FieldNumber,
						ConditionalRules: []models.ConditionalRule{{
							RuleID:    "need-amount",
							Condition: models.Condition{FieldKey: "request_type", Operator: models.OpEquals, Value: "EXPENSE"},
							Outcome:   models.RuleOutcome{Required: true},
						}},
					},
				},
			},
			{StepID: "review", Name: "Review", AssignedRole: "manager",
				Fields: []models.FormField{{FieldKey: "note", Label: "Note", FieldType: models.FieldTextarea}}},
		},
		Transitions: []models.Transition{
			{TransitionID: "t1", FromStepID: "request", ToStepID: "review", Priority: 1},
		},
	}
	var wf models.Workflow
	if code := doJSON(t, http.MethodPost, base+"/api/workflows", token, def, &wf); code != http.StatusOK {
		t.Fatalf("create workflow status = %d", code)
	}
	var published struct {
		Workflow models.Workflow `json:"workflow"`
	}
	if code := doJSON(t, http.MethodPost, base+"/api/workflows/"+wf.ID+"/publish", token, map[string]any{}, &published); code != http.StatusOK {
		t.Fatalf("publish status = %d", code)
	}
	if published.Workflow.Status != models.WorkflowPublished {
		t.Fatalf("published status = %s", published.Workflow.Status)
	}

	// A submission violating the conditional requirement is refused with
	// structured violations.
	var refusal struct {
		Violations []struct {
			Kind     string `json:"kind"`
			FieldKey string `json:"field_key"`
		} `json:"violations"`
		Messages []string `json:"messages"`
	}
	code := doJSON(t, http.MethodPost, base+"/api/tickets", token, map[string]any{
		"workflow_id": wf.ID, "title": "Dinner",
		"values": map[string]any{"request_type": "EXPENSE", "amount": ""},
	}, &refusal)
	if code != http.StatusBadRequest {
		t.Fatalf("invalid ticket status = %d, want 400", code)
	}
	if len(refusal.Violations) != 1 || refusal.Violations[0].Kind != "required_field_missing" || refusal.Violations[0].FieldKey != "amount" {
		t.Fatalf("violations = %+v", refusal.Violations)
	}
	if len(refusal.Messages) != 1 || refusal.Messages[0] != "Amount is required" {
		t.Fatalf("messages = %v", refusal.Messages)
	}

	// A valid submission opens the ticket and routes it to review.
	var tk models.Ticket
	if code := doJSON(t, http.MethodPost, base+"/api/tickets", token, map[string]any{
		"workflow_id": wf.ID, "title": "Dinner",
		"values": map[string]any{"request_type": "EXPENSE", "amount": 42},
	}, &tk); code != http.StatusOK {
		t.Fatalf("create ticket status = %d", code)
	}
	if tk.Status != models.TicketInProgress || tk.CurrentStepID != "review" {
		t.Fatalf("ticket = status %s step %s, want in_progress at review", tk.Status, tk.CurrentStepID)
	}

	// The registering admin can approve.
	var approved models.Ticket
	if code := doJSON(t, http.MethodPost, base+"/api/tickets/"+tk.ID+"/approve", token, map[string]string{"note": "ok"}, &approved); code != http.StatusOK {
		t.Fatalf("approve status = %d", code)
	}
	if approved.Status != models.TicketApproved {
		t.Fatalf("approved status = %s", approved.Status)
	}

	var sum struct {
		TicketsByStatus map[string]int `json:"tickets_by_status"`
	}
	if code := doJSON(t, http.MethodGet, base+"/api/dashboard/summary", token, nil, &sum); code != http.StatusOK {
		t.Fatalf("summary status = %d", code)
	}
	if sum.TicketsByStatus["approved"] != 1 {
		t.Fatalf("summary = %+v, want one approved ticket", sum.TicketsByStatus)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/api/workflows", "/api/tickets", "/api/dashboard/summary"} {
		code := doJSON(t, http.MethodGet, srv.URL+path, "", nil, nil)
		if code != http.StatusUnauthorized {
			t.Fatalf("GET %s = %d, want 401", path, code)
		}
	}
}

func TestPublishRefusalReturnsIssues(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL

	var reg struct {
		Token string `json:"token"`
	}
	doJSON(t, http.MethodPost, base+"/api/auth/register", "", map[string]string{
		"email": "admin@acme.test", "password": "Secret123", "tenantName": "Acme",
	}, &reg)

	def := models.Workflow{
		Name: "Broken",
		Steps: []models.WorkflowStep{{
			StepID: "s1", Name: "S1",
			Fields: []models.FormField{{
				FieldKey: "a", Label: "A", FieldType: models.FieldText,
				ConditionalRules: []models.ConditionalRule{{
					RuleID:    "r1",
					Condition: models.Condition{FieldKey: "ghost", Operator: models.OpIsNotEmpty},
					Outcome:   models.RuleOutcome{Required: true},
				}},
			}},
		}},
	}
	var wf models.Workflow
	doJSON(t, http.MethodPost, base+"/api/workflows", reg.Token, def, &wf)

	var refusal struct {
		Issues []struct {
			Code     string `json:"code"`
			Severity string `json:"severity"`
		} `json:"issues"`
	}
	code := doJSON(t, http.MethodPost, base+"/api/workflows/"+wf.ID+"/publish", reg.Token, map[string]any{}, &refusal)
	if code != http.StatusBadRequest {
		t.Fatalf("publish status = %d, want 400", code)
	}
	found := false
	for _, iss := range refusal.Issues {
		if iss.Code == "broken_reference" && iss.Severity == "error" {
			found = true
		}
	}
	if !found {
		t.Fatalf("issues = %+v, want broken_reference error", refusal.Issues)
	}
}
