package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flowdesk/flowdesk/internal/api"
	"github.com/flowdesk/flowdesk/internal/models"
)

// SQLiteStore persists workflows, tickets and accounts in sqlite. Workflow
// definitions and ticket values are document-shaped, so steps, transitions,
// step values and history live in JSON columns; everything queried by goes in
// real columns.
type SQLiteStore struct {
	db *sql.DB
}

var _ api.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

type workflowDefinition struct {
	Steps       []models.WorkflowStep `json:"steps"`
	Transitions []models.Transition   `json:"transitions,omitempty"`
}

func (s *SQLiteStore) InsertWorkflow(wf *models.Workflow) error {
	def, err := encodeJSON(workflowDefinition{Steps: wf.Steps, Transitions: wf.Transitions})
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO workflows
		(id, tenant_id, name, description, status, version, definition, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.TenantID, wf.Name, toNullString(wf.Description), string(wf.Status), wf.Version,
		def, toNullString(wf.CreatedBy), wf.CreatedAt.UTC(), wf.UpdatedAt.UTC())
	return err
}

func (s *SQLiteStore) UpdateWorkflow(wf *models.Workflow) error {
	def, err := encodeJSON(workflowDefinition{Steps: wf.Steps, Transitions: wf.Transitions})
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE workflows
		SET name = ?, description = ?, status = ?, version = ?, definition = ?, updated_at = ?
		WHERE id = ?`,
		wf.Name, toNullString(wf.Description), string(wf.Status), wf.Version, def, wf.UpdatedAt.UTC(), wf.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("workflow %s not found", wf.ID)
	}
	return nil
}

func (s *SQLiteStore) GetWorkflow(id string) (*models.Workflow, error) {
	row := s.db.QueryRow(`SELECT id, tenant_id, name, description, status, version, definition, created_by, created_at, updated_at
		FROM workflows WHERE id = ?`, id)
	wf, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return wf, err
}

func (s *SQLiteStore) ListWorkflowsByTenant(tenantID string) ([]*models.Workflow, error) {
	rows, err := s.db.Query(`SELECT id, tenant_id, name, description, status, version, definition, created_by, created_at, updated_at
		FROM workflows WHERE tenant_id = ? ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		wf                   models.Workflow
		description, creator sql.NullString
		status, def          string
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&wf.ID, &wf.TenantID, &wf.Name, &description, &status, &wf.Version, &def, &creator, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	wf.Description = description.String
	wf.CreatedBy = creator.String
	wf.Status = models.WorkflowStatus(status)
	wf.CreatedAt = createdAt
	wf.UpdatedAt = updatedAt
	var d workflowDefinition
	if err := decodeJSON(def, &d); err != nil {
		return nil, fmt.Errorf("decode workflow %s definition: %w", wf.ID, err)
	}
	wf.Steps = d.Steps
	wf.Transitions = d.Transitions
	return &wf, nil
}

func (s *SQLiteStore) InsertTicket(tk *models.Ticket) error {
	values, err := encodeJSON(tk.StepValues)
	if err != nil {
		return err
	}
	history, err := encodeJSON(tk.History)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO tickets
		(id, tenant_id, workflow_id, title, status, current_step_id, requester_id, assignee_id, step_values, history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tk.ID, tk.TenantID, tk.WorkflowID, tk.Title, string(tk.Status), toNullString(tk.CurrentStepID),
		tk.RequesterID, toNullString(tk.AssigneeID), values, history, tk.CreatedAt.UTC(), tk.UpdatedAt.UTC())
	return err
}

func (s *SQLiteStore) UpdateTicket(tk *models.Ticket) error {
	values, err := encodeJSON(tk.StepValues)
	if err != nil {
		return err
	}
	history, err := encodeJSON(tk.History)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE tickets
		SET status = ?, current_step_id = ?, assignee_id = ?, step_values = ?, history = ?, updated_at = ?
		WHERE id = ?`,
		string(tk.Status), toNullString(tk.CurrentStepID), toNullString(tk.AssigneeID), values, history, tk.UpdatedAt.UTC(), tk.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ticket %s not found", tk.ID)
	}
	return nil
}

func (s *SQLiteStore) GetTicket(id string) (*models.Ticket, error) {
	row := s.db.QueryRow(`SELECT id, tenant_id, workflow_id, title, status, current_step_id, requester_id, assignee_id, step_values, history, created_at, updated_at
		FROM tickets WHERE id = ?`, id)
	tk, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return tk, err
}

func (s *SQLiteStore) ListTicketsByTenant(tenantID string) ([]*models.Ticket, error) {
	rows, err := s.db.Query(`SELECT id, tenant_id, workflow_id, title, status, current_step_id, requester_id, assignee_id, step_values, history, created_at, updated_at
		FROM tickets WHERE tenant_id = ? ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Ticket
	for rows.Next() {
		tk, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tk)
	}
	return out, rows.Err()
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var (
		tk                      models.Ticket
		currentStep, assignee   sql.NullString
		status, values, history string
		createdAt, updatedAt    time.Time
	)
	if err := row.Scan(&tk.ID, &tk.TenantID, &tk.WorkflowID, &tk.Title, &status, &currentStep, &tk.RequesterID, &assignee, &values, &history, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	tk.Status = models.TicketStatus(status)
	tk.CurrentStepID = currentStep.String
	tk.AssigneeID = assignee.String
	tk.CreatedAt = createdAt
	tk.UpdatedAt = updatedAt
	if err := decodeJSON(values, &tk.StepValues); err != nil {
		return nil, fmt.Errorf("decode ticket %s values: %w", tk.ID, err)
	}
	if err := decodeJSON(history, &tk.History); err != nil {
		return nil, fmt.Errorf("decode ticket %s history: %w", tk.ID, err)
	}
	return &tk, nil
}

func (s *SQLiteStore) FindUserByEmail(email string) (*models.User, error) {
	row := s.db.QueryRow(`SELECT id, email, pass_hash, role, tenant_id, created_at FROM users WHERE email = ?`, email)
	var (
		u    models.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PassHash, &role, &u.TenantID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (s *SQLiteStore) AddUser(u *models.User) error {
	_, err := s.db.Exec(`INSERT INTO users (id, email, pass_hash, role, tenant_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PassHash, string(u.Role), u.TenantID, u.CreatedAt.UTC())
	return err
}

func (s *SQLiteStore) AddTenant(t *models.Tenant) error {
	_, err := s.db.Exec(`INSERT INTO tenants (id, name, created_at) VALUES (?, ?, ?)`,
		t.ID, t.Name, t.CreatedAt.UTC())
	return err
}
