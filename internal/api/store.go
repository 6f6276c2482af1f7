package api

import (
	"sort"
	"sync"

	"github.com/flowdesk/flowdesk/internal/models"
	"github.com/flowdesk/flowdesk/internal/services"
)

// Store is the persistence surface the API needs. It is the union of the
// per-service store interfaces, so one implementation backs every service.
type Store interface {
	services.WorkflowStore
	services.TicketStore
	services.AuthStore
}

// MemoryStore is a mutex-guarded in-memory Store. It backs tests and runs the
// server without a sqlite file.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*models.Workflow
	tickets   map[string]*models.Ticket
	users     map[string]*models.User
	tenants   map[string]*models.Tenant
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: map[string]*models.Workflow{},
		tickets:   map[string]*models.Ticket{},
		users:     map[string]*models.User{},
		tenants:   map[string]*models.Tenant{},
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) InsertWorkflow(wf *models.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *wf
	s.workflows[wf.ID] = &cp
	return nil
}

func (s *MemoryStore) GetWorkflow(id string) (*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if wf, ok := s.workflows[id]; ok {
		cp := *wf
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpdateWorkflow(wf *models.Workflow) error {
	return s.InsertWorkflow(wf)
}

func (s *MemoryStore) ListWorkflowsByTenant(tenantID string) ([]*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Workflow
	for _, wf := range s.workflows {
		if wf.TenantID == tenantID {
			cp := *wf
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) InsertTicket(tk *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tk
	s.tickets[tk.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTicket(id string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tk, ok := s.tickets[id]; ok {
		cp := *tk
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) UpdateTicket(tk *models.Ticket) error {
	return s.InsertTicket(tk)
}

func (s *MemoryStore) ListTicketsByTenant(tenantID string) ([]*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Ticket
	for _, tk := range s.tickets {
		if tk.TenantID == tenantID {
			cp := *tk
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) FindUserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) AddUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) AddTenant(t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}
