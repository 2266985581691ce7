package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MemoryTicketRepository keeps tickets in process. It backs tests and local
// runs without MONGO_URI.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
	seq     map[string]int
	next    int
}

// NewMemoryTicketRepository returns an empty repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[string]*domain.Ticket),
		seq:     make(map[string]int),
	}
}

func (r *MemoryTicketRepository) Insert(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if _, exists := r.tickets[ticket.ID]; exists {
		return fmt.Errorf("duplicate ticket id %s", ticket.ID)
	}
	now := storeTime()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = ticket.Clone()
	r.next++
	r.seq[ticket.ID] = r.next
	return nil
}

func (r *MemoryTicketRepository) FindByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return ticket.Clone(), nil
}

func (r *MemoryTicketRepository) FindByFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		if matchesFilter(ticket, filter) {
			matched = append(matched, ticket)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return r.seq[matched[i].ID] > r.seq[matched[j].ID]
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	result := make([]domain.Ticket, 0, len(matched))
	for _, ticket := range matched {
		result = append(result, *ticket.Clone())
	}
	return result, nil
}

func (r *MemoryTicketRepository) Save(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return ErrTicketNotFound
	}
	ticket.UpdatedAt = storeTime()
	next := ticket.Clone()
	next.CreatorID = stored.CreatorID
	next.CreatedAt = stored.CreatedAt
	r.tickets[ticket.ID] = next
	return nil
}

func (r *MemoryTicketRepository) DeleteByCreator(_ context.Context, creatorID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, ticket := range r.tickets {
		if ticket.CreatorID == creatorID {
			delete(r.tickets, id)
			delete(r.seq, id)
			deleted++
		}
	}
	return deleted, nil
}

func matchesFilter(ticket *domain.Ticket, filter TicketFilter) bool {
	if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
		return false
	}
	if filter.AssignedAdmin != nil && (ticket.AssignedAdmin == nil || *ticket.AssignedAdmin != *filter.AssignedAdmin) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsString(filter.Priorities, ticket.Priority) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
