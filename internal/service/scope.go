package service

import (
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// TicketQuery carries caller supplied listing filters.
type TicketQuery struct {
	Statuses   []string
	Priorities []string
	// CreatorID and AssignedAdmin only take effect for admins.
	CreatorID     string
	AssignedAdmin string
	Limit         int
	Offset        int
}

// scopeFilter turns a query into a repository filter the principal is allowed
// to run. Non-admins are always pinned to their own tickets.
func scopeFilter(p domain.Principal, q TicketQuery) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	for _, raw := range q.Statuses {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		status, err := parseRequestedStatus(raw)
		if err != nil {
			return repository.TicketFilter{}, err
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range q.Priorities {
		if priority := normalizePriority(raw); priority != "" {
			filter.Priorities = append(filter.Priorities, priority)
		}
	}

	if p.IsAdmin() {
		if creator := strings.TrimSpace(q.CreatorID); creator != "" {
			filter.CreatorID = &creator
		}
		if admin := strings.TrimSpace(q.AssignedAdmin); admin != "" {
			filter.AssignedAdmin = &admin
		}
		return filter, nil
	}

	creator := p.UserID
	filter.CreatorID = &creator
	return filter, nil
}

// canView reports whether the principal may read or reply to the ticket.
func canView(p domain.Principal, ticket *domain.Ticket) bool {
	return p.IsAdmin() || ticket.CreatorID == p.UserID
}

func normalizePriority(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
