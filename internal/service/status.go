package service

import (
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// parseRequestedStatus validates a caller supplied status. Any enum member
// may follow any other; only unknown values are rejected.
func parseRequestedStatus(raw string) (domain.TicketStatus, error) {
	status, ok := domain.ParseTicketStatus(raw)
	if !ok {
		return "", apperrors.NewValidationError("invalid status value", map[string]any{
			"status":  raw,
			"allowed": domain.TicketStatuses,
		})
	}
	return status, nil
}

// applyAssignment records the assignee and moves the ticket to in_progress,
// whatever its current status. Assigning always means work has started.
func applyAssignment(ticket *domain.Ticket, adminID string) {
	ticket.AssignedAdmin = &adminID
	ticket.Status = domain.TicketStatusInProgress
}
