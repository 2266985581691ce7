package service

import (
	"context"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AssignAdmin assigns the ticket to an admin. As a side effect the ticket
// status is forced to in_progress, even when it was resolved or closed.
// The stored ticket is returned without expansion.
func (s *TicketService) AssignAdmin(ctx context.Context, p domain.Principal, ticketID, adminID string) (*domain.Ticket, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return nil, apperrors.NewValidationError("admin_id required", nil)
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	found, err := s.users.FindUsers(ctx, []string{adminID})
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	if _, ok := found[adminID]; !ok {
		return nil, apperrors.NewNotFound("admin user", map[string]any{"admin_id": adminID})
	}

	previousAdmin := ticket.AssignedAdmin
	previousStatus := ticket.Status
	applyAssignment(ticket, adminID)
	if err := s.saveTicket(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    events.ActorFromPrincipal(p),
		Payload: events.TicketAssignedPayload{
			AdminID:        adminID,
			PreviousAdmin:  previousAdmin,
			PreviousStatus: previousStatus,
		},
	})
	return ticket, nil
}

// UpdateStatus overwrites the ticket status with any enum member.
func (s *TicketService) UpdateStatus(ctx context.Context, p domain.Principal, ticketID, status string) (*TicketView, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	next, err := parseRequestedStatus(status)
	if err != nil {
		return nil, err
	}

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	previous := ticket.Status
	ticket.Status = next
	if err := s.saveTicket(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.ActorFromPrincipal(p),
		Payload: events.TicketStatusChangedPayload{
			CreatorID: ticket.CreatorID,
			OldStatus: previous,
			NewStatus: next,
		},
	})
	return s.projector.Expand(ctx, ticket)
}
