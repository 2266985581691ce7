package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ErrTicketNotFound is returned when no ticket matches the requested id.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketFilter narrows ticket listings. Nil or empty fields do not constrain.
type TicketFilter struct {
	CreatorID     *string
	AssignedAdmin *string
	Statuses      []domain.TicketStatus
	Priorities    []string
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence. A ticket and its whole
// message thread are read and written as one document.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.Ticket) error
	FindByID(ctx context.Context, id string) (*domain.Ticket, error)
	// FindByFilter returns matching tickets newest-created first.
	FindByFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Save replaces every mutable field of the stored ticket. The creator is never rewritten.
	Save(ctx context.Context, ticket *domain.Ticket) error
	DeleteByCreator(ctx context.Context, creatorID string) (int64, error)
}
