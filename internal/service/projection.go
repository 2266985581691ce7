package service

import (
	"context"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketView is a ticket with its references expanded for display.
// References that no longer resolve are left nil.
type TicketView struct {
	ID              string
	Title           string
	PurchaseID      string
	Purchase        *domain.OrderSummary
	CreatorID       string
	Creator         *domain.UserSummary
	AssignedAdminID *string
	AssignedAdmin   *domain.UserSummary
	Status          domain.TicketStatus
	Priority        string
	Messages        []MessageView
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MessageView is a thread message with its sender expanded.
type MessageView struct {
	SenderID    string
	Sender      *domain.UserSummary
	Content     string
	Attachments []domain.Attachment
	CreatedAt   time.Time
}

// Projector expands stored ids into user and order summaries.
type Projector struct {
	users  repository.UserDirectory
	orders repository.OrderDirectory
}

// NewProjector constructs a projector over the two directories.
func NewProjector(users repository.UserDirectory, orders repository.OrderDirectory) *Projector {
	return &Projector{users: users, orders: orders}
}

// Expand projects a single ticket.
func (p *Projector) Expand(ctx context.Context, ticket *domain.Ticket) (*TicketView, error) {
	views, err := p.ExpandMany(ctx, []domain.Ticket{*ticket})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ExpandMany projects tickets with one directory round trip per reference kind.
func (p *Projector) ExpandMany(ctx context.Context, tickets []domain.Ticket) ([]TicketView, error) {
	views := make([]TicketView, 0, len(tickets))
	if len(tickets) == 0 {
		return views, nil
	}

	var userIDs, orderIDs []string
	for i := range tickets {
		t := &tickets[i]
		userIDs = append(userIDs, t.CreatorID)
		if t.AssignedAdmin != nil {
			userIDs = append(userIDs, *t.AssignedAdmin)
		}
		for _, msg := range t.Messages {
			userIDs = append(userIDs, msg.SenderID)
		}
		orderIDs = append(orderIDs, t.PurchaseID)
	}

	users, err := p.users.FindUsers(ctx, userIDs)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	orders, err := p.orders.FindOrders(ctx, orderIDs)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}

	for i := range tickets {
		views = append(views, project(&tickets[i], users, orders))
	}
	return views, nil
}

func project(t *domain.Ticket, users map[string]domain.UserSummary, orders map[string]domain.OrderSummary) TicketView {
	view := TicketView{
		ID:         t.ID,
		Title:      t.Title,
		PurchaseID: t.PurchaseID,
		Purchase:   lookup(orders, t.PurchaseID),
		CreatorID:  t.CreatorID,
		Creator:    lookup(users, t.CreatorID),
		Status:     t.Status,
		Priority:   t.Priority,
		Messages:   make([]MessageView, 0, len(t.Messages)),
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if t.AssignedAdmin != nil {
		admin := *t.AssignedAdmin
		view.AssignedAdminID = &admin
		view.AssignedAdmin = lookup(users, admin)
	}
	for _, msg := range t.Messages {
		attachments := append([]domain.Attachment{}, msg.Attachments...)
		view.Messages = append(view.Messages, MessageView{
			SenderID:    msg.SenderID,
			Sender:      lookup(users, msg.SenderID),
			Content:     msg.Content,
			Attachments: attachments,
			CreatedAt:   msg.CreatedAt,
		})
	}
	return view
}

func lookup[T any](m map[string]T, id string) *T {
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}
