package handlers_test

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

type mockTicketService struct {
	createFn       func(ctx context.Context, p domain.Principal, input service.CreateTicketInput) (*service.TicketView, error)
	addMessageFn   func(ctx context.Context, p domain.Principal, ticketID, content string, files []service.RawAttachment) (*service.TicketView, error)
	assignFn       func(ctx context.Context, p domain.Principal, ticketID, adminID string) (*domain.Ticket, error)
	getFn          func(ctx context.Context, p domain.Principal, ticketID string) (*service.TicketView, error)
	listFn         func(ctx context.Context, p domain.Principal, query service.TicketQuery) ([]service.TicketView, error)
	listMineFn     func(ctx context.Context, p domain.Principal) ([]service.TicketView, error)
	updateStatusFn func(ctx context.Context, p domain.Principal, ticketID, status string) (*service.TicketView, error)
}

func (m *mockTicketService) CreateTicket(ctx context.Context, p domain.Principal, input service.CreateTicketInput) (*service.TicketView, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p, input)
	}
	return &service.TicketView{ID: "t-1", Status: domain.TicketStatusOpen}, nil
}

func (m *mockTicketService) AddMessage(ctx context.Context, p domain.Principal, ticketID, content string, files []service.RawAttachment) (*service.TicketView, error) {
	if m.addMessageFn != nil {
		return m.addMessageFn(ctx, p, ticketID, content, files)
	}
	return &service.TicketView{ID: ticketID}, nil
}

func (m *mockTicketService) AssignAdmin(ctx context.Context, p domain.Principal, ticketID, adminID string) (*domain.Ticket, error) {
	if m.assignFn != nil {
		return m.assignFn(ctx, p, ticketID, adminID)
	}
	return &domain.Ticket{ID: ticketID, AssignedAdmin: &adminID, Status: domain.TicketStatusInProgress}, nil
}

func (m *mockTicketService) GetTicketThread(ctx context.Context, p domain.Principal, ticketID string) (*service.TicketView, error) {
	if m.getFn != nil {
		return m.getFn(ctx, p, ticketID)
	}
	return &service.TicketView{ID: ticketID}, nil
}

func (m *mockTicketService) ListTickets(ctx context.Context, p domain.Principal, query service.TicketQuery) ([]service.TicketView, error) {
	if m.listFn != nil {
		return m.listFn(ctx, p, query)
	}
	return []service.TicketView{}, nil
}

func (m *mockTicketService) ListMyTickets(ctx context.Context, p domain.Principal) ([]service.TicketView, error) {
	if m.listMineFn != nil {
		return m.listMineFn(ctx, p)
	}
	return []service.TicketView{}, nil
}

func (m *mockTicketService) UpdateStatus(ctx context.Context, p domain.Principal, ticketID, status string) (*service.TicketView, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, p, ticketID, status)
	}
	return &service.TicketView{ID: ticketID, Status: domain.TicketStatus(status)}, nil
}

type mockPurger struct {
	deleteFn func(ctx context.Context, userID string) (int64, error)
}

func (m *mockPurger) DeleteAllByCreator(ctx context.Context, userID string) (int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID)
	}
	return 0, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.err
}
