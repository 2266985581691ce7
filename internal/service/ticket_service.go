package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserDirectory
	uploader   AttachmentBatchUploader
	projector  *Projector
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	UserDirectory  repository.UserDirectory
	OrderDirectory repository.OrderDirectory
	Uploader       AttachmentBatchUploader
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	// Clock stamps message creation times. Defaults to time.Now.
	Clock func() time.Time
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Title       string
	PurchaseID  string
	Priority    string
	Message     string
	Attachments []RawAttachment
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserDirectory,
		uploader:   deps.Uploader,
		projector:  NewProjector(deps.UserDirectory, deps.OrderDirectory),
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// CreateTicket opens a ticket with its first message. The ticket always
// starts open. Attachments are uploaded before anything is stored.
func (s *TicketService) CreateTicket(ctx context.Context, p domain.Principal, input CreateTicketInput) (*TicketView, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.PurchaseID = strings.TrimSpace(input.PurchaseID)
	input.Priority = normalizePriority(input.Priority)
	input.Message = strings.TrimSpace(input.Message)

	missing := []string{}
	if input.Title == "" {
		missing = append(missing, "title")
	}
	if input.PurchaseID == "" {
		missing = append(missing, "purchase_id")
	}
	if input.Priority == "" {
		missing = append(missing, "priority")
	}
	if input.Message == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"fields": missing})
	}

	attachments, err := s.uploader.UploadAll(ctx, input.Attachments)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:         uuid.NewString(),
		Title:      input.Title,
		PurchaseID: input.PurchaseID,
		CreatorID:  p.UserID,
		Status:     domain.TicketStatusOpen,
		Priority:   input.Priority,
		Messages: []domain.Message{{
			SenderID:    p.UserID,
			Content:     input.Message,
			Attachments: attachments,
			CreatedAt:   s.timestamp(),
		}},
	}
	if err := s.tickets.Insert(ctx, ticket); err != nil {
		s.logOrphans(ticket.ID, attachments, err)
		return nil, apperrors.NewPersistenceFailure(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFromPrincipal(p),
		Payload: events.TicketCreatedPayload{
			CreatorID:       ticket.CreatorID,
			PurchaseID:      ticket.PurchaseID,
			Priority:        ticket.Priority,
			Title:           ticket.Title,
			AttachmentCount: len(attachments),
		},
	})
	return s.projector.Expand(ctx, ticket)
}

// GetTicketThread returns the expanded ticket with its whole thread.
func (s *TicketService) GetTicketThread(ctx context.Context, p domain.Principal, ticketID string) (*TicketView, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	ticket, err := s.loadVisible(ctx, p, ticketID)
	if err != nil {
		return nil, err
	}
	return s.projector.Expand(ctx, ticket)
}

// ListTickets returns tickets visible to the principal, newest first.
func (s *TicketService) ListTickets(ctx context.Context, p domain.Principal, query TicketQuery) ([]TicketView, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	filter, err := scopeFilter(p, query)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// ListMyTickets returns the tickets the principal created, newest first.
func (s *TicketService) ListMyTickets(ctx context.Context, p domain.Principal) ([]TicketView, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	creator := p.UserID
	return s.list(ctx, repository.TicketFilter{CreatorID: &creator})
}

// DeleteAllByCreator removes every ticket a user created. It is called by
// the identity provider when the account is deleted.
func (s *TicketService) DeleteAllByCreator(ctx context.Context, userID string) (int64, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, apperrors.NewValidationError("user id required", nil)
	}
	deleted, err := s.tickets.DeleteByCreator(ctx, userID)
	if err != nil {
		return 0, apperrors.NewPersistenceFailure(err)
	}
	s.logger.Info("tickets purged for user", zap.String("user_id", userID), zap.Int64("deleted", deleted))
	s.publishEvent(ctx, events.Event{
		Type:  events.EventTicketsPurged,
		Actor: events.Actor{UserID: userID},
		Payload: events.TicketsPurgedPayload{
			CreatorID: userID,
			Deleted:   deleted,
		},
	})
	return deleted, nil
}

func (s *TicketService) list(ctx context.Context, filter repository.TicketFilter) ([]TicketView, error) {
	tickets, err := s.tickets.FindByFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return s.projector.ExpandMany(ctx, tickets)
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return ticket, nil
}

// loadVisible hides tickets a non-admin did not create behind NOT_FOUND.
func (s *TicketService) loadVisible(ctx context.Context, p domain.Principal, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canView(p, ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func (s *TicketService) saveTicket(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.tickets.Save(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
		}
		return apperrors.NewPersistenceFailure(err)
	}
	return nil
}

func (s *TicketService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// logOrphans records blobs left behind when the ticket write fails.
func (s *TicketService) logOrphans(ticketID string, attachments []domain.Attachment, cause error) {
	if len(attachments) == 0 {
		return
	}
	keys := make([]string, 0, len(attachments))
	for _, att := range attachments {
		keys = append(keys, att.ExternalID)
	}
	s.logger.Warn("attachments orphaned by failed ticket write",
		zap.String("ticket_id", ticketID),
		zap.Strings("external_ids", keys),
		zap.Error(cause))
}

func requirePrincipal(p domain.Principal) error {
	if strings.TrimSpace(p.UserID) == "" {
		return apperrors.NewUnauthorized("principal required")
	}
	return nil
}

func requireAdmin(p domain.Principal) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
