package service

import (
	"context"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// AddMessage appends a message to the ticket thread. Attachments are
// uploaded first; if any upload fails the ticket is left untouched.
// Concurrent appends to one ticket are not serialized: the last whole
// ticket write wins.
func (s *TicketService) AddMessage(ctx context.Context, p domain.Principal, ticketID, content string, files []RawAttachment) (*TicketView, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	ticket, err := s.loadVisible(ctx, p, ticketID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" && len(files) == 0 {
		return nil, apperrors.NewValidationError("content or attachments required", nil)
	}

	attachments, err := s.uploader.UploadAll(ctx, files)
	if err != nil {
		return nil, err
	}

	ticket.AppendMessage(domain.Message{
		SenderID:    p.UserID,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   s.timestamp(),
	})
	if err := s.saveTicket(ctx, ticket); err != nil {
		s.logOrphans(ticket.ID, attachments, err)
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    events.ActorFromPrincipal(p),
		Payload: events.TicketMessageAddedPayload{
			CreatorID:       ticket.CreatorID,
			SenderID:        p.UserID,
			MessageIndex:    len(ticket.Messages) - 1,
			AttachmentCount: len(attachments),
			BodyPreview:     stringPreview(content, 120),
		},
	})
	return s.projector.Expand(ctx, ticket)
}
