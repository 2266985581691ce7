package dto

import (
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

// FromTicketView maps a projected ticket to its response shape.
func FromTicketView(view *service.TicketView) TicketResponse {
	messages := make([]MessageResponse, 0, len(view.Messages))
	for _, msg := range view.Messages {
		messages = append(messages, MessageResponse{
			SenderID:    msg.SenderID,
			Sender:      msg.Sender,
			Content:     msg.Content,
			Attachments: attachmentResponses(msg.Attachments),
			CreatedAt:   msg.CreatedAt,
		})
	}
	return TicketResponse{
		ID:              view.ID,
		Title:           view.Title,
		PurchaseID:      view.PurchaseID,
		Purchase:        view.Purchase,
		CreatorID:       view.CreatorID,
		Creator:         view.Creator,
		AssignedAdminID: view.AssignedAdminID,
		AssignedAdmin:   view.AssignedAdmin,
		Status:          view.Status,
		Priority:        view.Priority,
		Messages:        messages,
		CreatedAt:       view.CreatedAt,
		UpdatedAt:       view.UpdatedAt,
	}
}

// FromTicketViews maps a listing.
func FromTicketViews(views []service.TicketView) []TicketResponse {
	out := make([]TicketResponse, 0, len(views))
	for i := range views {
		out = append(out, FromTicketView(&views[i]))
	}
	return out
}

// FromAssignedTicket maps the result of an assignment.
func FromAssignedTicket(ticket *domain.Ticket) AssignmentResponse {
	return AssignmentResponse{
		ID:            ticket.ID,
		AssignedAdmin: ticket.AssignedAdmin,
		Status:        ticket.Status,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

func attachmentResponses(attachments []domain.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(attachments))
	for _, att := range attachments {
		out = append(out, AttachmentResponse{
			URL:         att.URL,
			ExternalID:  att.ExternalID,
			Filename:    att.Filename,
			ContentType: att.ContentType,
			SizeBytes:   att.SizeBytes,
		})
	}
	return out
}
