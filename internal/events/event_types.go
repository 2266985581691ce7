package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketsPurged       EventType = "tickets_purged"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// ActorFromPrincipal converts the authenticated caller into an event actor.
func ActorFromPrincipal(p domain.Principal) Actor {
	return Actor{UserID: p.UserID, Role: p.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CreatorID       string `json:"creator_id"`
	PurchaseID      string `json:"purchase_id"`
	Priority        string `json:"priority"`
	Title           string `json:"title"`
	AttachmentCount int    `json:"attachment_count"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	CreatorID       string `json:"creator_id"`
	SenderID        string `json:"sender_id"`
	MessageIndex    int    `json:"message_index"`
	AttachmentCount int    `json:"attachment_count"`
	BodyPreview     string `json:"body_preview"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AdminID        string              `json:"admin_id"`
	PreviousAdmin  *string             `json:"previous_admin,omitempty"`
	PreviousStatus domain.TicketStatus `json:"previous_status"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	CreatorID string              `json:"creator_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketsPurgedPayload payload.
type TicketsPurgedPayload struct {
	CreatorID string `json:"creator_id"`
	Deleted   int64  `json:"deleted"`
}
