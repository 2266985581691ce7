package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every recognized status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// ParseTicketStatus returns the enum member matching s. Surrounding
// whitespace is ignored; case is not.
func ParseTicketStatus(s string) (TicketStatus, bool) {
	candidate := TicketStatus(strings.TrimSpace(s))
	if !candidate.Valid() {
		return "", false
	}
	return candidate, true
}

// Valid reports whether the status is one of the enum members.
func (s TicketStatus) Valid() bool {
	for _, status := range TicketStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests. Messages are embedded and
// stored with the ticket as a single document.
type Ticket struct {
	ID            string       `bson:"_id"`
	Title         string       `bson:"title"`
	PurchaseID    string       `bson:"purchase_id"`
	CreatorID     string       `bson:"creator_id"`
	AssignedAdmin *string      `bson:"assigned_admin,omitempty"`
	Status        TicketStatus `bson:"status"`
	Priority      string       `bson:"priority"`
	Messages      []Message    `bson:"messages"`
	CreatedAt     time.Time    `bson:"created_at"`
	UpdatedAt     time.Time    `bson:"updated_at"`
}

// Message captures one entry of a ticket thread.
type Message struct {
	SenderID    string       `bson:"sender_id"`
	Content     string       `bson:"content"`
	Attachments []Attachment `bson:"attachments"`
	CreatedAt   time.Time    `bson:"created_at"`
}

// Attachment references a blob held by the attachment store.
type Attachment struct {
	URL         string `bson:"url"`
	ExternalID  string `bson:"external_id"`
	Filename    string `bson:"filename"`
	ContentType string `bson:"content_type,omitempty"`
	SizeBytes   int64  `bson:"size_bytes,omitempty"`
}

// AppendMessage adds msg to the end of the thread.
func (t *Ticket) AppendMessage(msg Message) {
	t.Messages = append(t.Messages, msg)
}

// Clone returns a deep copy of the ticket.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	if t.AssignedAdmin != nil {
		admin := *t.AssignedAdmin
		out.AssignedAdmin = &admin
	}
	out.Messages = make([]Message, len(t.Messages))
	for i, msg := range t.Messages {
		out.Messages[i] = msg
		out.Messages[i].Attachments = append([]Attachment(nil), msg.Attachments...)
	}
	return &out
}
