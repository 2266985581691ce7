package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload. Sent as multipart form fields when files are
// attached, JSON otherwise.
type CreateTicketRequest struct {
	Title      string `json:"title" form:"title"`
	PurchaseID string `json:"purchase_id" form:"purchase_id"`
	Priority   string `json:"priority" form:"priority"`
	Message    string `json:"message" form:"message"`
}

// AddMessageRequest payload.
type AddMessageRequest struct {
	Content string `json:"content" form:"content"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AdminID string `json:"admin_id"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// TicketResponse is a ticket with expanded references.
type TicketResponse struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	PurchaseID      string               `json:"purchase_id"`
	Purchase        *domain.OrderSummary `json:"purchase"`
	CreatorID       string               `json:"creator_id"`
	Creator         *domain.UserSummary  `json:"creator"`
	AssignedAdminID *string              `json:"assigned_admin_id"`
	AssignedAdmin   *domain.UserSummary  `json:"assigned_admin"`
	Status          domain.TicketStatus  `json:"status"`
	Priority        string               `json:"priority"`
	Messages        []MessageResponse    `json:"messages"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// MessageResponse represents one thread message.
type MessageResponse struct {
	SenderID    string               `json:"sender_id"`
	Sender      *domain.UserSummary  `json:"sender"`
	Content     string               `json:"content"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	URL         string `json:"url"`
	ExternalID  string `json:"external_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// AssignmentResponse is the unexpanded ticket returned by assignment.
type AssignmentResponse struct {
	ID            string              `json:"id"`
	AssignedAdmin *string             `json:"assigned_admin"`
	Status        domain.TicketStatus `json:"status"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// PurgeResponse reports how many tickets an account deletion removed.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}
