package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
)

// Notification is what a channel receives for a ticket event.
type Notification struct {
	Channel   string
	Recipient string
	EventType events.EventType
	TicketID  string
	Summary   string
}

// NotificationSender delivers a notification over one channel.
type NotificationSender interface {
	Send(ctx context.Context, n Notification) error
}

// NotificationService forwards ticket events to the notification channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     NotificationSender
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil sender logs deliveries.
func NewNotificationService(dispatcher events.Dispatcher, sender NotificationSender, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = &logSender{logger: logger}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to ticket events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleTicketMessageAdded)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketsPurged, n.handleTicketsPurged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketCreatedPayload)
	summary := "ticket opened: " + payload.Title
	if err := n.email(ctx, event, payload.CreatorID, summary); err != nil {
		return err
	}
	return n.webhook(ctx, event, summary)
}

// Replies from staff go to the creator by email; replies from the creator
// only reach the webhook.
func (n *NotificationService) handleTicketMessageAdded(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketMessageAddedPayload)
	if payload.SenderID != "" && payload.SenderID != payload.CreatorID {
		if err := n.email(ctx, event, payload.CreatorID, "new reply: "+payload.BodyPreview); err != nil {
			return err
		}
	}
	return n.webhook(ctx, event, "new message")
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketAssignedPayload)
	return n.webhook(ctx, event, "assigned to "+payload.AdminID)
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.TicketStatusChangedPayload)
	summary := "status " + string(payload.OldStatus) + " -> " + string(payload.NewStatus)
	if err := n.email(ctx, event, payload.CreatorID, summary); err != nil {
		return err
	}
	return n.webhook(ctx, event, summary)
}

func (n *NotificationService) handleTicketsPurged(ctx context.Context, event events.Event) error {
	n.logger.Info("tickets purged", zap.Any("payload", event.Payload))
	return n.webhook(ctx, event, "tickets purged")
}

func (n *NotificationService) email(ctx context.Context, event events.Event, recipient, summary string) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || recipient == "" {
		return nil
	}
	return n.sender.Send(ctx, Notification{
		Channel:   "email",
		Recipient: recipient,
		EventType: event.Type,
		TicketID:  event.TicketID,
		Summary:   summary,
	})
}

func (n *NotificationService) webhook(ctx context.Context, event events.Event, summary string) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	return n.sender.Send(ctx, Notification{
		Channel:   "webhook",
		Recipient: n.cfg.WebhookURL,
		EventType: event.Type,
		TicketID:  event.TicketID,
		Summary:   summary,
	})
}

// logSender stands in for the real email and webhook transports.
type logSender struct {
	logger *zap.Logger
}

func (s *logSender) Send(_ context.Context, n Notification) error {
	s.logger.Debug("notification sent",
		zap.String("channel", n.Channel),
		zap.String("recipient", n.Recipient),
		zap.String("event_type", string(n.EventType)),
		zap.String("ticket_id", n.TicketID),
		zap.String("summary", n.Summary))
	return nil
}
