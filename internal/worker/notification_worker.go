package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/service"
)

// StartNotificationWorker subscribes the notification channel to ticket
// events. Handlers run synchronously inside Publish.
func StartNotificationWorker(dispatcher events.Dispatcher, sender service.NotificationSender, cfg config.NotificationConfig, logger *zap.Logger) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	notifications := service.NewNotificationService(dispatcher, sender, logger.Named("notifications"), cfg)
	notifications.RegisterHandlers()
	return notifications
}
