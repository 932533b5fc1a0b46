package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/diet-tracker/internal/events"
	"github.com/spec-kit/diet-tracker/internal/service"
)

// StartNotificationWorker registers notification handlers and, when
// configured, the Kafka audit sink for session events.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, publisher *events.KafkaPublisher, logger *zap.Logger) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if publisher != nil && dispatcher != nil {
		publisher.Register(dispatcher)
		logger.Info("session audit sink enabled")
	}
}
