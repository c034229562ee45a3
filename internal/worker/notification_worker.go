package worker

import (
	"github.com/spec-kit/legal-service/internal/events"
	"github.com/spec-kit/legal-service/internal/service"
)

// StartNotificationWorker registers the event subscribers that fan request
// events out to notifications and, when configured, Kafka.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, kafka *events.KafkaPublisher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if kafka != nil && dispatcher != nil {
		kafka.Register(dispatcher)
	}
}
