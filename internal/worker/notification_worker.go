package worker

import (
	"github.com/spec-kit/sla-engine/internal/service"
)

// StartNotificationWorker subscribes the notification service to the
// engine's warning, breach and escalation events. Registration happens
// before the HTTP server and sweep worker start publishing, so no event
// is missed.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
