package worker

import (
	"github.com/kombat1337-ui/Support-bot/internal/service"
)

// StartNotificationWorker registers the event subscribers that audit ticket
// lifecycle changes and relayed messages.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
