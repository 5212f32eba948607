package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/events"
	"github.com/kombat1337-ui/Support-bot/internal/observability"
)

// NotificationService turns domain events into audit log lines and metrics.
type NotificationService struct {
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketThreadBound, n.handleTicketThreadBound)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventMessageRelayed, n.handleMessageRelayed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.metrics.RecordTicketCreated()
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.TicketCreatedPayload); ok {
		fields = append(fields, zap.Int64("number", p.Number), zap.Int64("user_id", p.UserID))
	}
	n.logger.Info("TicketCreated", fields...)
	return nil
}

func (n *NotificationService) handleTicketThreadBound(ctx context.Context, event events.Event) error {
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.TicketThreadBoundPayload); ok {
		fields = append(fields, zap.Int64("thread_id", p.ThreadID))
	}
	n.logger.Info("TicketThreadBound", fields...)
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	fields := n.baseFields(event)
	if p, ok := event.Payload.(events.TicketClosedPayload); ok {
		n.metrics.RecordTicketClosed(string(p.Reason))
		fields = append(fields, zap.Int64("number", p.Number), zap.String("reason", string(p.Reason)))
	}
	n.logger.Info("TicketClosed", fields...)
	return nil
}

func (n *NotificationService) handleMessageRelayed(ctx context.Context, event events.Event) error {
	p, ok := event.Payload.(events.MessageRelayedPayload)
	if !ok {
		return nil
	}
	n.metrics.RecordRelay(p.Direction, string(p.Kind))
	n.logger.Debug("MessageRelayed", append(n.baseFields(event),
		zap.String("direction", p.Direction),
		zap.String("kind", string(p.Kind)),
		zap.Int64("log_id", p.LogID))...)
	return nil
}

func (n *NotificationService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("actor_role", string(event.Actor.Role)),
		zap.Int64("actor_id", event.Actor.ID),
	}
}
