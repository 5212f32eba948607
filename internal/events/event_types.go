package events

import (
	"time"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventTicketThreadBound EventType = "ticket_thread_bound"
	EventTicketClosed      EventType = "ticket_closed"
	EventMessageRelayed    EventType = "message_relayed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role domain.Role `json:"role"`
	ID   int64       `json:"id,omitempty"`
	Name string      `json:"name,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number  int64  `json:"number"`
	UserID  int64  `json:"user_id"`
	Subject string `json:"subject"`
}

// TicketThreadBoundPayload payload.
type TicketThreadBoundPayload struct {
	ThreadID int64 `json:"thread_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Number int64              `json:"number"`
	Reason domain.CloseReason `json:"reason"`
}

// MessageRelayedPayload payload.
type MessageRelayedPayload struct {
	Direction string           `json:"direction"`
	Kind      domain.MediaKind `json:"kind"`
	LogID     int64            `json:"log_id"`
}
