package dto

import (
	"time"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// StepSummary is one intake answer in API responses.
type StepSummary struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	MediaKind string `json:"media_kind,omitempty"`
}

// TicketSummary is the read-only view of a ticket.
type TicketSummary struct {
	Number    string        `json:"number"`
	UserID    int64         `json:"user_id"`
	Subject   string        `json:"subject"`
	Status    string        `json:"status"`
	ThreadID  *int64        `json:"thread_id,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
	Steps     []StepSummary `json:"steps"`
}

// NewTicketSummary maps a ticket and its intake answers onto the response shape.
func NewTicketSummary(ticket *domain.Ticket, steps []domain.StepAnswer) TicketSummary {
	summary := TicketSummary{
		Number:    ticket.DisplayNumber(),
		UserID:    ticket.UserID,
		Subject:   ticket.Subject,
		Status:    string(ticket.Status),
		ThreadID:  ticket.ThreadID,
		CreatedAt: ticket.CreatedAt,
		ClosedAt:  ticket.ClosedAt,
		Steps:     make([]StepSummary, 0, len(steps)),
	}
	for _, step := range steps {
		summary.Steps = append(summary.Steps, StepSummary{
			Index:     step.Index,
			Text:      step.Text,
			MediaKind: string(step.MediaKind),
		})
	}
	return summary
}
