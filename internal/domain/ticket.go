package domain

import (
	"fmt"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen        TicketStatus = "open"
	TicketStatusClosed      TicketStatus = "closed"
	TicketStatusUserBlocked TicketStatus = "user_blocked"
)

// CloseReason explains why a ticket left the open state.
type CloseReason string

const (
	CloseReasonSupportClosed CloseReason = "support_closed"
	CloseReasonUserBlocked   CloseReason = "user_blocked"
)

// Status maps the reason onto the terminal ticket status.
func (r CloseReason) Status() TicketStatus {
	if r == CloseReasonUserBlocked {
		return TicketStatusUserBlocked
	}
	return TicketStatusClosed
}

// Valid reports whether r is a known close reason.
func (r CloseReason) Valid() bool {
	return r == CloseReasonSupportClosed || r == CloseReasonUserBlocked
}

const (
	// MaxTicketNumber is the largest number representable in the 12 digit display format.
	MaxTicketNumber int64 = 999_999_999_999
	// TicketNumberWidth is the zero-padded width of a displayed ticket number.
	TicketNumberWidth = 12
)

// Ticket is the aggregate for a single support case.
type Ticket struct {
	ID        int64
	Number    int64
	UserID    int64
	Subject   string
	Status    TicketStatus
	ThreadID  *int64
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// IsOpen reports whether the ticket still accepts relayed messages.
func (t *Ticket) IsOpen() bool {
	return t != nil && t.Status == TicketStatusOpen
}

// HasThread reports whether a transport thread has been bound.
func (t *Ticket) HasThread() bool {
	return t != nil && t.ThreadID != nil && *t.ThreadID != 0
}

// DisplayNumber returns the zero-padded number shown to humans.
func (t *Ticket) DisplayNumber() string {
	return FormatTicketNumber(t.Number)
}

// FormatTicketNumber renders n as a fixed width decimal, e.g. 000000000001.
func FormatTicketNumber(n int64) string {
	return fmt.Sprintf("%0*d", TicketNumberWidth, n)
}

// NextTicketNumber returns the number following the current maximum.
// Numbers wrap to 1 past MaxTicketNumber; reuse after a wrap is not checked here.
func NextTicketNumber(currentMax int64) int64 {
	next := currentMax + 1
	if next > MaxTicketNumber || next < 1 {
		return 1
	}
	return next
}
