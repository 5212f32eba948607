// Package export renders ticket transcripts as plain text documents.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/repository"
	"github.com/kombat1337-ui/Support-bot/internal/wizard"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	ruler      = "----------------------------------------"
)

// Document is a rendered transcript.
type Document struct {
	Filename string
	Content  []byte
}

// ContentType is the MIME type of every transcript.
const ContentType = "text/plain; charset=utf-8"

// Filename returns the transcript file name for a ticket number.
func Filename(number int64) string {
	return fmt.Sprintf("ticket_%s_log.txt", domain.FormatTicketNumber(number))
}

// Engine reads a ticket with its steps and logs and renders the transcript.
type Engine struct {
	tickets repository.TicketRepository
	logs    repository.LogRepository
}

// NewEngine constructs the engine.
func NewEngine(tickets repository.TicketRepository, logs repository.LogRepository) *Engine {
	return &Engine{tickets: tickets, logs: logs}
}

// Generate builds the transcript of ticketID. A missing ticket is a NotFound error.
func (e *Engine) Generate(ctx context.Context, ticketID int64) (*Document, error) {
	ticket, err := e.tickets.GetByID(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, err
	}
	steps, err := e.tickets.ListSteps(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	entries, err := e.logs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return Render(ticket, steps, entries), nil
}

// Render writes the transcript in one pass: header, intake steps in index order,
// then log entries in the order given.
func Render(ticket *domain.Ticket, steps []domain.StepAnswer, entries []domain.LogEntry) *Document {
	var b strings.Builder

	fmt.Fprintf(&b, "========= TICKET LOG #%s =========\n", ticket.DisplayNumber())
	fmt.Fprintf(&b, "ID: %d\n", ticket.ID)
	fmt.Fprintf(&b, "User ID: %d\n", ticket.UserID)
	fmt.Fprintf(&b, "Subject: %s\n", ticket.Subject)
	fmt.Fprintf(&b, "Status: %s\n", ticket.Status)
	fmt.Fprintf(&b, "Created At: %s\n", formatTime(ticket.CreatedAt))
	closed := "N/A"
	if ticket.ClosedAt != nil {
		closed = formatTime(*ticket.ClosedAt)
	}
	fmt.Fprintf(&b, "Closed At: %s\n", closed)
	b.WriteString(ruler + "\n")

	b.WriteString("--- INITIAL STEPS ---\n")
	for _, step := range steps {
		media := ""
		if step.HasMedia() {
			media = fmt.Sprintf(" [Media: %s]", step.MediaKind)
		}
		fmt.Fprintf(&b, "STEP %d (%s): %s%s\n", step.Index+1, wizard.StepLabel(step.Index, wizard.LanguageEnglish), step.Text, media)
	}
	b.WriteString(ruler + "\n")

	b.WriteString("--- CHAT LOG ---\n")
	for _, entry := range entries {
		file := ""
		if entry.HasMedia() {
			file = fmt.Sprintf(" [File: %s]", entry.MediaKind)
		}
		fmt.Fprintf(&b, "[%s] (%s %s): %s%s\n",
			formatTime(entry.CreatedAt),
			strings.ToUpper(string(entry.Role)),
			entry.SenderName,
			entry.Text,
			file,
		)
	}

	return &Document{
		Filename: Filename(ticket.Number),
		Content:  []byte(b.String()),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
