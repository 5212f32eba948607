package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/kombat1337-ui/Support-bot/internal/api/dto"
	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/export"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

// TicketReader looks tickets up by number.
type TicketReader interface {
	GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error)
	ListSteps(ctx context.Context, ticketID int64) ([]domain.StepAnswer, error)
}

// TranscriptExporter renders a ticket transcript by number.
type TranscriptExporter interface {
	ExportByNumber(ctx context.Context, number int64) (*domain.Ticket, *export.Document, error)
}

// TicketsHandler serves read-only ticket endpoints for operators.
type TicketsHandler struct {
	tickets  TicketReader
	exporter TranscriptExporter
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketReader, exporter TranscriptExporter) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, exporter: exporter}
}

// GetTicket GET /api/v1/tickets/:number.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	number, err := parseTicketNumber(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetByNumber(c.UserContext(), number)
	if err != nil {
		return err
	}
	steps, err := h.tickets.ListSteps(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket, steps)})
}

// Transcript GET /api/v1/tickets/:number/transcript.
func (h *TicketsHandler) Transcript(c *fiber.Ctx) error {
	number, err := parseTicketNumber(c)
	if err != nil {
		return err
	}
	_, doc, err := h.exporter.ExportByNumber(c.UserContext(), number)
	if err != nil {
		return err
	}
	c.Attachment(doc.Filename)
	c.Set(fiber.HeaderContentType, export.ContentType)
	return c.Send(doc.Content)
}

// parseTicketNumber accepts both the padded display form and a bare integer.
func parseTicketNumber(c *fiber.Ctx) (int64, error) {
	raw := c.Params("number")
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || number < 1 || number > domain.MaxTicketNumber {
		return 0, apperrors.NewValidationError("invalid ticket number", map[string]any{"number": raw})
	}
	return number, nil
}
