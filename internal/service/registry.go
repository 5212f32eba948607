package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/events"
	"github.com/kombat1337-ui/Support-bot/internal/repository"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

// TicketRegistry owns ticket numbering and lifecycle transitions.
type TicketRegistry struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// RegistryDependencies bundles collaborators for the registry.
type RegistryDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CloseResult reports the outcome of CloseTicket.
type CloseResult struct {
	Ticket        *domain.Ticket
	AlreadyClosed bool
}

// NewTicketRegistry constructs the registry.
func NewTicketRegistry(deps RegistryDependencies) *TicketRegistry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketRegistry{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// AllocateTicketNumber returns the number the next ticket would receive. CreateTicket
// performs the same allocation inside its own transaction.
func (r *TicketRegistry) AllocateTicketNumber(ctx context.Context) (int64, error) {
	max, err := r.tickets.MaxNumber(ctx)
	if err != nil {
		return 0, err
	}
	next := domain.NextTicketNumber(max)
	if next <= max {
		r.logger.Warn("ticket number wrapped", zap.Int64("max", max), zap.Int64("next", next))
	}
	return next, nil
}

// FindOpenTicket returns the user's open ticket, or nil when there is none.
func (r *TicketRegistry) FindOpenTicket(ctx context.Context, userID int64) (*domain.Ticket, error) {
	ticket, err := r.tickets.FindOpenByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return ticket, err
}

// CreateTicket persists an open ticket with exactly domain.StepCount answers.
func (r *TicketRegistry) CreateTicket(ctx context.Context, userID int64, subject string, answers []domain.StepAnswer) (*domain.Ticket, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if len(answers) != domain.StepCount {
		return nil, apperrors.NewValidationError("ticket needs every step answer", map[string]any{
			"expected": domain.StepCount,
			"got":      len(answers),
		})
	}
	steps := make([]domain.StepAnswer, len(answers))
	for i, a := range answers {
		if a.Index != i {
			return nil, apperrors.NewValidationError("step answers out of order", map[string]any{"index": a.Index, "position": i})
		}
		steps[i] = a
	}

	ticket := &domain.Ticket{UserID: userID, Subject: subject}
	err := r.tickets.CreateWithSteps(ctx, ticket, steps)
	switch {
	case errors.Is(err, repository.ErrOpenTicketExists):
		return nil, r.openTicketConflict(ctx, userID)
	case errors.Is(err, repository.ErrNumberTaken):
		r.logger.Error("allocated ticket number already in use", zap.Int64("user_id", userID))
		return nil, apperrors.NewConflict("ticket number already in use", map[string]any{"reason": "number_taken"})
	case err != nil:
		return nil, err
	}

	r.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{Role: domain.RoleUser, ID: userID},
		Payload: events.TicketCreatedPayload{
			Number:  ticket.Number,
			UserID:  userID,
			Subject: ticket.Subject,
		},
	})
	return ticket, nil
}

func (r *TicketRegistry) openTicketConflict(ctx context.Context, userID int64) error {
	details := map[string]any{}
	if open, err := r.FindOpenTicket(ctx, userID); err == nil && open != nil {
		details["ticket_number"] = open.DisplayNumber()
	}
	return apperrors.NewConflict("user already has an open ticket", details)
}

// BindThread records the transport thread created for a ticket.
func (r *TicketRegistry) BindThread(ctx context.Context, ticketID, threadID int64) error {
	if err := r.tickets.BindThread(ctx, ticketID, threadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return err
	}
	r.publishEvent(ctx, events.Event{
		Type:     events.EventTicketThreadBound,
		TicketID: ticketID,
		Actor:    events.Actor{Role: domain.RoleSystem},
		Payload:  events.TicketThreadBoundPayload{ThreadID: threadID},
	})
	return nil
}

// CloseTicket moves an open ticket to the status implied by reason. Closing a ticket
// that is no longer open is reported through CloseResult.AlreadyClosed.
func (r *TicketRegistry) CloseTicket(ctx context.Context, ticketID int64, reason domain.CloseReason) (CloseResult, error) {
	if !reason.Valid() {
		return CloseResult{}, apperrors.NewValidationError("unknown close reason", map[string]any{"reason": reason})
	}
	changed, err := r.tickets.Close(ctx, ticketID, reason.Status(), r.now())
	if errors.Is(err, repository.ErrNotFound) {
		return CloseResult{}, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return CloseResult{}, err
	}
	ticket, err := r.GetByID(ctx, ticketID)
	if err != nil {
		return CloseResult{}, err
	}
	if !changed {
		return CloseResult{Ticket: ticket, AlreadyClosed: true}, nil
	}

	actor := events.Actor{Role: domain.RoleSupport}
	if reason == domain.CloseReasonUserBlocked {
		actor.Role = domain.RoleSystem
	}
	r.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticketID,
		Actor:    actor,
		Payload:  events.TicketClosedPayload{Number: ticket.Number, Reason: reason},
	})
	return CloseResult{Ticket: ticket}, nil
}

// GetByID fetches a ticket by internal id.
func (r *TicketRegistry) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := r.tickets.GetByID(ctx, id)
	return ticket, notFound(err, "ticket_id", id)
}

// GetByNumber fetches a ticket by its human facing number.
func (r *TicketRegistry) GetByNumber(ctx context.Context, number int64) (*domain.Ticket, error) {
	ticket, err := r.tickets.GetByNumber(ctx, number)
	return ticket, notFound(err, "ticket_number", domain.FormatTicketNumber(number))
}

// FindByThread fetches the ticket bound to threadID, optionally only if still open.
func (r *TicketRegistry) FindByThread(ctx context.Context, threadID int64, openOnly bool) (*domain.Ticket, error) {
	ticket, err := r.tickets.FindByThread(ctx, threadID, openOnly)
	return ticket, notFound(err, "thread_id", threadID)
}

// ListSteps returns a ticket's intake answers in index order.
func (r *TicketRegistry) ListSteps(ctx context.Context, ticketID int64) ([]domain.StepAnswer, error) {
	return r.tickets.ListSteps(ctx, ticketID)
}

func (r *TicketRegistry) publishEvent(ctx context.Context, event events.Event) {
	if r.dispatcher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}
	if err := r.dispatcher.Publish(ctx, event); err != nil {
		r.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func notFound(err error, key string, value any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{key: value})
	}
	return err
}
