// Package relay forwards free-form messages between users and the support threads of
// their open tickets.
package relay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/events"
	"github.com/kombat1337-ui/Support-bot/internal/i18n"
	"github.com/kombat1337-ui/Support-bot/internal/observability"
	"github.com/kombat1337-ui/Support-bot/internal/repository"
	"github.com/kombat1337-ui/Support-bot/internal/service"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
	"github.com/kombat1337-ui/Support-bot/pkg/util/keyedlock"
)

const (
	DirectionUserToSupport = "user_to_support"
	DirectionSupportToUser = "support_to_user"

	userLabel    = "<b>User:</b> "
	supportLabel = "<b>Support:</b> "

	blockedLogText = "User blocked the bot. Ticket closed automatically."
)

// Tickets is the part of the ticket registry the router needs.
type Tickets interface {
	FindOpenTicket(ctx context.Context, userID int64) (*domain.Ticket, error)
	FindByThread(ctx context.Context, threadID int64, openOnly bool) (*domain.Ticket, error)
	CloseTicket(ctx context.Context, ticketID int64, reason domain.CloseReason) (service.CloseResult, error)
}

// ThreadOpener retries thread creation for tickets left unbound at submission.
type ThreadOpener interface {
	EnsureThread(ctx context.Context, ticket *domain.Ticket, owner transport.Sender) (*domain.Ticket, error)
}

// SessionChecker reports whether a user is in the middle of the intake wizard.
type SessionChecker interface {
	Active(ctx context.Context, userID int64) (bool, error)
}

// Outcome describes what the router did with a message.
type Outcome int

const (
	// Ignored means the message was not relay traffic and nothing was written.
	Ignored Outcome = iota
	// Forwarded means the message was delivered and logged.
	Forwarded
	// Blocked means the owner was unreachable and the ticket was closed as user_blocked.
	Blocked
)

func (o Outcome) String() string {
	switch o {
	case Forwarded:
		return "forwarded"
	case Blocked:
		return "blocked"
	}
	return "ignored"
}

// Router relays messages in both directions.
type Router struct {
	tickets         Tickets
	threads         ThreadOpener
	sessions        SessionChecker
	logs            repository.LogRepository
	transport       transport.Transport
	dispatcher      events.Dispatcher
	locks           *keyedlock.Locker[int64]
	supportChatID   int64
	supportLanguage string
	metrics         *observability.Metrics
	logger          *zap.Logger
	now             func() time.Time
}

// Dependencies bundles collaborators for the router.
type Dependencies struct {
	Tickets         Tickets
	Threads         ThreadOpener
	Sessions        SessionChecker
	LogRepo         repository.LogRepository
	Transport       transport.Transport
	Dispatcher      events.Dispatcher
	TicketLocks     *keyedlock.Locker[int64]
	SupportChatID   int64
	SupportLanguage string
	Metrics         *observability.Metrics
	Logger          *zap.Logger
}

// NewRouter constructs the router.
func NewRouter(deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locks := deps.TicketLocks
	if locks == nil {
		locks = keyedlock.New[int64]()
	}
	lang := deps.SupportLanguage
	if lang == "" {
		lang = i18n.Russian
	}
	return &Router{
		tickets:         deps.Tickets,
		threads:         deps.Threads,
		sessions:        deps.Sessions,
		logs:            deps.LogRepo,
		transport:       deps.Transport,
		dispatcher:      deps.Dispatcher,
		locks:           locks,
		supportChatID:   deps.SupportChatID,
		supportLanguage: lang,
		metrics:         deps.Metrics,
		logger:          logger,
		now:             time.Now,
	}
}

// UserToSupport forwards a private message from a ticket owner into the ticket's thread.
func (r *Router) UserToSupport(ctx context.Context, msg transport.Message) (Outcome, error) {
	if msg.IsCommand() || msg.From.IsBot {
		return Ignored, nil
	}
	if busy, err := r.inWizard(ctx, msg.From.ID); err != nil || busy {
		return Ignored, err
	}
	content, kind, ok := render(userLabel, msg)
	if !ok {
		return Ignored, nil
	}

	ticket, err := r.tickets.FindOpenTicket(ctx, msg.From.ID)
	if err != nil {
		return Ignored, err
	}
	if ticket == nil {
		return Ignored, nil
	}

	unlock := r.locks.Lock(ticket.ID)
	defer unlock()

	// state may have moved while waiting for the lock
	if ticket, err = r.tickets.FindOpenTicket(ctx, msg.From.ID); err != nil || ticket == nil {
		return Ignored, err
	}
	if !ticket.HasThread() {
		if ticket, err = r.threads.EnsureThread(ctx, ticket, msg.From); err != nil {
			return Ignored, err
		}
	}

	to := transport.Recipient{ChatID: r.supportChatID, ThreadID: *ticket.ThreadID}
	delivery, err := r.transport.Send(ctx, to, content)
	if err == nil && delivery.Status == transport.Unreachable {
		err = errors.New("support group refused the message")
	}
	if err != nil {
		r.metrics.RecordTransportFailure("relay_"+DirectionUserToSupport, "error")
		r.logger.Warn("relay to support thread failed",
			zap.Int64("ticket_id", ticket.ID), zap.String("kind", string(kind)), zap.Error(err))
		return Ignored, apperrors.NewUpstreamError("relay to support", err)
	}

	if err := r.record(ctx, ticket, domain.RoleUser, msg, kind, DirectionUserToSupport); err != nil {
		return Forwarded, err
	}
	return Forwarded, nil
}

// SupportToUser forwards a support message posted in a ticket thread to the ticket owner.
// An unreachable owner closes the ticket as user_blocked.
func (r *Router) SupportToUser(ctx context.Context, msg transport.Message) (Outcome, error) {
	if !msg.InThread() || msg.ChatID != r.supportChatID || msg.IsCommand() || msg.From.IsBot {
		return Ignored, nil
	}
	if busy, err := r.inWizard(ctx, msg.From.ID); err != nil || busy {
		return Ignored, err
	}
	content, kind, ok := render(supportLabel, msg)
	if !ok {
		return Ignored, nil
	}

	ticket, err := r.tickets.FindByThread(ctx, msg.ThreadID, true)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return Ignored, nil
	}
	if err != nil {
		return Ignored, err
	}

	unlock := r.locks.Lock(ticket.ID)
	defer unlock()

	if ticket, err = r.tickets.FindByThread(ctx, msg.ThreadID, true); err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return Ignored, nil
		}
		return Ignored, err
	}

	delivery, err := r.transport.Send(ctx, transport.Recipient{ChatID: ticket.UserID}, content)
	if err != nil {
		r.metrics.RecordTransportFailure("relay_"+DirectionSupportToUser, "error")
		r.logger.Warn("relay to user failed",
			zap.Int64("ticket_id", ticket.ID), zap.String("kind", string(kind)), zap.Error(err))
		return Ignored, apperrors.NewUpstreamError("relay to user", err)
	}
	if delivery.Status == transport.Unreachable {
		r.metrics.RecordTransportFailure("relay_"+DirectionSupportToUser, delivery.Status.String())
		return Blocked, r.closeBlocked(ctx, ticket, msg)
	}

	if err := r.record(ctx, ticket, domain.RoleSupport, msg, kind, DirectionSupportToUser); err != nil {
		return Forwarded, err
	}
	return Forwarded, nil
}

// closeBlocked runs with the ticket lock held.
func (r *Router) closeBlocked(ctx context.Context, ticket *domain.Ticket, msg transport.Message) error {
	logger := observability.ForTicket(r.logger, ticket)

	result, err := r.tickets.CloseTicket(ctx, ticket.ID, domain.CloseReasonUserBlocked)
	if err != nil {
		return err
	}
	if result.AlreadyClosed {
		logger.Info("blocked owner on a ticket closed concurrently")
		return nil
	}

	if err := r.logs.Append(ctx, &domain.LogEntry{
		TicketID:   ticket.ID,
		Role:       domain.RoleSystem,
		SenderName: "Bot",
		Text:       blockedLogText,
		MessageRef: int64(msg.ID),
	}); err != nil {
		logger.Error("append block log entry failed", zap.Error(err))
		return err
	}

	notice := transport.Text(i18n.T(r.supportLanguage, i18n.SupportUserBlocked))
	if _, err := r.transport.Send(ctx, transport.Recipient{ChatID: r.supportChatID, ThreadID: msg.ThreadID}, notice); err != nil {
		r.metrics.RecordTransportFailure("send_block_notice", "error")
		logger.Warn("post block notice failed", zap.Error(err))
	}
	logger.Info("ticket closed: owner blocked the bot")
	return nil
}

func (r *Router) record(ctx context.Context, ticket *domain.Ticket, role domain.Role, msg transport.Message, kind domain.MediaKind, direction string) error {
	entry := &domain.LogEntry{
		TicketID:   ticket.ID,
		Role:       role,
		SenderID:   msg.From.ID,
		SenderName: msg.From.FullName(),
		Text:       logText(msg, kind),
		MessageRef: int64(msg.ID),
	}
	if kind.IsAttachment() {
		entry.MediaRef = msg.Media.FileRef
		entry.MediaKind = kind
	}
	if err := r.logs.Append(ctx, entry); err != nil {
		r.logger.Error("append relay log entry failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return err
	}

	if r.dispatcher != nil {
		event := events.Event{
			Type:      events.EventMessageRelayed,
			TicketID:  ticket.ID,
			Actor:     events.Actor{Role: role, ID: msg.From.ID, Name: msg.From.FullName()},
			Timestamp: r.now(),
			Payload:   events.MessageRelayedPayload{Direction: direction, Kind: kind, LogID: entry.ID},
		}
		if err := r.dispatcher.Publish(ctx, event); err != nil {
			r.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
	return nil
}

func (r *Router) inWizard(ctx context.Context, userID int64) (bool, error) {
	if r.sessions == nil {
		return false, nil
	}
	return r.sessions.Active(ctx, userID)
}
