package service

import (
	"context"
	"errors"
	"html"
	"strings"

	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/export"
	"github.com/kombat1337-ui/Support-bot/internal/i18n"
	"github.com/kombat1337-ui/Support-bot/internal/observability"
	"github.com/kombat1337-ui/Support-bot/internal/repository"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
	"github.com/kombat1337-ui/Support-bot/pkg/util/keyedlock"
)

// SupportService implements the commands support staff issue inside ticket threads.
type SupportService struct {
	registry        *TicketRegistry
	logs            repository.LogRepository
	exporter        *export.Engine
	transport       transport.Transport
	locks           *keyedlock.Locker[int64]
	supportChatID   int64
	supportLanguage string
	metrics         *observability.Metrics
	logger          *zap.Logger
}

// SupportDependencies bundles collaborators for the support service.
type SupportDependencies struct {
	Registry        *TicketRegistry
	LogRepo         repository.LogRepository
	Exporter        *export.Engine
	Transport       transport.Transport
	TicketLocks     *keyedlock.Locker[int64]
	SupportChatID   int64
	SupportLanguage string
	Metrics         *observability.Metrics
	Logger          *zap.Logger
}

// CloseOutcome describes a completed close.
type CloseOutcome struct {
	Ticket   *domain.Ticket
	Document *export.Document
}

// NewSupportService constructs the service.
func NewSupportService(deps SupportDependencies) *SupportService {
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
	return &SupportService{
		registry:        deps.Registry,
		logs:            deps.LogRepo,
		exporter:        deps.Exporter,
		transport:       deps.Transport,
		locks:           locks,
		supportChatID:   deps.SupportChatID,
		supportLanguage: lang,
		metrics:         deps.Metrics,
		logger:          logger,
	}
}

// Close closes the open ticket bound to threadID, publishes its transcript to the
// support group, notifies the owner and tears the thread down.
func (s *SupportService) Close(ctx context.Context, threadID int64, closer transport.Sender) (*CloseOutcome, error) {
	ticket, err := s.registry.FindByThread(ctx, threadID, true)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(ticket.ID)
	defer unlock()

	// Another close may have won the lock first.
	if ticket, err = s.registry.FindByThread(ctx, threadID, true); err != nil {
		return nil, err
	}

	logger := observability.ForTicket(s.logger, ticket)

	result, err := s.registry.CloseTicket(ctx, ticket.ID, domain.CloseReasonSupportClosed)
	if err != nil {
		return nil, err
	}
	if result.AlreadyClosed {
		return nil, apperrors.NewNotFound("open ticket", map[string]any{"thread_id": threadID})
	}
	ticket = result.Ticket

	if err := s.logs.Append(ctx, &domain.LogEntry{
		TicketID:   ticket.ID,
		Role:       domain.RoleSystem,
		SenderID:   closer.ID,
		SenderName: closer.FullName(),
		Text:       "Ticket closed by support user " + closer.FullName(),
	}); err != nil {
		logger.Error("append close entry failed", zap.Error(err))
	}

	general := transport.Recipient{ChatID: s.supportChatID}
	thread := general.InThread(threadID)
	number := ticket.DisplayNumber()
	announcement := i18n.T(s.supportLanguage, i18n.SupportClosedGeneral, number, html.EscapeString(closer.Handle()), closer.ID)

	doc, err := s.exporter.Generate(ctx, ticket.ID)
	if err != nil {
		logger.Error("generate transcript failed", zap.Error(err))
		s.send(ctx, general, transport.Text(announcement+"\n"+i18n.T(s.supportLanguage, i18n.SupportNoLogFile)), "send_close_notice")
	} else {
		file := &transport.File{Name: doc.Filename, Data: doc.Content}
		if _, err := s.transport.Send(ctx, general, transport.Content{File: file, Caption: announcement}); err != nil {
			s.metrics.RecordTransportFailure("send_transcript", "error")
			logger.Warn("send transcript to general chat failed", zap.Error(err))
			s.send(ctx, thread, transport.Text(i18n.T(s.supportLanguage, i18n.SupportLogFallback, err)), "send_close_warning")
			s.send(ctx, thread, transport.Content{
				File:    file,
				Caption: i18n.T(s.supportLanguage, i18n.SupportLogCaption, number),
			}, "send_transcript")
		}
	}

	s.send(ctx, thread, transport.Text(i18n.T(s.supportLanguage, i18n.SupportClosedThread, number)), "send_close_notice")

	owner := transport.Recipient{ChatID: ticket.UserID}
	delivery, err := s.transport.Send(ctx, owner, transport.Text(i18n.Bilingual(i18n.TicketClosedUser, number)))
	switch {
	case err != nil:
		s.metrics.RecordTransportFailure("notify_owner", "error")
		logger.Warn("notify ticket owner failed", zap.Int64("user_id", ticket.UserID), zap.Error(err))
	case delivery.Status == transport.Unreachable:
		logger.Info("ticket owner unreachable on close", zap.Int64("user_id", ticket.UserID))
	}

	if err := s.transport.DeleteThread(ctx, transport.ThreadHandle{ChatID: s.supportChatID, ThreadID: threadID}); err != nil {
		s.metrics.RecordTransportFailure("delete_thread", "error")
		logger.Warn("delete support thread failed", zap.Int64("thread_id", threadID), zap.Error(err))
		s.send(ctx, thread, transport.Text(i18n.T(s.supportLanguage, i18n.SupportDeleteFailed, err)), "send_delete_warning")
	}

	logger.Info("ticket closed by support", zap.Int64("closer_id", closer.ID))
	return &CloseOutcome{Ticket: ticket, Document: doc}, nil
}

// Export posts the transcript of the ticket bound to threadID, whatever its status,
// into that thread.
func (s *SupportService) Export(ctx context.Context, threadID int64) (*export.Document, error) {
	ticket, err := s.registry.FindByThread(ctx, threadID, false)
	if err != nil {
		return nil, err
	}
	doc, err := s.exporter.Generate(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	thread := transport.Recipient{ChatID: s.supportChatID, ThreadID: threadID}
	if _, err := s.transport.Send(ctx, thread, transport.Content{
		File:    &transport.File{Name: doc.Filename, Data: doc.Content},
		Caption: i18n.T(s.supportLanguage, i18n.SupportLogCaption, ticket.DisplayNumber()),
	}); err != nil {
		s.metrics.RecordTransportFailure("send_transcript", "error")
		return nil, apperrors.NewUpstreamError("send transcript", err)
	}
	return doc, nil
}

// ExportByNumber renders the transcript of the ticket with the given number.
func (s *SupportService) ExportByNumber(ctx context.Context, number int64) (*domain.Ticket, *export.Document, error) {
	ticket, err := s.registry.GetByNumber(ctx, number)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.exporter.Generate(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, doc, nil
}

// Feedback forwards free text from a user to the support group's general chat.
func (s *SupportService) Feedback(ctx context.Context, from transport.Sender, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.NewValidationError("feedback text is required", nil)
	}
	msg := i18n.T(s.supportLanguage, i18n.SupportFeedback, html.EscapeString(from.Handle()), from.ID, html.EscapeString(text))
	delivery, err := s.transport.Send(ctx, transport.Recipient{ChatID: s.supportChatID}, transport.Text(msg))
	if err == nil && delivery.Status == transport.Unreachable {
		err = errors.New("support group refused the message")
	}
	if err != nil {
		s.metrics.RecordTransportFailure("send_feedback", "error")
		return apperrors.NewUpstreamError("send feedback", err)
	}
	return nil
}

func (s *SupportService) send(ctx context.Context, to transport.Recipient, content transport.Content, op string) {
	if _, err := s.transport.Send(ctx, to, content); err != nil {
		s.metrics.RecordTransportFailure(op, "error")
		s.logger.Warn("support notice failed", zap.String("operation", op), zap.Error(err))
	}
}
