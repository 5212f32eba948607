package service

import (
	"context"
	"html"
	"strings"

	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/ai"
	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/i18n"
	"github.com/kombat1337-ui/Support-bot/internal/observability"
	"github.com/kombat1337-ui/Support-bot/internal/repository"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

const defaultHistoryLimit = 15

// AssistantService answers /ai questions with the ticket's history as context.
type AssistantService struct {
	registry        *TicketRegistry
	logs            repository.LogRepository
	client          ai.Client
	transport       transport.Transport
	supportChatID   int64
	supportLanguage string
	historyLimit    int
	metrics         *observability.Metrics
	logger          *zap.Logger
}

// AssistantDependencies bundles collaborators for the assistant service.
type AssistantDependencies struct {
	Registry        *TicketRegistry
	LogRepo         repository.LogRepository
	Client          ai.Client
	Transport       transport.Transport
	SupportChatID   int64
	SupportLanguage string
	HistoryLimit    int
	Metrics         *observability.Metrics
	Logger          *zap.Logger
}

// AskRequest is one /ai invocation. ThreadID is zero for asks from a private chat.
type AskRequest struct {
	Asker    transport.Sender
	ThreadID int64
	Question string
}

// AskResult carries the generated answer and the ticket it was grounded on.
type AskResult struct {
	Ticket *domain.Ticket
	Answer string
}

// NewAssistantService constructs the service.
func NewAssistantService(deps AssistantDependencies) *AssistantService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := deps.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	lang := deps.SupportLanguage
	if lang == "" {
		lang = i18n.Russian
	}
	return &AssistantService{
		registry:        deps.Registry,
		logs:            deps.LogRepo,
		client:          deps.Client,
		transport:       deps.Transport,
		supportChatID:   deps.SupportChatID,
		supportLanguage: lang,
		historyLimit:    limit,
		metrics:         deps.Metrics,
		logger:          logger,
	}
}

// Ask resolves the ticket, queries the model once and records the answer in the log.
func (s *AssistantService) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apperrors.NewValidationError("question is required", nil)
	}

	ticket, err := s.resolveTicket(ctx, req)
	if err != nil {
		return nil, err
	}
	logger := observability.ForTicket(s.logger, ticket).With(zap.Int64("asker_id", req.Asker.ID))

	steps, err := s.registry.ListSteps(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	recent, err := s.logs.ListRecent(ctx, ticket.ID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	answer, err := s.client.Answer(ctx, ai.BuildPrompt(ticket, steps, recent, question))
	if err != nil {
		logger.Warn("ai completion failed", zap.Error(err))
		s.metrics.RecordTransportFailure("ai_answer", "error")
		return nil, apperrors.NewUpstreamError("ai completion", err)
	}

	if err := s.logs.Append(ctx, &domain.LogEntry{
		TicketID:   ticket.ID,
		Role:       domain.RoleSystem,
		SenderID:   req.Asker.ID,
		SenderName: "AI (via " + req.Asker.FullName() + ")",
		Text:       answer,
	}); err != nil {
		return nil, err
	}

	if req.ThreadID == 0 && ticket.HasThread() {
		notice := i18n.T(s.supportLanguage, i18n.SupportAIUsed,
			html.EscapeString(req.Asker.Handle()), req.Asker.ID,
			html.EscapeString(question), html.EscapeString(answer))
		to := transport.Recipient{ChatID: s.supportChatID, ThreadID: *ticket.ThreadID}
		if _, err := s.transport.Send(ctx, to, transport.Text(notice)); err != nil {
			s.metrics.RecordTransportFailure("send_ai_notice", "error")
			logger.Warn("post ai notice to thread failed", zap.Error(err))
		}
	}

	logger.Info("ai question answered", zap.Int("answer_len", len(answer)))
	return &AskResult{Ticket: ticket, Answer: answer}, nil
}

func (s *AssistantService) resolveTicket(ctx context.Context, req AskRequest) (*domain.Ticket, error) {
	if req.ThreadID != 0 {
		return s.registry.FindByThread(ctx, req.ThreadID, false)
	}
	ticket, err := s.registry.FindOpenTicket(ctx, req.Asker.ID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, apperrors.NewNotFound("open ticket", map[string]any{"user_id": req.Asker.ID})
	}
	return ticket, nil
}
