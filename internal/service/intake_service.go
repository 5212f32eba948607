package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/i18n"
	"github.com/kombat1337-ui/Support-bot/internal/observability"
	"github.com/kombat1337-ui/Support-bot/internal/repository"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
	"github.com/kombat1337-ui/Support-bot/internal/wizard"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

// IntakeService drives intake wizard sessions and turns submitted sessions into tickets.
type IntakeService struct {
	registry        *TicketRegistry
	sessions        wizard.Store
	users           repository.UserRepository
	transport       transport.Transport
	supportChatID   int64
	supportLanguage string
	metrics         *observability.Metrics
	logger          *zap.Logger
	now             func() time.Time
}

// IntakeDependencies bundles collaborators for the intake service.
type IntakeDependencies struct {
	Registry        *TicketRegistry
	Sessions        wizard.Store
	UserRepo        repository.UserRepository
	Transport       transport.Transport
	SupportChatID   int64
	SupportLanguage string
	Metrics         *observability.Metrics
	Logger          *zap.Logger
}

// IntakeResult describes the session after an action and, on submit, the new ticket.
type IntakeResult struct {
	Session *wizard.Session
	Ticket  *domain.Ticket
	// Restarted is set when Edit discarded the session and a fresh one was started.
	Restarted bool
	// ThreadErr is set when the ticket was created but its support thread was not.
	ThreadErr error
}

// NewIntakeService constructs the service.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lang := deps.SupportLanguage
	if lang == "" {
		lang = i18n.Russian
	}
	return &IntakeService{
		registry:        deps.Registry,
		sessions:        deps.Sessions,
		users:           deps.UserRepo,
		transport:       deps.Transport,
		supportChatID:   deps.SupportChatID,
		supportLanguage: lang,
		metrics:         deps.Metrics,
		logger:          logger,
		now:             time.Now,
	}
}

// Start opens a fresh session for userID. It refuses with a conflict carrying the
// ticket number when the user already has an open ticket.
func (s *IntakeService) Start(ctx context.Context, userID int64) (*wizard.Session, error) {
	open, err := s.registry.FindOpenTicket(ctx, userID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, apperrors.NewConflict("user already has an open ticket", map[string]any{
			"ticket_number": open.DisplayNumber(),
		})
	}
	session := wizard.NewSession(userID, s.now())
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Session returns the user's live session or a NotFound error.
func (s *IntakeService) Session(ctx context.Context, userID int64) (*wizard.Session, error) {
	session, err := s.sessions.Get(ctx, userID)
	if errors.Is(err, wizard.ErrNoSession) {
		return nil, apperrors.NewNotFound("wizard session", map[string]any{"user_id": userID})
	}
	return session, err
}

// Active reports whether the user is in the middle of the wizard.
func (s *IntakeService) Active(ctx context.Context, userID int64) (bool, error) {
	_, err := s.sessions.Get(ctx, userID)
	if errors.Is(err, wizard.ErrNoSession) {
		return false, nil
	}
	return err == nil, err
}

// Handle applies action to the user's session and performs the side effects of the
// resulting state.
func (s *IntakeService) Handle(ctx context.Context, user transport.Sender, action wizard.Action) (*IntakeResult, error) {
	session, err := s.Session(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := session.Apply(action, s.now()); err != nil {
		return nil, err
	}

	switch session.State.Kind {
	case wizard.Canceled:
		if err := s.sessions.Delete(ctx, user.ID); err != nil {
			return nil, err
		}
		return &IntakeResult{Session: session}, nil

	case wizard.Submitted:
		return s.submit(ctx, user, session)

	case wizard.ChoosingLanguage:
		if err := s.sessions.Delete(ctx, user.ID); err != nil {
			return nil, err
		}
		fresh, err := s.Start(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return &IntakeResult{Session: fresh, Restarted: true}, nil
	}

	if action.Kind == wizard.ActionChooseLanguage {
		if err := s.users.Upsert(ctx, &domain.User{
			ID:          user.ID,
			DisplayName: user.FullName(),
			Language:    session.Language,
		}); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return &IntakeResult{Session: session}, nil
}

func (s *IntakeService) submit(ctx context.Context, user transport.Sender, session *wizard.Session) (*IntakeResult, error) {
	answers := session.StepAnswers()
	ticket, err := s.registry.CreateTicket(ctx, user.ID, session.Subject, answers)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			_ = s.sessions.Delete(ctx, user.ID)
		}
		return nil, err
	}
	if err := s.sessions.Delete(ctx, user.ID); err != nil {
		s.logger.Warn("discard submitted session failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	owner := wizard.Owner{ID: user.ID, Username: user.Username}
	threadErr := s.openThread(ctx, ticket, owner, session.Language, answers)
	return &IntakeResult{Session: session, Ticket: ticket, ThreadErr: threadErr}, nil
}

// EnsureThread creates and binds the support thread of an open ticket that has none,
// which happens when thread creation failed during submission.
func (s *IntakeService) EnsureThread(ctx context.Context, ticket *domain.Ticket, owner transport.Sender) (*domain.Ticket, error) {
	if ticket.HasThread() {
		return ticket, nil
	}
	answers, err := s.registry.ListSteps(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	lang, err := s.users.Language(ctx, ticket.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.openThread(ctx, ticket, wizard.Owner{ID: owner.ID, Username: owner.Username}, lang, answers); err != nil {
		return nil, err
	}
	return ticket, nil
}

// openThread creates the ticket's thread, posts the summary and media answers and
// binds the thread. Media failures are reported in the thread and do not fail the call.
func (s *IntakeService) openThread(ctx context.Context, ticket *domain.Ticket, owner wizard.Owner, lang string, answers []domain.StepAnswer) error {
	logger := observability.ForTicket(s.logger, ticket)

	title := fmt.Sprintf("#%s | %s", ticket.DisplayNumber(), ticket.Subject)
	handle, err := s.transport.CreateThread(ctx, s.supportChatID, title)
	if err != nil {
		s.metrics.RecordTransportFailure("create_thread", "error")
		logger.Error("create support thread failed; ticket stays unbound", zap.Error(err))
		return apperrors.NewUpstreamError("create support thread", err)
	}
	thread := transport.Recipient{ChatID: handle.ChatID, ThreadID: handle.ThreadID}

	summary := wizard.RenderSummary(lang, owner, ticket.Subject, answers)
	if _, err := s.transport.Send(ctx, thread, transport.Text(summary)); err != nil {
		s.metrics.RecordTransportFailure("send_summary", "error")
		logger.Warn("post ticket summary failed", zap.Error(err))
	}

	for _, answer := range answers {
		if !answer.HasMedia() {
			continue
		}
		content := transport.Content{Media: &domain.Media{Kind: answer.MediaKind, FileRef: answer.MediaRef}}
		if answer.MediaKind.AllowsCaption() {
			content.Caption = i18n.T(lang, i18n.SupportStepCaption, answer.Index+1, wizard.StepLabel(answer.Index, lang))
		}
		delivery, err := s.transport.Send(ctx, thread, content)
		if err == nil && delivery.Status == transport.Unreachable {
			err = errors.New("support group refused the message")
		}
		if err != nil {
			s.metrics.RecordTransportFailure("send_step_media", "error")
			logger.Warn("post step media failed", zap.Int("step", answer.Index), zap.Error(err))
			warning := i18n.T(s.supportLanguage, i18n.SupportMediaFailed, answer.Index+1, err)
			if _, werr := s.transport.Send(ctx, thread, transport.Text(warning)); werr != nil {
				logger.Warn("post media warning failed", zap.Error(werr))
			}
		}
	}

	if err := s.registry.BindThread(ctx, ticket.ID, handle.ThreadID); err != nil {
		logger.Error("bind support thread failed", zap.Int64("thread_id", handle.ThreadID), zap.Error(err))
		return err
	}
	threadID := handle.ThreadID
	ticket.ThreadID = &threadID
	logger.Info("support thread bound", zap.Int64("thread_id", threadID))
	return nil
}
