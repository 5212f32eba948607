// Package bot routes inbound chat updates to the intake wizard, the relay and the
// support commands.
package bot

import (
	"context"
	"runtime/debug"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/i18n"
	"github.com/kombat1337-ui/Support-bot/internal/relay"
	"github.com/kombat1337-ui/Support-bot/internal/repository"
	"github.com/kombat1337-ui/Support-bot/internal/service"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
	"github.com/kombat1337-ui/Support-bot/pkg/util/keyedlock"
)

// conversation identifies where an update belongs. Private chats have ThreadID 0, and
// each support thread is its own conversation.
type conversation struct {
	ChatID   int64
	ThreadID int64
}

func conversationOf(update transport.Update) (conversation, bool) {
	switch {
	case update.Message != nil:
		return conversation{ChatID: update.Message.ChatID, ThreadID: update.Message.ThreadID}, true
	case update.Callback != nil:
		return conversation{ChatID: update.Callback.ChatID}, true
	}
	return conversation{}, false
}

// Handler processes updates. Updates of one conversation are handled one at a time in
// the order HandleUpdate received them; different conversations run in parallel.
type Handler struct {
	intake          *service.IntakeService
	support         *service.SupportService
	assistant       *service.AssistantService
	router          *relay.Router
	users           repository.UserRepository
	transport       transport.Transport
	supportChatID   int64
	supportLanguage string
	queue           *keyedlock.Queue[conversation]
	chatLocks       *keyedlock.Locker[conversation]
	logger          *zap.Logger
}

// Dependencies bundles collaborators for the handler.
type Dependencies struct {
	Intake          *service.IntakeService
	Support         *service.SupportService
	Assistant       *service.AssistantService
	Router          *relay.Router
	UserRepo        repository.UserRepository
	Transport       transport.Transport
	SupportChatID   int64
	SupportLanguage string
	Logger          *zap.Logger
}

// NewHandler constructs the handler.
func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lang := deps.SupportLanguage
	if lang == "" {
		lang = i18n.Russian
	}
	return &Handler{
		intake:          deps.Intake,
		support:         deps.Support,
		assistant:       deps.Assistant,
		router:          deps.Router,
		users:           deps.UserRepo,
		transport:       deps.Transport,
		supportChatID:   deps.SupportChatID,
		supportLanguage: lang,
		queue:           keyedlock.NewQueue[conversation](),
		chatLocks:       keyedlock.New[conversation](),
		logger:          logger,
	}
}

// HandleUpdate queues update behind earlier updates of the same conversation and
// returns without waiting. It matches the poller's handler signature.
func (h *Handler) HandleUpdate(ctx context.Context, update transport.Update) {
	key, ok := conversationOf(update)
	if !ok {
		return
	}
	h.queue.Go(key, func() { h.Process(ctx, update) })
}

// Wait blocks until every update handed to HandleUpdate has been processed.
func (h *Handler) Wait() {
	h.queue.Wait()
}

// Process handles one update synchronously. Panics are recovered and logged.
func (h *Handler) Process(ctx context.Context, update transport.Update) {
	logger := h.logger.With(zap.Int("update_id", update.ID), zap.String("correlation_id", uuid.NewString()))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling update", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	key, ok := conversationOf(update)
	if !ok {
		return
	}
	unlock := h.chatLocks.Lock(key)
	defer unlock()

	if update.Message != nil {
		h.handleMessage(ctx, logger, *update.Message)
		return
	}
	h.handleCallback(ctx, logger, *update.Callback)
}

func (h *Handler) handleMessage(ctx context.Context, logger *zap.Logger, msg transport.Message) {
	logger = logger.With(zap.Int64("chat_id", msg.ChatID), zap.Int64("user_id", msg.From.ID))

	if msg.IsCommand() {
		h.handleCommand(ctx, logger, msg)
		return
	}

	switch {
	case msg.ChatType == transport.ChatPrivate:
		active, err := h.intake.Active(ctx, msg.From.ID)
		if err != nil {
			logger.Error("load wizard session failed", zap.Error(err))
			return
		}
		if active {
			h.wizardContent(ctx, logger, msg)
			return
		}
		outcome, err := h.router.UserToSupport(ctx, msg)
		if err != nil {
			logger.Warn("relay to support failed", zap.Error(err))
			h.reply(ctx, logger, transport.Recipient{ChatID: msg.ChatID}, h.userText(ctx, msg.From.ID, i18n.DeliveryFailed))
			return
		}
		logger.Debug("user message handled", zap.Stringer("outcome", outcome))

	case msg.ChatID == h.supportChatID && msg.InThread():
		outcome, err := h.router.SupportToUser(ctx, msg)
		if err != nil {
			logger.Warn("relay to user failed", zap.Int64("thread_id", msg.ThreadID), zap.Error(err))
			return
		}
		logger.Debug("support message handled", zap.Stringer("outcome", outcome))
	}
}

func (h *Handler) reply(ctx context.Context, logger *zap.Logger, to transport.Recipient, text string) {
	h.send(ctx, logger, to, transport.Text(text))
}

func (h *Handler) send(ctx context.Context, logger *zap.Logger, to transport.Recipient, content transport.Content) {
	delivery, err := h.transport.Send(ctx, to, content)
	switch {
	case err != nil:
		logger.Warn("send reply failed", zap.Int64("chat_id", to.ChatID), zap.Error(err))
	case delivery.Status == transport.Unreachable:
		logger.Info("reply recipient unreachable", zap.Int64("chat_id", to.ChatID))
	}
}

// userLanguage returns the language the user picked last, or the default.
func (h *Handler) userLanguage(ctx context.Context, userID int64) string {
	lang, err := h.users.Language(ctx, userID)
	if err != nil {
		h.logger.Warn("load user language failed", zap.Int64("user_id", userID), zap.Error(err))
		return i18n.Russian
	}
	return lang
}

func (h *Handler) userText(ctx context.Context, userID int64, key i18n.Key, args ...any) string {
	return i18n.T(h.userLanguage(ctx, userID), key, args...)
}

func (h *Handler) supportText(key i18n.Key, args ...any) string {
	return i18n.T(h.supportLanguage, key, args...)
}
