package bot

import (
	"context"
	"fmt"
	"html"

	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/i18n"
	"github.com/kombat1337-ui/Support-bot/internal/service"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

const (
	CommandStart     = "start"
	CommandHelp      = "help"
	CommandNewTicket = "newticket"
	CommandClose     = "close"
	CommandExport    = "export_ticket"
	CommandAI        = "ai"
)

type commandFunc func(h *Handler, ctx context.Context, logger *zap.Logger, msg transport.Message, args string)

var commands = map[string]commandFunc{
	CommandStart:     (*Handler).cmdStart,
	CommandHelp:      (*Handler).cmdHelp,
	CommandNewTicket: (*Handler).cmdNewTicket,
	CommandClose:     (*Handler).cmdClose,
	CommandExport:    (*Handler).cmdExport,
	CommandAI:        (*Handler).cmdAI,
}

func (h *Handler) handleCommand(ctx context.Context, logger *zap.Logger, msg transport.Message) {
	name, args := msg.Command()
	cmd, ok := commands[name]
	if !ok {
		return
	}
	logger.Info("command received", zap.String("command", name))
	cmd(h, ctx, logger, msg, args)
}

func (h *Handler) cmdStart(ctx context.Context, logger *zap.Logger, msg transport.Message, _ string) {
	if msg.ChatType != transport.ChatPrivate {
		return
	}
	h.reply(ctx, logger, transport.Recipient{ChatID: msg.ChatID}, i18n.Bilingual(i18n.Welcome))
}

func (h *Handler) cmdHelp(ctx context.Context, logger *zap.Logger, msg transport.Message, args string) {
	to := transport.Recipient{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
	if args == "" {
		h.reply(ctx, logger, to, h.userText(ctx, msg.From.ID, i18n.HelpUsage))
		return
	}
	if err := h.support.Feedback(ctx, msg.From, args); err != nil {
		logger.Warn("forward feedback failed", zap.Error(err))
		h.reply(ctx, logger, to, h.userText(ctx, msg.From.ID, i18n.HelpFailed))
		return
	}
	h.reply(ctx, logger, to, h.userText(ctx, msg.From.ID, i18n.HelpSent))
}

func (h *Handler) cmdNewTicket(ctx context.Context, logger *zap.Logger, msg transport.Message, _ string) {
	if msg.ChatType != transport.ChatPrivate {
		return
	}
	to := transport.Recipient{ChatID: msg.ChatID}
	if _, err := h.intake.Start(ctx, msg.From.ID); err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			number, _ := apperrors.Detail(err, "ticket_number")
			h.reply(ctx, logger, to, h.userText(ctx, msg.From.ID, i18n.ExistingTicket, fmt.Sprint(number)))
			return
		}
		logger.Error("start wizard failed", zap.Error(err))
		h.reply(ctx, logger, to, h.userText(ctx, msg.From.ID, i18n.SubmitFailed))
		return
	}
	h.send(ctx, logger, to, languagePrompt())
}

// supportThread returns the thread a support command was issued in, replying with a
// notice when the command was used elsewhere.
func (h *Handler) supportThread(ctx context.Context, logger *zap.Logger, msg transport.Message) (transport.Recipient, bool) {
	if msg.ChatID != h.supportChatID || !msg.InThread() {
		if msg.ChatID == h.supportChatID {
			h.reply(ctx, logger, transport.Recipient{ChatID: msg.ChatID}, h.supportText(i18n.SupportCommandInvalid))
		}
		return transport.Recipient{}, false
	}
	return transport.Recipient{ChatID: msg.ChatID, ThreadID: msg.ThreadID}, true
}

func (h *Handler) cmdClose(ctx context.Context, logger *zap.Logger, msg transport.Message, _ string) {
	thread, ok := h.supportThread(ctx, logger, msg)
	if !ok {
		return
	}
	outcome, err := h.support.Close(ctx, msg.ThreadID, msg.From)
	switch {
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		h.reply(ctx, logger, thread, h.supportText(i18n.SupportTicketMissing))
	case err != nil:
		logger.Error("close ticket failed", zap.Int64("thread_id", msg.ThreadID), zap.Error(err))
		h.reply(ctx, logger, thread, h.supportText(i18n.SupportCloseFailed, err))
	default:
		logger.Info("ticket closed", zap.String("ticket_number", outcome.Ticket.DisplayNumber()))
	}
}

func (h *Handler) cmdExport(ctx context.Context, logger *zap.Logger, msg transport.Message, _ string) {
	thread, ok := h.supportThread(ctx, logger, msg)
	if !ok {
		return
	}
	_, err := h.support.Export(ctx, msg.ThreadID)
	switch {
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		h.reply(ctx, logger, thread, h.supportText(i18n.SupportExportMissing))
	case err != nil:
		logger.Warn("export ticket failed", zap.Int64("thread_id", msg.ThreadID), zap.Error(err))
		h.reply(ctx, logger, thread, h.supportText(i18n.SupportExportFailed, err))
	}
}

func (h *Handler) cmdAI(ctx context.Context, logger *zap.Logger, msg transport.Message, args string) {
	req := service.AskRequest{Asker: msg.From, Question: args}
	to := transport.Recipient{ChatID: msg.ChatID}
	var lang string
	switch {
	case msg.ChatType == transport.ChatPrivate:
		lang = h.userLanguage(ctx, msg.From.ID)
	case msg.ChatID == h.supportChatID && msg.InThread():
		lang = h.supportLanguage
		req.ThreadID = msg.ThreadID
		to.ThreadID = msg.ThreadID
	default:
		return
	}

	if args == "" {
		h.reply(ctx, logger, to, i18n.T(lang, i18n.AIUsage))
		return
	}
	result, err := h.assistant.Ask(ctx, req)
	switch {
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		h.reply(ctx, logger, to, i18n.T(lang, i18n.AINoTicket))
	case err != nil:
		logger.Warn("ai question failed", zap.Error(err))
		h.reply(ctx, logger, to, i18n.T(lang, i18n.AIUnavailable))
	default:
		h.reply(ctx, logger, to, i18n.T(lang, i18n.AIResponse, html.EscapeString(result.Answer)))
	}
}
