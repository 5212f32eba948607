package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/i18n"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
	"github.com/kombat1337-ui/Support-bot/internal/wizard"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

const (
	callbackLangPrefix  = "lang_"
	callbackStepPrefix  = "step_"
	callbackStepConfirm = "step_confirm"
	callbackEdit        = "edit"
	callbackSubmit      = "submit"
	callbackCancel      = "cancel"
)

func languagePrompt() transport.Content {
	return transport.Content{
		Text: i18n.T(i18n.Russian, i18n.ChooseLanguage),
		Keyboard: transport.Keyboard{
			{{Text: "Русский 🇷🇺", Data: callbackLangPrefix + wizard.LanguageRussian}},
			{{Text: "English 🇬🇧", Data: callbackLangPrefix + wizard.LanguageEnglish}},
			{{Text: "Another / Другой", Data: callbackLangPrefix + wizard.LanguageAnother}},
		},
	}
}

func stepPrompt(lang string, step int) transport.Content {
	var nav []transport.Button
	if step > 0 {
		nav = append(nav, transport.Button{Text: i18n.T(lang, i18n.ButtonBack), Data: callbackStepPrefix + strconv.Itoa(step-1)})
	}
	nextData := callbackStepConfirm
	if step < domain.StepCount-1 {
		nextData = callbackStepPrefix + strconv.Itoa(step+1)
	}
	nav = append(nav, transport.Button{Text: i18n.T(lang, i18n.ButtonNext), Data: nextData})

	return transport.Content{
		Text: fmt.Sprintf("%s\n<b>%s</b>",
			i18n.T(lang, i18n.StepHeader, step+1, domain.StepCount),
			wizard.StepLabel(step, lang)),
		Keyboard: transport.Keyboard{
			nav,
			{{Text: i18n.T(lang, i18n.ButtonCancel), Data: callbackCancel}},
		},
	}
}

func confirmPrompt(session *wizard.Session, owner transport.Sender) transport.Content {
	lang := session.Language
	return transport.Content{
		Text: session.Summary(wizard.Owner{ID: owner.ID, Username: owner.Handle()}),
		Keyboard: transport.Keyboard{{
			{Text: i18n.T(lang, i18n.ButtonEdit), Data: callbackEdit},
			{Text: i18n.T(lang, i18n.ButtonSubmit), Data: callbackSubmit},
		}},
	}
}

// parseCallback maps callback data onto a wizard action. Step navigation buttons carry
// their target step and only resolve against the session's current step, so stale
// buttons from earlier prompts are rejected.
func parseCallback(data string, session *wizard.Session) (wizard.Action, bool) {
	switch {
	case strings.HasPrefix(data, callbackLangPrefix):
		return wizard.ChooseLanguage(strings.TrimPrefix(data, callbackLangPrefix)), true
	case data == callbackEdit:
		return wizard.Edit(), true
	case data == callbackSubmit:
		return wizard.Submit(), true
	case data == callbackCancel:
		return wizard.Cancel(), true
	}

	if session.State.Kind != wizard.FillingStep {
		return wizard.Action{}, false
	}
	current := session.State.Step
	if data == callbackStepConfirm {
		return wizard.Next(), current == domain.StepCount-1
	}
	if !strings.HasPrefix(data, callbackStepPrefix) {
		return wizard.Action{}, false
	}
	target, err := strconv.Atoi(strings.TrimPrefix(data, callbackStepPrefix))
	if err != nil {
		return wizard.Action{}, false
	}
	switch target {
	case current - 1:
		return wizard.Back(), true
	case current + 1:
		return wizard.Next(), true
	}
	return wizard.Action{}, false
}

func (h *Handler) handleCallback(ctx context.Context, logger *zap.Logger, cb transport.Callback) {
	logger = logger.With(zap.Int64("user_id", cb.From.ID), zap.String("callback", cb.Data))
	if err := h.transport.AnswerCallback(ctx, cb.ID, ""); err != nil {
		logger.Debug("answer callback failed", zap.Error(err))
	}
	to := transport.Recipient{ChatID: cb.ChatID}

	session, err := h.intake.Session(ctx, cb.From.ID)
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		h.reply(ctx, logger, to, h.userText(ctx, cb.From.ID, i18n.SessionExpired))
		return
	}
	if err != nil {
		logger.Error("load wizard session failed", zap.Error(err))
		return
	}

	action, ok := parseCallback(cb.Data, session)
	if !ok {
		h.reply(ctx, logger, to, i18n.T(session.Language, i18n.ActionInvalid))
		return
	}
	h.applyAction(ctx, logger, to, cb.From, session.Language, action)
}

func (h *Handler) wizardContent(ctx context.Context, logger *zap.Logger, msg transport.Message) {
	session, err := h.intake.Session(ctx, msg.From.ID)
	if err != nil {
		logger.Warn("load wizard session failed", zap.Error(err))
		return
	}
	action := wizard.Content(msg.Body(), msg.Media)
	h.applyAction(ctx, logger, transport.Recipient{ChatID: msg.ChatID}, msg.From, session.Language, action)
}

func (h *Handler) applyAction(ctx context.Context, logger *zap.Logger, to transport.Recipient, user transport.Sender, lang string, action wizard.Action) {
	result, err := h.intake.Handle(ctx, user, action)
	if err != nil {
		h.reportWizardError(ctx, logger, to, user, lang, action, err)
		return
	}
	session := result.Session
	if session.Language != "" {
		lang = session.Language
	}

	if result.Restarted {
		h.reply(ctx, logger, to, i18n.T(lang, i18n.Restarting))
		h.send(ctx, logger, to, languagePrompt())
		return
	}

	switch session.State.Kind {
	case wizard.EnteringSubject:
		h.reply(ctx, logger, to, i18n.T(lang, i18n.EnterSubject))
	case wizard.FillingStep:
		h.send(ctx, logger, to, stepPrompt(lang, session.State.Step))
	case wizard.Confirming:
		h.send(ctx, logger, to, confirmPrompt(session, user))
	case wizard.Canceled:
		h.reply(ctx, logger, to, i18n.T(lang, i18n.Canceled))
	case wizard.Submitted:
		if result.ThreadErr != nil {
			logger.Warn("ticket created without support thread", zap.Int64("ticket_id", result.Ticket.ID), zap.Error(result.ThreadErr))
		}
		h.reply(ctx, logger, to, i18n.T(lang, i18n.TicketSent, result.Ticket.DisplayNumber()))
	}
}

func (h *Handler) reportWizardError(ctx context.Context, logger *zap.Logger, to transport.Recipient, user transport.Sender, lang string, action wizard.Action, err error) {
	switch {
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		h.reply(ctx, logger, to, h.userText(ctx, user.ID, i18n.SessionExpired))
	case apperrors.HasCode(err, apperrors.CodeConflict):
		if number, ok := apperrors.Detail(err, "ticket_number"); ok {
			h.reply(ctx, logger, to, i18n.T(lang, i18n.ExistingTicket, fmt.Sprint(number)))
			return
		}
		h.reply(ctx, logger, to, i18n.T(lang, i18n.SubmitFailed))
	case apperrors.HasCode(err, apperrors.CodeValidation) && action.Kind == wizard.ActionContent:
		h.reply(ctx, logger, to, i18n.T(lang, i18n.AnswerRequired))
	case apperrors.HasCode(err, apperrors.CodeValidation):
		h.reply(ctx, logger, to, i18n.T(lang, i18n.ActionInvalid))
	case action.Kind == wizard.ActionSubmit:
		logger.Error("submit ticket failed", zap.Error(err))
		h.reply(ctx, logger, to, i18n.T(lang, i18n.SubmitFailed))
	default:
		logger.Error("wizard action failed", zap.Stringer("action", action.Kind), zap.Error(err))
		h.reply(ctx, logger, to, i18n.T(lang, i18n.ActionInvalid))
	}
}
