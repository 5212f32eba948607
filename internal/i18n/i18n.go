// Package i18n holds the bot's user and support facing strings.
package i18n

import "fmt"

const (
	Russian = "ru"
	English = "en"
)

// Key names a translatable string.
type Key string

const (
	Welcome          Key = "welcome"
	ChooseLanguage   Key = "choose_language"
	EnterSubject     Key = "enter_subject"
	StepHeader       Key = "step_header"
	ButtonBack       Key = "button_back"
	ButtonNext       Key = "button_next"
	ButtonCancel     Key = "button_cancel"
	ButtonEdit       Key = "button_edit"
	ButtonSubmit     Key = "button_submit"
	TicketSent       Key = "ticket_sent"
	Canceled         Key = "canceled"
	Restarting       Key = "restarting"
	ExistingTicket   Key = "existing_ticket"
	SessionExpired   Key = "session_expired"
	ActionInvalid    Key = "action_invalid"
	AnswerRequired   Key = "answer_required"
	SubmitFailed     Key = "submit_failed"
	TicketClosedUser Key = "ticket_closed_user"
	DeliveryFailed   Key = "delivery_failed"
	AIUsage          Key = "ai_usage"
	AINoTicket       Key = "ai_no_ticket"
	AIResponse       Key = "ai_response"
	AIUnavailable    Key = "ai_unavailable"
	HelpUsage        Key = "help_usage"
	HelpSent         Key = "help_sent"
	HelpFailed       Key = "help_failed"

	// Support group strings.
	SupportUserBlocked    Key = "support_user_blocked"
	SupportClosedGeneral  Key = "support_closed_general"
	SupportClosedThread   Key = "support_closed_thread"
	SupportNoLogFile      Key = "support_no_log_file"
	SupportLogFallback    Key = "support_log_fallback"
	SupportLogCaption     Key = "support_log_caption"
	SupportTicketMissing  Key = "support_ticket_missing"
	SupportExportMissing  Key = "support_export_missing"
	SupportExportFailed   Key = "support_export_failed"
	SupportDeleteFailed   Key = "support_delete_failed"
	SupportMediaFailed    Key = "support_media_failed"
	SupportStepCaption    Key = "support_step_caption"
	SupportFeedback       Key = "support_feedback"
	SupportAIUsed         Key = "support_ai_used"
	SupportCloseFailed    Key = "support_close_failed"
	SupportCommandInvalid Key = "support_command_invalid"
)

var catalog = map[string]map[Key]string{
	Russian: {
		Welcome: "Добро пожаловать в поддержку! Если у вас есть вопрос или нужна помощь, откройте тикет командой /newticket.\n" +
			"Гарантированное время ответа: с 7:00 до 21:00 МСК. В другое время просто оставьте тикет, первый свободный администратор ответит вам.",
		ChooseLanguage:   "Выберите язык / Choose language:",
		EnterSubject:     "Введите название компании или продукта:",
		StepHeader:       "Шаг %d/%d",
		ButtonBack:       "Назад",
		ButtonNext:       "Далее",
		ButtonCancel:     "Отмена",
		ButtonEdit:       "Редактировать",
		ButtonSubmit:     "Отправить",
		TicketSent:       "Тикет <b>#%s</b> отправлен в поддержку!",
		Canceled:         "Создание тикета отменено.",
		Restarting:       "Начинаем заново...",
		ExistingTicket:   "У вас уже есть активный тикет <b>#%s</b>.\nНовый можно создать только после того, как поддержка закроет этот.",
		SessionExpired:   "Сессия создания тикета истекла. Начните заново: /newticket",
		ActionInvalid:    "Это действие сейчас недоступно.",
		AnswerRequired:   "Отправьте текст или одно вложение.",
		SubmitFailed:     "Не удалось создать тикет. Попробуйте ещё раз.",
		TicketClosedUser: "Ваш тикет <b>#%s</b> был закрыт поддержкой.",
		DeliveryFailed:   "Не удалось доставить сообщение. Возможно, тикет был закрыт.",
		AIUsage:          "Использование: /ai &lt;вопрос&gt;",
		AINoTicket:       "Нет активного тикета.",
		AIResponse:       "<b>Ответ от ИИ:</b>\n\n%s",
		AIUnavailable:    "ИИ сейчас недоступен. Попробуйте позже.",
		HelpUsage:        "Использование: /help &lt;ваше сообщение&gt;\n(Отправляет отзыв или вопрос администрации)",
		HelpSent:         "Ваше сообщение отправлено администрации. Спасибо за обращение!",
		HelpFailed:       "Ошибка отправки сообщения.",

		SupportUserBlocked:    "Пользователь заблокировал бота. Тикет закрыт.",
		SupportClosedGeneral:  "✅ Тикет <b>#%s</b> закрыт администратором @%s (ID: %d).\nЛог-файл прикреплён.",
		SupportClosedThread:   "Тикет #%s закрыт. Лог отправлен в общий чат.",
		SupportNoLogFile:      "(Внимание: не удалось сформировать лог-файл.)",
		SupportLogFallback:    "Внимание: не удалось отправить лог-файл в общий чат: %v. Отправляю в эту тему.",
		SupportLogCaption:     "Лог-файл для тикета #%s",
		SupportTicketMissing:  "Тикет не найден или уже закрыт.",
		SupportExportMissing:  "Тикет для этой темы не найден.",
		SupportExportFailed:   "Внимание: не удалось отправить лог-файл: %v",
		SupportDeleteFailed:   "Не удалось удалить тему (возможно, уже удалена): %v",
		SupportMediaFailed:    "Не удалось отправить медиа (шаг %d): %v",
		SupportStepCaption:    "Шаг %d: %s",
		SupportFeedback:       "<b>Новый отзыв от @%s (ID: %d)</b>\n\n%s",
		SupportAIUsed:         "<b>Пользователь @%s (ID: %d) использовал /ai.</b>\n\n<b>Вопрос:</b> %s\n<b>Ответ ИИ (отправлен пользователю):</b>\n%s",
		SupportCloseFailed:    "Не удалось закрыть тикет: %v",
		SupportCommandInvalid: "Эта команда работает только внутри темы тикета.",
	},
	English: {
		Welcome: "Welcome to support! If you have a question or need help, open a ticket with /newticket.\n" +
			"Guaranteed response time: 7 a.m. to 9 p.m. Moscow time. Outside these hours just leave a ticket and the first available admin will answer.",
		ChooseLanguage:   "Выберите язык / Choose language:",
		EnterSubject:     "Enter the company or product name:",
		StepHeader:       "Step %d/%d",
		ButtonBack:       "Back",
		ButtonNext:       "Next",
		ButtonCancel:     "Cancel",
		ButtonEdit:       "Edit",
		ButtonSubmit:     "Submit",
		TicketSent:       "Ticket <b>#%s</b> sent to support!",
		Canceled:         "Ticket creation canceled.",
		Restarting:       "Starting over...",
		ExistingTicket:   "You already have an active ticket <b>#%s</b>.\nYou cannot create a new one until support closes this one.",
		SessionExpired:   "Your ticket draft expired. Start again with /newticket",
		ActionInvalid:    "This action is not available right now.",
		AnswerRequired:   "Send text or a single attachment.",
		SubmitFailed:     "Could not create the ticket. Please try again.",
		TicketClosedUser: "Your ticket <b>#%s</b> has been closed by support.",
		DeliveryFailed:   "Could not deliver the message. The ticket may have been closed.",
		AIUsage:          "Usage: /ai &lt;question&gt;",
		AINoTicket:       "No active ticket.",
		AIResponse:       "<b>AI Response:</b>\n\n%s",
		AIUnavailable:    "The AI assistant is unavailable right now. Please try again later.",
		HelpUsage:        "Usage: /help &lt;your message&gt;\n(Sends feedback or a question to the administration)",
		HelpSent:         "Your message has been sent to the administration. Thank you!",
		HelpFailed:       "Could not send the message.",

		SupportUserBlocked:    "User blocked the bot. Ticket closed.",
		SupportClosedGeneral:  "✅ Ticket <b>#%s</b> closed by administrator @%s (ID: %d).\nLog file attached.",
		SupportClosedThread:   "Ticket #%s closed. Log sent to the general chat.",
		SupportNoLogFile:      "(Warning: could not generate the log file.)",
		SupportLogFallback:    "Warning: failed to send the log file to the general chat: %v. Sending it to this topic.",
		SupportLogCaption:     "Log file for ticket #%s",
		SupportTicketMissing:  "Ticket not found or already closed.",
		SupportExportMissing:  "No ticket is bound to this topic.",
		SupportExportFailed:   "Warning: failed to send the log file: %v",
		SupportDeleteFailed:   "Could not delete the topic (it may already be gone): %v",
		SupportMediaFailed:    "Failed to deliver media (step %d): %v",
		SupportStepCaption:    "Step %d: %s",
		SupportFeedback:       "<b>New feedback from @%s (ID: %d)</b>\n\n%s",
		SupportAIUsed:         "<b>User @%s (ID: %d) used /ai.</b>\n\n<b>Question:</b> %s\n<b>AI answer (sent to the user):</b>\n%s",
		SupportCloseFailed:    "Could not close the ticket: %v",
		SupportCommandInvalid: "This command only works inside a ticket topic.",
	},
}

// DisplayLanguage maps a stored language code onto a translated catalog.
// Anything other than Russian renders in English.
func DisplayLanguage(lang string) string {
	if lang == Russian {
		return Russian
	}
	return English
}

// T returns the string for key in lang, formatted with args when any are given.
func T(lang string, key Key, args ...any) string {
	s, ok := catalog[DisplayLanguage(lang)][key]
	if !ok {
		s, ok = catalog[English][key]
	}
	if !ok {
		return string(key)
	}
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}

// Bilingual joins the Russian and English renderings of key.
func Bilingual(key Key, args ...any) string {
	return T(Russian, key, args...) + "\n---\n" + T(English, key, args...)
}
