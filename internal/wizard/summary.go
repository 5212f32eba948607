package wizard

import (
	"fmt"
	"html"
	"strings"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// Owner identifies the user in a rendered summary.
type Owner struct {
	ID       int64
	Username string
}

type summaryText struct {
	user    string
	ticket  string
	subject string
}

var summaryTexts = map[string]summaryText{
	LanguageRussian: {user: "Пользователь", ticket: "Тикет", subject: "Тема"},
	LanguageEnglish: {user: "User", ticket: "Ticket", subject: "Subject"},
}

// RenderSummary renders the confirmation summary as HTML. answers must be in index
// order; see Session.StepAnswers.
func RenderSummary(lang string, owner Owner, subject string, answers []domain.StepAnswer) string {
	display := DisplayLanguage(lang)
	t := summaryTexts[display]

	username := owner.Username
	if username == "" {
		username = "no_username"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s:</b> @%s (ID: <code>%d</code>)\n", t.user, html.EscapeString(username), owner.ID)
	fmt.Fprintf(&b, "<b>%s:</b>\n%s: %s\n\n", t.ticket, t.subject, html.EscapeString(subject))
	for i, answer := range answers {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, StepLabel(i, display), html.EscapeString(annotate(answer)))
	}
	return b.String()
}

// Summary renders the session's current answers.
func (s *Session) Summary(owner Owner) string {
	return RenderSummary(s.Language, owner, s.Subject, s.StepAnswers())
}

func annotate(answer domain.StepAnswer) string {
	if !answer.HasMedia() {
		return answer.Text
	}
	if answer.Text == domain.MediaPlaceholder {
		return fmt.Sprintf("[%s]", answer.MediaKind)
	}
	return fmt.Sprintf("[%s] %s", answer.MediaKind, answer.Text)
}
