package ai

import (
	"fmt"
	"strings"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/wizard"
)

const divider = "================================================"

// BuildPrompt assembles the model prompt from the ticket, its intake answers, recent
// log entries (oldest first) and the question being asked.
func BuildPrompt(ticket *domain.Ticket, steps []domain.StepAnswer, recent []domain.LogEntry, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a support agent. Ticket #%s is about the product %q. ", ticket.DisplayNumber(), ticket.Subject)
	b.WriteString("Give an accurate and detailed answer to the current question using the ticket history below. ")
	b.WriteString("Keep a neutral, professional tone and answer in the language of the question.\n")
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "CURRENT QUESTION: %s\n", strings.TrimSpace(question))
	b.WriteString(divider + "\n")
	b.WriteString("TICKET HISTORY:\n")

	for _, step := range steps {
		media := ""
		if step.HasMedia() {
			media = fmt.Sprintf(" [Media: %s]", step.MediaKind)
		}
		fmt.Fprintf(&b, "INITIAL STEP (%s): %s%s\n", wizard.StepLabel(step.Index, wizard.LanguageEnglish), step.Text, media)
	}
	for _, entry := range recent {
		role := "Support"
		if entry.Role == domain.RoleUser {
			role = "User"
		}
		fmt.Fprintf(&b, "%s (%s): %s\n", role, entry.SenderName, entry.Text)
	}
	return b.String()
}
