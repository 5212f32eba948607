// Package wizard implements the per-user intake state machine that collects a subject
// and seven step answers before a ticket is submitted.
package wizard

import (
	"fmt"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

// StateKind tags the current wizard state.
type StateKind int

const (
	ChoosingLanguage StateKind = iota
	EnteringSubject
	FillingStep
	Confirming
	Submitted
	Canceled
)

func (k StateKind) String() string {
	switch k {
	case ChoosingLanguage:
		return "choosing_language"
	case EnteringSubject:
		return "entering_subject"
	case FillingStep:
		return "filling_step"
	case Confirming:
		return "confirming"
	case Submitted:
		return "submitted"
	case Canceled:
		return "canceled"
	}
	return fmt.Sprintf("state(%d)", int(k))
}

// State is the tagged wizard state. Step is only meaningful for FillingStep.
type State struct {
	Kind StateKind `json:"kind"`
	Step int       `json:"step,omitempty"`
}

// Terminal reports whether no further actions are accepted.
func (s State) Terminal() bool {
	return s.Kind == Submitted || s.Kind == Canceled
}

func (s State) String() string {
	if s.Kind == FillingStep {
		return fmt.Sprintf("%s(%d)", s.Kind, s.Step)
	}
	return s.Kind.String()
}

// ActionKind enumerates the inputs the wizard reacts to.
type ActionKind int

const (
	ActionChooseLanguage ActionKind = iota
	ActionContent
	ActionBack
	ActionNext
	ActionEdit
	ActionSubmit
	ActionCancel
)

func (k ActionKind) String() string {
	switch k {
	case ActionChooseLanguage:
		return "choose_language"
	case ActionContent:
		return "content"
	case ActionBack:
		return "back"
	case ActionNext:
		return "next"
	case ActionEdit:
		return "edit"
	case ActionSubmit:
		return "submit"
	case ActionCancel:
		return "cancel"
	}
	return fmt.Sprintf("action(%d)", int(k))
}

// Action is one user input. Language is set for ActionChooseLanguage; Text and Media
// for ActionContent.
type Action struct {
	Kind     ActionKind
	Language string
	Text     string
	Media    *domain.Media
}

func ChooseLanguage(lang string) Action {
	return Action{Kind: ActionChooseLanguage, Language: lang}
}

func Content(text string, media *domain.Media) Action {
	return Action{Kind: ActionContent, Text: text, Media: media}
}

func Back() Action   { return Action{Kind: ActionBack} }
func Next() Action   { return Action{Kind: ActionNext} }
func Edit() Action   { return Action{Kind: ActionEdit} }
func Submit() Action { return Action{Kind: ActionSubmit} }
func Cancel() Action { return Action{Kind: ActionCancel} }
