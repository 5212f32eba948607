package wizard

import (
	"strings"
	"time"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

// NotFilled is the answer text recorded for steps the user skipped.
const NotFilled = "[not filled]"

const lastStep = domain.StepCount - 1

// Session is the transient intake state of one user.
type Session struct {
	UserID    int64                     `json:"user_id"`
	Language  string                    `json:"language,omitempty"`
	Subject   string                    `json:"subject,omitempty"`
	Answers   map[int]domain.StepAnswer `json:"answers,omitempty"`
	State     State                     `json:"state"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// NewSession starts a session at ChoosingLanguage.
func NewSession(userID int64, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		Answers:   map[int]domain.StepAnswer{},
		State:     State{Kind: ChoosingLanguage},
		UpdatedAt: now,
	}
}

type transition func(s *Session, a Action) error

// transitions lists every legal (state, action) pair. Missing pairs are rejected.
var transitions = map[StateKind]map[ActionKind]transition{
	ChoosingLanguage: {
		ActionChooseLanguage: chooseLanguage,
		ActionCancel:         cancel,
	},
	EnteringSubject: {
		ActionContent: enterSubject,
		ActionCancel:  cancel,
	},
	FillingStep: {
		ActionContent: answerStep,
		ActionBack:    back,
		ActionNext:    next,
		ActionCancel:  cancel,
	},
	Confirming: {
		ActionEdit:   edit,
		ActionSubmit: submit,
		ActionCancel: cancel,
	},
	Submitted: {},
	Canceled:  {},
}

// Apply runs action a against the session. An action that is not legal in the
// current state returns a validation error and leaves the session untouched.
func (s *Session) Apply(a Action, now time.Time) error {
	t, ok := transitions[s.State.Kind][a.Kind]
	if !ok {
		return apperrors.NewValidationError("action not valid in state", map[string]any{
			"state":  s.State.String(),
			"action": a.Kind.String(),
		})
	}
	if err := t(s, a); err != nil {
		return err
	}
	s.UpdatedAt = now
	return nil
}

// Expired reports whether the session has been idle for longer than ttl.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}

// StepAnswers returns exactly domain.StepCount answers in index order, filling
// unanswered steps with NotFilled.
func (s *Session) StepAnswers() []domain.StepAnswer {
	out := make([]domain.StepAnswer, domain.StepCount)
	for i := range out {
		if answer, ok := s.Answers[i]; ok {
			answer.Index = i
			out[i] = answer
			continue
		}
		out[i] = domain.StepAnswer{Index: i, Text: NotFilled}
	}
	return out
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = make(map[int]domain.StepAnswer, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	return &c
}

func chooseLanguage(s *Session, a Action) error {
	if !ValidLanguage(a.Language) {
		return apperrors.NewValidationError("unknown language", map[string]any{"language": a.Language})
	}
	s.Language = a.Language
	s.State = State{Kind: EnteringSubject}
	return nil
}

func enterSubject(s *Session, a Action) error {
	subject := strings.TrimSpace(a.Text)
	if subject == "" {
		return apperrors.NewValidationError("subject must be text", nil)
	}
	s.Subject = subject
	s.State = State{Kind: FillingStep, Step: 0}
	return nil
}

func answerStep(s *Session, a Action) error {
	step := s.State.Step
	answer := domain.StepAnswer{Index: step, Text: strings.TrimSpace(a.Text)}
	if a.Media != nil {
		answer.MediaRef = a.Media.FileRef
		answer.MediaKind = a.Media.Kind
		if answer.Text == "" {
			answer.Text = domain.MediaPlaceholder
		}
	}
	if answer.Text == "" {
		return apperrors.NewValidationError("answer must contain text or an attachment", map[string]any{"step": step})
	}
	if s.Answers == nil {
		s.Answers = map[int]domain.StepAnswer{}
	}
	s.Answers[step] = answer
	return advance(s)
}

func back(s *Session, _ Action) error {
	if s.State.Step > 0 {
		s.State.Step--
	}
	return nil
}

func next(s *Session, _ Action) error {
	return advance(s)
}

func advance(s *Session) error {
	if s.State.Step >= lastStep {
		s.State = State{Kind: Confirming}
		return nil
	}
	s.State.Step++
	return nil
}

func edit(s *Session, _ Action) error {
	s.Language = ""
	s.Subject = ""
	s.Answers = map[int]domain.StepAnswer{}
	s.State = State{Kind: ChoosingLanguage}
	return nil
}

func submit(s *Session, _ Action) error {
	s.State = State{Kind: Submitted}
	return nil
}

func cancel(s *Session, _ Action) error {
	s.State = State{Kind: Canceled}
	return nil
}
