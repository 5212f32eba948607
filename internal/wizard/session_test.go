package wizard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func filledSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession(1, now)
	require.NoError(t, s.Apply(ChooseLanguage("en"), now))
	require.NoError(t, s.Apply(Content("Acme", nil), now))
	for i := 0; i < domain.StepCount; i++ {
		require.NoError(t, s.Apply(Content(fmt.Sprintf("answer %d", i), nil), now))
	}
	return s
}

func TestSessionHappyPath(t *testing.T) {
	s := filledSession(t)
	assert.Equal(t, State{Kind: Confirming}, s.State)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, "Acme", s.Subject)

	answers := s.StepAnswers()
	require.Len(t, answers, domain.StepCount)
	for i, a := range answers {
		assert.Equal(t, i, a.Index)
		assert.Equal(t, fmt.Sprintf("answer %d", i), a.Text)
	}

	require.NoError(t, s.Apply(Submit(), now))
	assert.True(t, s.State.Terminal())
}

func TestSessionRejectsInvalidActions(t *testing.T) {
	cases := []struct {
		name   string
		state  State
		action Action
	}{
		{"content while choosing language", State{Kind: ChoosingLanguage}, Content("hi", nil)},
		{"submit while filling", State{Kind: FillingStep, Step: 2}, Submit()},
		{"back while confirming", State{Kind: Confirming}, Back()},
		{"content while confirming", State{Kind: Confirming}, Content("late", nil)},
		{"edit while entering subject", State{Kind: EnteringSubject}, Edit()},
		{"cancel after submit", State{Kind: Submitted}, Cancel()},
		{"anything after cancel", State{Kind: Canceled}, Next()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession(1, now)
			s.State = tc.state
			err := s.Apply(tc.action, now.Add(time.Minute))
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
			assert.Equal(t, tc.state, s.State)
			assert.Equal(t, now, s.UpdatedAt)
		})
	}
}

func TestSessionLanguageAndSubjectValidation(t *testing.T) {
	s := NewSession(1, now)
	err := s.Apply(ChooseLanguage("de"), now)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	require.NoError(t, s.Apply(ChooseLanguage("another"), now))
	err = s.Apply(Content("   ", &domain.Media{Kind: domain.MediaPhoto, FileRef: "p"}), now)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Equal(t, EnteringSubject, s.State.Kind)
}

func TestSessionNavigation(t *testing.T) {
	s := NewSession(1, now)
	require.NoError(t, s.Apply(ChooseLanguage("ru"), now))
	require.NoError(t, s.Apply(Content("Acme", nil), now))

	require.NoError(t, s.Apply(Back(), now))
	assert.Equal(t, State{Kind: FillingStep, Step: 0}, s.State, "back at the first step is a no-op")

	require.NoError(t, s.Apply(Content("first", nil), now))
	require.NoError(t, s.Apply(Back(), now))
	require.NoError(t, s.Apply(Content("first again", nil), now))
	assert.Equal(t, "first again", s.Answers[0].Text)

	for s.State.Kind == FillingStep {
		require.NoError(t, s.Apply(Next(), now))
	}
	assert.Equal(t, Confirming, s.State.Kind)

	answers := s.StepAnswers()
	assert.Equal(t, "first again", answers[0].Text)
	for _, a := range answers[1:] {
		assert.Equal(t, NotFilled, a.Text)
	}
}

func TestSessionMediaAnswer(t *testing.T) {
	s := NewSession(1, now)
	require.NoError(t, s.Apply(ChooseLanguage("en"), now))
	require.NoError(t, s.Apply(Content("Acme", nil), now))

	require.NoError(t, s.Apply(Content("", &domain.Media{Kind: domain.MediaPhoto, FileRef: "photo-1"}), now))
	require.NoError(t, s.Apply(Content("see video", &domain.Media{Kind: domain.MediaVideo, FileRef: "video-1"}), now))

	assert.Equal(t, domain.MediaPlaceholder, s.Answers[0].Text)
	assert.Equal(t, domain.MediaPhoto, s.Answers[0].MediaKind)
	assert.Equal(t, "photo-1", s.Answers[0].MediaRef)
	assert.Equal(t, "see video", s.Answers[1].Text)

	err := s.Apply(Content("", nil), now)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestSessionEditDiscardsEverything(t *testing.T) {
	s := filledSession(t)
	require.NoError(t, s.Apply(Edit(), now))
	assert.Equal(t, State{Kind: ChoosingLanguage}, s.State)
	assert.Empty(t, s.Language)
	assert.Empty(t, s.Subject)
	assert.Empty(t, s.Answers)
}

func TestSessionCancelFromAnyLiveState(t *testing.T) {
	for _, st := range []State{{Kind: ChoosingLanguage}, {Kind: EnteringSubject}, {Kind: FillingStep, Step: 3}, {Kind: Confirming}} {
		s := NewSession(1, now)
		s.State = st
		require.NoError(t, s.Apply(Cancel(), now), st.String())
		assert.Equal(t, Canceled, s.State.Kind)
	}
}

func TestSummary(t *testing.T) {
	s := NewSession(1, now)
	require.NoError(t, s.Apply(ChooseLanguage("en"), now))
	require.NoError(t, s.Apply(Content("Acme <Corp>", nil), now))
	require.NoError(t, s.Apply(Content("", &domain.Media{Kind: domain.MediaPhoto, FileRef: "p"}), now))
	require.NoError(t, s.Apply(Content("clip", &domain.Media{Kind: domain.MediaVideo, FileRef: "v"}), now))

	out := s.Summary(Owner{ID: 1, Username: "ann"})
	assert.Contains(t, out, "@ann (ID: <code>1</code>)")
	assert.Contains(t, out, "Subject: Acme &lt;Corp&gt;")
	assert.Contains(t, out, "1. Which product?: [photo]\n")
	assert.Contains(t, out, "2. Game: [video] clip\n")
	assert.Contains(t, out, "7. You will be answered as soon as possible: [not filled]\n")

	ru := RenderSummary("ru", Owner{ID: 2}, "Acme", s.StepAnswers())
	assert.Contains(t, ru, "@no_username")
	assert.Contains(t, ru, "Тема: Acme")
}

func TestDisplayLanguage(t *testing.T) {
	assert.Equal(t, "ru", DisplayLanguage("ru"))
	assert.Equal(t, "en", DisplayLanguage("en"))
	assert.Equal(t, "en", DisplayLanguage("another"))
	assert.Empty(t, StepLabel(7, "en"))
}
