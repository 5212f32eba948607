package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
	"github.com/kombat1337-ui/Support-bot/internal/events"
	"github.com/kombat1337-ui/Support-bot/internal/i18n"
	"github.com/kombat1337-ui/Support-bot/internal/repository"
	"github.com/kombat1337-ui/Support-bot/internal/service"
	"github.com/kombat1337-ui/Support-bot/internal/transport"
	"github.com/kombat1337-ui/Support-bot/internal/transport/transporttest"
	"github.com/kombat1337-ui/Support-bot/internal/wizard"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

const supportChat int64 = -100500

type fixture struct {
	store    *repository.MemoryStore
	fake     *transporttest.Fake
	registry *service.TicketRegistry
	sessions *wizard.MemoryStore
	relayed  []events.Event
	mu       sync.Mutex
	router   *Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    repository.NewMemoryStore(),
		fake:     transporttest.New(),
		sessions: wizard.NewMemoryStore(30 * time.Minute),
	}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventMessageRelayed, func(ctx context.Context, e events.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.relayed = append(f.relayed, e)
		return nil
	})
	f.registry = service.NewTicketRegistry(service.RegistryDependencies{
		TicketRepo: f.store.Tickets(),
		Dispatcher: dispatcher,
	})
	intake := service.NewIntakeService(service.IntakeDependencies{
		Registry:      f.registry,
		Sessions:      f.sessions,
		UserRepo:      f.store.Users(),
		Transport:     f.fake,
		SupportChatID: supportChat,
	})
	f.router = NewRouter(Dependencies{
		Tickets:       f.registry,
		Threads:       intake,
		Sessions:      intake,
		LogRepo:       f.store.Logs(),
		Transport:     f.fake,
		Dispatcher:    dispatcher,
		SupportChatID: supportChat,
	})
	return f
}

func (f *fixture) seedTicket(userID, threadID int64) *domain.Ticket {
	ticket := domain.Ticket{Number: userID, UserID: userID, Subject: "Acme", Status: domain.TicketStatusOpen}
	if threadID != 0 {
		ticket.ThreadID = &threadID
	}
	return f.store.SeedTicket(ticket)
}

func (f *fixture) logs(t *testing.T, ticketID int64) []domain.LogEntry {
	t.Helper()
	entries, err := f.store.Logs().ListByTicket(context.Background(), ticketID)
	require.NoError(t, err)
	return entries
}

func userMessage(userID int64, text string) transport.Message {
	return transport.Message{
		ID:       7,
		ChatID:   userID,
		ChatType: transport.ChatPrivate,
		From:     transport.Sender{ID: userID, FirstName: "Ann", LastName: "Lee", Username: "ann"},
		Text:     text,
	}
}

func supportMessage(threadID int64, text string) transport.Message {
	return transport.Message{
		ID:       9,
		ChatID:   supportChat,
		ChatType: transport.ChatSupergroup,
		ThreadID: threadID,
		From:     transport.Sender{ID: 900, FirstName: "Sam"},
		Text:     text,
	}
}

func TestUserToSupportForwardsText(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(1, 101)

	outcome, err := f.router.UserToSupport(context.Background(), userMessage(1, "hello <world>"))
	require.NoError(t, err)
	assert.Equal(t, Forwarded, outcome)

	sent := f.fake.SentTo(transport.Recipient{ChatID: supportChat, ThreadID: 101})
	require.Len(t, sent, 1)
	assert.Equal(t, "<b>User:</b> hello &lt;world&gt;", sent[0].Text)

	entries := f.logs(t, ticket.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RoleUser, entries[0].Role)
	assert.Equal(t, "Ann Lee", entries[0].SenderName)
	assert.Equal(t, "hello <world>", entries[0].Text)
	assert.Equal(t, int64(7), entries[0].MessageRef)

	require.Len(t, f.relayed, 1)
	payload := f.relayed[0].Payload.(events.MessageRelayedPayload)
	assert.Equal(t, DirectionUserToSupport, payload.Direction)
	assert.Equal(t, domain.MediaText, payload.Kind)
	assert.Equal(t, entries[0].ID, payload.LogID)
}

func TestUserToSupportIgnores(t *testing.T) {
	ctx := context.Background()

	t.Run("command", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.seedTicket(1, 101)
		outcome, err := f.router.UserToSupport(ctx, userMessage(1, "/start"))
		require.NoError(t, err)
		assert.Equal(t, Ignored, outcome)
		assert.Empty(t, f.fake.Sent)
		assert.Empty(t, f.logs(t, ticket.ID))
	})

	t.Run("no open ticket", func(t *testing.T) {
		f := newFixture(t)
		outcome, err := f.router.UserToSupport(ctx, userMessage(2, "anyone?"))
		require.NoError(t, err)
		assert.Equal(t, Ignored, outcome)
		assert.Empty(t, f.fake.Sent)
	})

	t.Run("active wizard session", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.seedTicket(1, 101)
		require.NoError(t, f.sessions.Save(ctx, wizard.NewSession(1, time.Now())))
		outcome, err := f.router.UserToSupport(ctx, userMessage(1, "answer"))
		require.NoError(t, err)
		assert.Equal(t, Ignored, outcome)
		assert.Empty(t, f.fake.Sent)
		assert.Empty(t, f.logs(t, ticket.ID))
	})

	t.Run("nothing to forward", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.seedTicket(1, 101)
		msg := userMessage(1, "")
		msg.Media = &domain.Media{Kind: "sticker", FileRef: "s1"}
		outcome, err := f.router.UserToSupport(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, Ignored, outcome)
		assert.Empty(t, f.fake.Sent)
		assert.Empty(t, f.logs(t, ticket.ID))
	})
}

func TestUserToSupportMedia(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.seedTicket(1, 101)
	thread := transport.Recipient{ChatID: supportChat, ThreadID: 101}

	photo := userMessage(1, "")
	photo.Caption = "screen"
	photo.Media = &domain.Media{Kind: domain.MediaPhoto, FileRef: "p1"}
	_, err := f.router.UserToSupport(ctx, photo)
	require.NoError(t, err)

	note := userMessage(1, "")
	note.Media = &domain.Media{Kind: domain.MediaVideoNote, FileRef: "v1"}
	_, err = f.router.UserToSupport(ctx, note)
	require.NoError(t, err)

	unknown := userMessage(1, "")
	unknown.Caption = "see sticker"
	unknown.Media = &domain.Media{Kind: "sticker", FileRef: "s1"}
	_, err = f.router.UserToSupport(ctx, unknown)
	require.NoError(t, err)

	sent := f.fake.SentTo(thread)
	require.Len(t, sent, 3)
	assert.Equal(t, domain.MediaPhoto, sent[0].Media.Kind)
	assert.Equal(t, "<b>User:</b> screen", sent[0].Caption)
	assert.Equal(t, domain.MediaVideoNote, sent[1].Media.Kind)
	assert.Empty(t, sent[1].Caption)
	assert.Nil(t, sent[2].Media)
	assert.Equal(t, "<b>User:</b> see sticker", sent[2].Text)

	entries := f.logs(t, ticket.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, "screen", entries[0].Text)
	assert.Equal(t, domain.MediaPhoto, entries[0].MediaKind)
	assert.Equal(t, "p1", entries[0].MediaRef)
	assert.Equal(t, domain.MediaPlaceholder, entries[1].Text)
	assert.Equal(t, domain.MediaVideoNote, entries[1].MediaKind)
	assert.Equal(t, "see sticker", entries[2].Text)
	assert.False(t, entries[2].HasMedia())
}

func TestUserToSupportBindsMissingThread(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	answers := make([]domain.StepAnswer, domain.StepCount)
	for i := range answers {
		answers[i] = domain.StepAnswer{Index: i, Text: fmt.Sprintf("answer %d", i)}
	}
	ticket, err := f.registry.CreateTicket(ctx, 1, "Acme", answers)
	require.NoError(t, err)
	require.False(t, ticket.HasThread())

	outcome, err := f.router.UserToSupport(ctx, userMessage(1, "still there?"))
	require.NoError(t, err)
	assert.Equal(t, Forwarded, outcome)

	require.Len(t, f.fake.Threads, 1)
	bound, err := f.registry.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	require.True(t, bound.HasThread())
	assert.Equal(t, f.fake.Threads[0].ThreadID, *bound.ThreadID)

	sent := f.fake.SentTo(transport.Recipient{ChatID: supportChat, ThreadID: *bound.ThreadID})
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "answer 3")
	assert.Equal(t, "<b>User:</b> still there?", sent[1].Text)

	// a second message reuses the bound thread
	_, err = f.router.UserToSupport(ctx, userMessage(1, "hello again"))
	require.NoError(t, err)
	assert.Len(t, f.fake.Threads, 1)
}

func TestUserToSupportThreadStillMissing(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(1, 0)
	f.fake.FailCreateThread = true

	outcome, err := f.router.UserToSupport(context.Background(), userMessage(1, "hi"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstream))
	assert.Equal(t, Ignored, outcome)
	assert.Empty(t, f.logs(t, ticket.ID))
}

func TestSupportToUserForwards(t *testing.T) {
	f := newFixture(t)
	ticket := f.seedTicket(1, 101)

	outcome, err := f.router.SupportToUser(context.Background(), supportMessage(101, "try rebooting"))
	require.NoError(t, err)
	assert.Equal(t, Forwarded, outcome)

	sent := f.fake.SentTo(transport.Recipient{ChatID: 1})
	require.Len(t, sent, 1)
	assert.Equal(t, "<b>Support:</b> try rebooting", sent[0].Text)

	entries := f.logs(t, ticket.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RoleSupport, entries[0].Role)
	assert.Equal(t, "Sam", entries[0].SenderName)
}

func TestSupportToUserBlockedOwnerClosesTicket(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.seedTicket(1, 101)
	f.fake.Unreachable[1] = true

	outcome, err := f.router.SupportToUser(ctx, supportMessage(101, "hello?"))
	require.NoError(t, err)
	assert.Equal(t, Blocked, outcome)

	closed, err := f.registry.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUserBlocked, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	notices := f.fake.SentTo(transport.Recipient{ChatID: supportChat, ThreadID: 101})
	require.Len(t, notices, 1)
	assert.Equal(t, i18n.T(i18n.Russian, i18n.SupportUserBlocked), notices[0].Text)

	entries := f.logs(t, ticket.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RoleSystem, entries[0].Role)
	assert.Equal(t, blockedLogText, entries[0].Text)

	// no further relay for the closed ticket
	f.fake.Reset()
	outcome, err = f.router.SupportToUser(ctx, supportMessage(101, "anyone?"))
	require.NoError(t, err)
	assert.Equal(t, Ignored, outcome)
	assert.Empty(t, f.fake.Sent)
}

func TestSupportToUserIgnores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedTicket(1, 101)

	bot := supportMessage(101, "automated")
	bot.From.IsBot = true
	general := supportMessage(0, "general chat")
	command := supportMessage(101, "/close")
	otherChat := supportMessage(101, "elsewhere")
	otherChat.ChatID = -42
	unbound := supportMessage(555, "no ticket here")

	for name, msg := range map[string]transport.Message{
		"bot sender":     bot,
		"outside thread": general,
		"command":        command,
		"other chat":     otherChat,
		"unbound thread": unbound,
	} {
		outcome, err := f.router.SupportToUser(ctx, msg)
		require.NoError(t, err, name)
		assert.Equal(t, Ignored, outcome, name)
	}
	assert.Empty(t, f.fake.Sent)
}

func TestRelayLogOrderingUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ticket := f.seedTicket(1, 101)

	const perSide = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < perSide; i++ {
			_, err := f.router.UserToSupport(ctx, userMessage(1, fmt.Sprintf("u%02d", i)))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < perSide; i++ {
			_, err := f.router.SupportToUser(ctx, supportMessage(101, fmt.Sprintf("s%02d", i)))
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	entries := f.logs(t, ticket.ID)
	require.Len(t, entries, 2*perSide)

	var users, supports []string
	for i, e := range entries {
		if i > 0 {
			assert.False(t, e.CreatedAt.Before(entries[i-1].CreatedAt))
		}
		if e.Role == domain.RoleUser {
			users = append(users, e.Text)
		} else {
			supports = append(supports, e.Text)
		}
	}
	for i := 0; i < perSide; i++ {
		assert.Equal(t, fmt.Sprintf("u%02d", i), users[i])
		assert.Equal(t, fmt.Sprintf("s%02d", i), supports[i])
	}
}
