package wizard

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kombat1337-ui/Support-bot/internal/domain"
)

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	clock := now
	store := NewMemoryStore(30 * time.Minute)
	store.SetClock(func() time.Time { return clock })

	require.NoError(t, store.Save(ctx, NewSession(1, clock)))
	require.NoError(t, store.Save(ctx, NewSession(2, clock)))

	clock = clock.Add(20 * time.Minute)
	s, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s))

	clock = clock.Add(15 * time.Minute)
	_, err = store.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrNoSession, "idle session expires lazily on read")

	_, err = store.Get(ctx, 1)
	require.NoError(t, err, "saving refreshes the idle timer")

	clock = clock.Add(31 * time.Minute)
	removed, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Zero(t, store.Len())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	s := NewSession(1, now)
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	got.Answers[0] = domain.StepAnswer{Text: "changed"}

	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, again.Answers)

	require.NoError(t, store.Delete(ctx, 1))
	_, err = store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "test:", time.Minute)
	s := NewSession(4242, now)
	require.NoError(t, s.Apply(ChooseLanguage("en"), now))
	require.NoError(t, s.Apply(Content("Acme", nil), now))
	require.NoError(t, s.Apply(Content("", &domain.Media{Kind: domain.MediaVoice, FileRef: "v"}), now))
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, State{Kind: FillingStep, Step: 1}, got.State)
	assert.Equal(t, domain.MediaVoice, got.Answers[0].MediaKind)

	ttl, err := client.TTL(ctx, "test:wizard:session:4242").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	require.NoError(t, store.Delete(ctx, 4242))
	_, err = store.Get(ctx, 4242)
	assert.ErrorIs(t, err, ErrNoSession)
}
