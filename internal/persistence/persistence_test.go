package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kombat1337-ui/Support-bot/internal/config"
)

func TestPostgresDisabledWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.Nil(t, pg.PoolHandle())
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()
}

func TestPostgresRejectsMalformedDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{DSN: "postgres://%zz"}, zap.NewNop())
	assert.ErrorContains(t, err, "parse POSTGRES_DSN")
}

func TestRedisDisabledWithoutAddr(t *testing.T) {
	r := NewRedis(context.Background(), config.RedisConfig{KeyPrefix: "bot:"}, zap.NewNop())
	assert.False(t, r.Enabled())
	assert.Equal(t, "bot:", r.KeyPrefix)
	assert.Nil(t, r.SessionStore(time.Minute))
	assert.Error(t, r.Ping(context.Background()))
	r.Close()
}
