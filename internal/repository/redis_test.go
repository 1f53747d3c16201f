package repository

import (
	"context"
	"testing"
	"time"

	"arenapanel/internal/access"
	"arenapanel/internal/config"
	"arenapanel/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer Close(client)

	require.NoError(t, Ping(context.Background(), client))

	repo := NewRedisSessionStore(client)
	ctx := context.Background()

	session := access.Session{ID: "abc", UserID: 7, Role: models.RoleAdmin, Authenticated: true}

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, repo.SetSession(ctx, session, time.Hour))

		got, err := repo.GetSession(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, session, *got)
		assert.True(t, s.TTL("session:abc") > 0)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, repo.SetSession(ctx, access.Session{ID: "short", UserID: 1, Authenticated: true}, time.Minute))
		s.FastForward(2 * time.Minute)

		_, err := repo.GetSession(ctx, "short")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteSession(ctx, "abc"))
		_, err := repo.GetSession(ctx, "abc")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("CheckRateLimit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := repo.CheckRateLimit(ctx, "login:a@b.c", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := repo.CheckRateLimit(ctx, "login:a@b.c", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		s.FastForward(2 * time.Minute)
		ok, err = repo.CheckRateLimit(ctx, "login:a@b.c", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.Close()
		_, err := repo.GetSession(ctx, "abc")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestRedisSessionStoreNilClient(t *testing.T) {
	repo := NewRedisSessionStore(nil)
	ctx := context.Background()

	_, err := repo.GetSession(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, repo.SetSession(ctx, access.Session{ID: "x"}, time.Minute))
	assert.Error(t, repo.DeleteSession(ctx, "x"))
	_, err = repo.CheckRateLimit(ctx, "x", 1, time.Minute)
	assert.Error(t, err)
	assert.NoError(t, Close(nil))
}
