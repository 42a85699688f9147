package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/signaldeck/dashboard/session"
)

func newTestRedisRepo(t *testing.T) (*session.RedisRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return session.NewRedisRepo(client), mr
}

func TestRedisRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRedisRepo(t)

	want := session.Session{
		ID:           "sess-1",
		AccessToken:  "access",
		RefreshToken: "refresh",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		ExpiresAt:    time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}
	require.NoError(t, repo.Upsert(ctx, want))

	got, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, want.AccessToken, got.AccessToken)
	require.Equal(t, want.RefreshToken, got.RefreshToken)
	require.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
}

func TestRedisRepoMissingSession(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRedisRepo(t)

	_, err := repo.Get(ctx, "nope")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestRedisRepoExpiry(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRedisRepo(t)

	require.NoError(t, repo.Upsert(ctx, session.Session{
		ID:           "short",
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(time.Minute),
	}))

	_, err := repo.Get(ctx, "short")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = repo.Get(ctx, "short")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestRedisRepoRejectsExpiredWrite(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRedisRepo(t)

	err := repo.Upsert(ctx, session.Session{
		ID:           "dead",
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	require.Error(t, err)
}

func TestRedisRepoDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRedisRepo(t)

	require.NoError(t, repo.Upsert(ctx, session.Session{
		ID:           "gone",
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))

	require.NoError(t, repo.Delete(ctx, "gone"))
	require.NoError(t, repo.Delete(ctx, "gone"))

	_, err := repo.Get(ctx, "gone")
	require.ErrorIs(t, err, session.ErrNotFound)
}
