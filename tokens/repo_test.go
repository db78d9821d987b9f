package tokens_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/sade-booster/tokens"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleTokens() tokens.Tokens {
	return tokens.Tokens{
		LoginID: "a@b.com",
		Subject: "user-1",
		IDToken: "id-token",
		Token: &oauth2.Token{
			AccessToken:  "access",
			TokenType:    "Bearer",
			RefreshToken: "refresh",
			Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func testStoreContract(t *testing.T, store tokens.Store) {
	ctx := context.Background()

	t.Run("missing client", func(t *testing.T) {
		_, err := store.Get(ctx, "nobody")
		require.ErrorIs(t, err, tokens.ErrNotFound)
	})

	t.Run("empty client id", func(t *testing.T) {
		require.Error(t, store.Upsert(ctx, "", sampleTokens()))
		_, err := store.Get(ctx, "")
		require.Error(t, err)
		require.Error(t, store.Delete(ctx, ""))
	})

	t.Run("upsert then get", func(t *testing.T) {
		require.NoError(t, store.Upsert(ctx, "client-1", sampleTokens()))

		got, err := store.Get(ctx, "client-1")
		require.NoError(t, err)
		require.Equal(t, "a@b.com", got.LoginID)
		require.Equal(t, "user-1", got.Subject)
		require.Equal(t, "access", got.AccessToken())
		require.Equal(t, "refresh", got.RefreshToken())
		require.True(t, got.Token.Expiry.Equal(sampleTokens().Token.Expiry))
	})

	t.Run("returned tokens are detached", func(t *testing.T) {
		got, err := store.Get(ctx, "client-1")
		require.NoError(t, err)
		got.Token.AccessToken = "tampered"

		again, err := store.Get(ctx, "client-1")
		require.NoError(t, err)
		require.Equal(t, "access", again.AccessToken())
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "client-1"))
		require.NoError(t, store.Delete(ctx, "client-1"))
		_, err := store.Get(ctx, "client-1")
		require.ErrorIs(t, err, tokens.ErrNotFound)
	})
}

func TestInMemoryStore(t *testing.T) {
	testStoreContract(t, tokens.NewInMemoryStore())
}

func TestRedisStore(t *testing.T) {
	_, client := newTestRedis(t)
	testStoreContract(t, tokens.NewRedisStore(client, "test", time.Hour))
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := tokens.NewRedisStore(client, "", time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "client-1", sampleTokens()))
	require.True(t, mr.Exists("sbt:client-1"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "client-1")
	require.ErrorIs(t, err, tokens.ErrNotFound)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	store := tokens.NewRedisStore(client, "test", 0)
	mr.Close()

	_, err := store.Get(context.Background(), "client-1")
	require.ErrorIs(t, err, tokens.ErrRedisUnavailable)
}

func TestNewRedisStoreFromURL(t *testing.T) {
	mr, _ := newTestRedis(t)

	store, err := tokens.NewRedisStoreFromURL(context.Background(), "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), "c", sampleTokens()))

	_, err = tokens.NewRedisStoreFromURL(context.Background(), "not a url", time.Hour)
	require.Error(t, err)
}
