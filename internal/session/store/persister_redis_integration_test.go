//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evera/internal/platform/config"
	platformredis "evera/internal/platform/redis"
	"evera/internal/session/models"
	"evera/pkg/platform/sentinel"
	"evera/pkg/testutil/containers"
)

func TestRedisPersisterIntegration(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	client, err := platformredis.New(ctx, config.RedisConfig{URL: rc.URL, PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Health(ctx))

	p, err := NewRedisPersister(client, "evera:", "userStore")
	require.NoError(t, err)

	t.Run("empty key reports not found", func(t *testing.T) {
		_, err := p.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("store survives reload", func(t *testing.T) {
		st, err := New(ctx, p)
		require.NoError(t, err)
		st.SetCredential(models.Credential{AccessToken: "T1", RefreshToken: "R1"})
		st.SetProfile(models.Profile{FirstName: "A"})

		raw, err := rc.Client.Get(ctx, "evera:userStore").Result()
		require.NoError(t, err)
		assert.JSONEq(t, `{"state":{"userInfo":{"firstName":"A"},"userToken":{"accessToken":"T1","refreshToken":"R1"}},"version":0}`, raw)

		reloaded, err := New(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, models.Credential{AccessToken: "T1", RefreshToken: "R1"}, reloaded.Credential())
	})

	t.Run("corrupt value is reported", func(t *testing.T) {
		require.NoError(t, rc.Client.Set(ctx, "evera:userStore", "nope", 0).Err())
		_, err := p.Load(ctx)
		assert.ErrorIs(t, err, sentinel.ErrCorrupt)
	})
}
