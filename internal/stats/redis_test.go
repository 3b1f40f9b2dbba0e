package stats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leetease/catalog-engine/internal/models"
)

// TestRedisCache needs a live server; set LEETEASE_TEST_REDIS to its address.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("LEETEASE_TEST_REDIS")
	if addr == "" {
		t.Skip("LEETEASE_TEST_REDIS not set, skipping")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(ctx).Err())

	ns := "leetease-test:" + uuid.NewString() + ":"
	c := NewRedisCache[models.UserStats](client, ns, time.Minute)

	c.Set(ctx, "u1|global", models.UserStats{TotalSolved: 4, Companies: []models.CompanySummary{{Company: "Acme", Total: 2}}})
	c.Set(ctx, "u2|global", models.UserStats{TotalSolved: 1})

	got, ok := c.Get(ctx, "u1|global")
	require.True(t, ok)
	assert.Equal(t, 4, got.TotalSolved)
	assert.Equal(t, "Acme", got.Companies[0].Company)

	c.InvalidatePrefix(ctx, "u1|")
	_, ok = c.Get(ctx, "u1|global")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "u2|global")
	assert.True(t, ok)

	ttl, err := client.TTL(ctx, ns+"u2|global").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	c.InvalidatePrefix(ctx, "")
}
