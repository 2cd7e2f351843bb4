//go:build integration

package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/buildbuddy/engine/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	rc, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Terminate(ctx) })

	uri, err := rc.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewRedisCache(rdb, time.Minute)
	id := uuid.New()

	var plan models.ProjectArchitecture
	ok, err := c.Get(ctx, StepArchitecture, id, &plan)
	require.NoError(t, err)
	require.False(t, ok)

	want := models.ProjectArchitecture{ProjectID: id, Version: 2, Nodes: []models.Node{{ID: "web", Label: "Frontend"}}}
	require.NoError(t, c.Set(ctx, StepArchitecture, id, want))

	ok, err = c.Get(ctx, StepArchitecture, id, &plan)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, plan.Version)
	require.Equal(t, "Frontend", plan.Nodes[0].Label)

	ttl, err := rdb.TTL(ctx, cacheKey(StepArchitecture, id)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}
