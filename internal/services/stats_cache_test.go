package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/isdelr/taskflow-api/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisStatsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStatsCache(client, ttl), mr
}

func TestRedisStatsCache_RoundTripAndExpiry(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "u1")
	assert.False(t, ok)

	want := models.TaskStats{Total: 3, Todo: 1, InProgress: 1, Done: 1}
	cache.Set(ctx, "u1", want)
	assert.True(t, mr.Exists("taskflow:stats:u1"))

	got, ok := cache.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	_, ok = cache.Get(ctx, "u1")
	assert.False(t, ok)
}

func TestRedisStatsCache_CorruptEntryIsDropped(t *testing.T) {
	cache, mr := newRedisCache(t, 0)
	ctx := context.Background()

	require.NoError(t, mr.Set("taskflow:stats:u1", "not json"))
	_, ok := cache.Get(ctx, "u1")
	assert.False(t, ok)
	assert.False(t, mr.Exists("taskflow:stats:u1"))
}

func TestRedisStatsCache_UnavailableServerFallsBack(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	mr.Close()

	f := newTaskFixture(t, WithStatsCache(cache))
	f.create(t, f.owner.ID, models.TaskInput{Title: "Still works"})

	stats, err := f.tasks.Stats(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestTaskService_WithRedisCache(t *testing.T) {
	cache, mr := newRedisCache(t, time.Minute)
	f := newTaskFixture(t, WithStatsCache(cache))
	ctx := context.Background()

	f.create(t, f.owner.ID, models.TaskInput{Title: "First"})
	_, err := f.tasks.Stats(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("taskflow:stats:"+f.owner.ID))

	task := f.create(t, f.owner.ID, models.TaskInput{Title: "Second"})
	assert.False(t, mr.Exists("taskflow:stats:"+f.owner.ID))

	_, err = f.tasks.UpdateTask(ctx, f.owner.ID, task.ID, models.TaskPatch{Status: models.Some(models.StatusDone)})
	require.NoError(t, err)

	list, err := f.tasks.ListTasks(ctx, f.owner.ID, models.TaskQuery{Status: models.StatusTodo})
	require.NoError(t, err)
	assert.Len(t, list.Tasks, 1)
	assert.Equal(t, models.TaskStats{Total: 2, Todo: 1, Done: 1}, list.Stats)
}
