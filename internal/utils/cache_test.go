package utils

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRedis answers the string commands used by Cache. Any other call panics
// on the nil embedded interface.
type memRedis struct {
	redis.Cmdable
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMemRedis() *memRedis { return &memRedis{data: map[string]string{}} }

func (m *memRedis) Get(_ context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (m *memRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (m *memRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *memRedis) Scan(_ context.Context, _ uint64, match string, _ int64) *redis.ScanCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

type cachedProject struct {
	Status string `json:"status"`
}

func TestCache_StaleWriteAfterInvalidationIsNeverServed(t *testing.T) {
	ctx := context.Background()
	c := &Cache{rdb: newMemRedis(), ttl: time.Minute}

	// A reader versions its key, then loads the old row from the store.
	key := c.Key(ctx, ProjectScope("p1"), ProjectCacheKey("p1"))
	require.NotEmpty(t, key)
	stale := cachedProject{Status: "open"}

	// A commit closes the project and invalidates before the reader writes back.
	c.InvalidateProjects(ctx, "p1")
	c.Set(ctx, key, stale)

	next := c.Key(ctx, ProjectScope("p1"), ProjectCacheKey("p1"))
	assert.NotEqual(t, key, next)
	var got cachedProject
	assert.False(t, c.Get(ctx, next, &got))

	c.Set(ctx, next, cachedProject{Status: "closed"})
	require.True(t, c.Get(ctx, next, &got))
	assert.Equal(t, "closed", got.Status)
}

func TestCache_InvalidationScopes(t *testing.T) {
	ctx := context.Background()
	c := &Cache{rdb: newMemRedis(), ttl: time.Minute}

	project := c.Key(ctx, ProjectScope("p1"), ProjectCacheKey("p1"))
	other := c.Key(ctx, ProjectScope("p2"), ProjectCacheKey("p2"))
	list := c.Key(ctx, ProjectListScope, ProjectListCacheKey("open"))
	history := c.Key(ctx, UserHistoryScope("u1"), UserHistoryCacheKey("u1", "page=1"))
	admin := c.Key(ctx, AdminHistoryScope, AdminHistoryCacheKey("page=1"))

	c.InvalidateProjects(ctx, "p1")
	assert.NotEqual(t, project, c.Key(ctx, ProjectScope("p1"), ProjectCacheKey("p1")))
	assert.Equal(t, other, c.Key(ctx, ProjectScope("p2"), ProjectCacheKey("p2")))
	assert.NotEqual(t, list, c.Key(ctx, ProjectListScope, ProjectListCacheKey("open")))
	assert.Equal(t, history, c.Key(ctx, UserHistoryScope("u1"), UserHistoryCacheKey("u1", "page=1")))

	c.InvalidateUser(ctx, "u1")
	assert.NotEqual(t, history, c.Key(ctx, UserHistoryScope("u1"), UserHistoryCacheKey("u1", "page=1")))
	assert.NotEqual(t, admin, c.Key(ctx, AdminHistoryScope, AdminHistoryCacheKey("page=1")))
}

func TestCache_GenerationReadFailureBypassesCache(t *testing.T) {
	ctx := context.Background()
	mem := newMemRedis()
	mem.getErr = errors.New("connection reset")
	c := &Cache{rdb: mem, ttl: time.Minute}

	key := c.Key(ctx, ProjectScope("p1"), ProjectCacheKey("p1"))
	assert.Empty(t, key)
	c.Set(ctx, key, cachedProject{Status: "open"})

	mem.mu.Lock()
	defer mem.mu.Unlock()
	assert.Empty(t, mem.data)
}
