package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// Cache key layout shared by handlers and invalidation
const (
	projectListPrefix  = "projects:list:"
	userHistoryPrefix  = "history:user:"
	adminHistoryPrefix = "admin:history:"
	generationPrefix   = "gen:"
)

// Invalidation scopes. Every cached entry belongs to exactly one scope.
const (
	ProjectListScope  = "projects"
	AdminHistoryScope = "history:admin"
)

// ProjectScope is the invalidation scope of a single project
func ProjectScope(id string) string { return "project:" + id }

// UserHistoryScope is the invalidation scope of a user's history pages
func UserHistoryScope(userID string) string { return "history:user:" + userID }

// ProjectCacheKey is the key of a single project
func ProjectCacheKey(id string) string { return "project:" + id }

// ProjectListCacheKey is the key of a project listing filtered by status
func ProjectListCacheKey(status string) string { return projectListPrefix + "status=" + status }

// UserHistoryCacheKey is the key of one page of a user's history
func UserHistoryCacheKey(userID, query string) string { return userHistoryPrefix + userID + ":" + query }

// AdminHistoryCacheKey is the key of one page of the admin history listing
func AdminHistoryCacheKey(query string) string { return adminHistoryPrefix + query }

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb redis.Cmdable, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb redis.Cmdable, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb redis.Cmdable, keys ...string) error {
	if len(keys) == 0 {
		return nil // Nothing to delete
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// DeleteByPrefix deletes every key starting with prefix
func DeleteByPrefix(ctx context.Context, rdb redis.Cmdable, prefix string) error {
	var keys []string                                    // Keys to delete
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator() // Walk the keyspace in batches
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()) // Collect matching key
	}
	if err := iter.Err(); err != nil {
		return err // Scan failed
	}
	return DeleteCache(ctx, rdb, keys...) // Delete collected keys
}

// Cache is the read cache used by the API. A nil client disables it.
//
// Entries are stored under a key carrying the generation of their scope.
// Invalidation bumps the generation, so a reader that loaded data before a
// commit and writes it back afterwards stores it under a key nobody reads.
type Cache struct {
	rdb redis.Cmdable // Redis client, nil when caching is off
	ttl time.Duration // Time to live of cached entries
}

// NewCache returns a cache storing entries for ttl
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	c := &Cache{ttl: ttl}
	if rdb != nil {
		c.rdb = rdb // Keep the interface nil for a nil client
	}
	return c
}

// Key returns base qualified with the current generation of scope. An empty
// key means the entry must not be cached.
func (c *Cache) Key(ctx context.Context, scope, base string) string {
	if c == nil || c.rdb == nil {
		return "" // Cache disabled
	}
	gen, err := c.rdb.Get(ctx, generationPrefix+scope).Result()
	if err == redis.Nil {
		gen = "0" // Scope never invalidated
	} else if err != nil {
		logrus.WithFields(logrus.Fields{"scope": scope, "error": err.Error()}).Warn("Cache generation read failed")
		return "" // Bypass the cache for this request
	}
	return base + "@" + gen
}

// Get loads a cached value into dest, reporting whether it was found
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.rdb == nil || key == "" {
		return false // Cache disabled
	}
	found, err := GetCache(ctx, c.rdb, key, dest)
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache read failed")
		return false // Treat errors as misses
	}
	return found
}

// Set stores value under key
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil || c.rdb == nil || key == "" {
		return // Cache disabled
	}
	if err := SetCache(ctx, c.rdb, key, value, c.ttl); err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache write failed")
	}
}

// InvalidateProjects retires the cached projects and every project listing
func (c *Cache) InvalidateProjects(ctx context.Context, ids ...string) {
	if c == nil || c.rdb == nil {
		return // Cache disabled
	}
	for _, id := range ids {
		c.bump(ctx, ProjectScope(id))
		c.logErr(DeleteByPrefix(ctx, c.rdb, ProjectCacheKey(id)+"@"), ProjectCacheKey(id))
	}
	c.bump(ctx, ProjectListScope)
	c.logErr(DeleteByPrefix(ctx, c.rdb, projectListPrefix), projectListPrefix)
}

// InvalidateUser retires the cached history pages of a user and the admin listings
func (c *Cache) InvalidateUser(ctx context.Context, userID string) {
	if c == nil || c.rdb == nil {
		return // Cache disabled
	}
	c.bump(ctx, UserHistoryScope(userID))
	c.bump(ctx, AdminHistoryScope)
	c.logErr(DeleteByPrefix(ctx, c.rdb, userHistoryPrefix+userID+":"), userHistoryPrefix+userID)
	c.logErr(DeleteByPrefix(ctx, c.rdb, adminHistoryPrefix), adminHistoryPrefix)
}

// bump moves scope to a new generation
func (c *Cache) bump(ctx context.Context, scope string) {
	c.logErr(c.rdb.Incr(ctx, generationPrefix+scope).Err(), generationPrefix+scope)
}

func (c *Cache) logErr(err error, what string) {
	if err != nil {
		// Stale entries expire with the TTL anyway
		logrus.WithFields(logrus.Fields{"keys": what, "error": err.Error()}).Warn("Cache invalidation failed")
	}
}
