// Package lock serializes writers that touch the same users or projects.
package lock

import (
	"context" // Request scoped cancellation
	"errors"  // Error inspection
	"sort"    // Key ordering
)

// ErrTimeout is returned when the keys could not be acquired before the context ended.
var ErrTimeout = errors.New("lock: wait for keys timed out")

// Unlock releases every key taken by one Acquire call. Calling it twice is a no-op.
type Unlock func()

// Locker grants exclusive ownership of a set of keys. Keys are taken in sorted
// order so that two callers asking for overlapping sets can never deadlock.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Unlock, error)
}

// ProjectKey names the lock guarding a project's raised amount and status.
func ProjectKey(id string) string { return "project:" + id }

// UserKey names the lock guarding a user's wallet.
func UserKey(id string) string { return "user:" + id }

func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
