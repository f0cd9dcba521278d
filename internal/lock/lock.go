// Package lock provides the per-user mutual exclusion held around every
// balance read-validate-write sequence.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the lock could not be taken before the
// context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive locks by key. The returned function releases
// the lock and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// UserKey is the lock key guarding a user's balance and deposits
func UserKey(userId string) string {
	return "lock:user:" + userId
}
