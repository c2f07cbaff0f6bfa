package captcha

import (
	"context"
	"time"
)

// Entry is a stored challenge answer or validation token.
type Entry struct {
	Answer    string
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer usable at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store holds challenge sessions and validation tokens. Take operations are
// atomic read-then-delete: of two concurrent Takes on one key, at most one
// observes the entry. Put receives the lifetime the caller computed with its
// own clock; stores with native expiry use it instead of e.ExpiresAt.
type Store interface {
	PutSession(ctx context.Context, id string, e Entry, ttl time.Duration) error
	TakeSession(ctx context.Context, id string) (Entry, bool, error)
	PutToken(ctx context.Context, token string, e Entry, ttl time.Duration) error
	TakeToken(ctx context.Context, token string) (Entry, bool, error)
	// Purge drops entries expired at now and returns how many were removed.
	Purge(ctx context.Context, now time.Time) (int, error)
	Clear(ctx context.Context) error
}
