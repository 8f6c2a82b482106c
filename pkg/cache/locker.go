package cache

import (
	"context"
	"time"
)

// Locker is a best-effort distributed lock.
// Acquire returns ok=false when someone else holds key; the returned token
// identifies this holder and must be passed back to Release.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// NoopLocker always grants the lock; used when redis is not configured
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	return "", true, nil
}

func (NoopLocker) Release(ctx context.Context, key, token string) error {
	return nil
}
