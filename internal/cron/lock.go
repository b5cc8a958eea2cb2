package cron

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	lockName       = "billing-worker"
	defaultLockTTL = 2 * time.Hour
)

// Lock coordinates exclusive worker runs across instances.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// lockStore is the subset of the redis client the lock needs.
type lockStore interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// RedisLock implements Lock using a redis SETNX key with a TTL. The TTL
// bounds how long a crashed worker can block its replacement.
type RedisLock struct {
	store lockStore
	name  string
	ttl   time.Duration
	held  bool
}

// NewRedisLock constructs a redis-backed worker lock.
func NewRedisLock(store lockStore, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, name: lockName, ttl: ttl}, nil
}

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.store.AcquireLock(ctx, l.name, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	l.held = ok
	return ok, nil
}

// Release frees the lock if this instance holds it.
func (l *RedisLock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	if err := l.store.ReleaseLock(ctx, l.name); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.held = false
	return nil
}
