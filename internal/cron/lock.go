package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradein-backend/pkg/instance"
)

const defaultLockTTL = 55 * time.Minute

// Lock keeps a cycle exclusive across cron worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	// Extend pushes the expiry out again. false means the lock was lost.
	Extend(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// lockStore is the slice of pkg/redis the lock needs.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ExtendIfOwner(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
}

// RedisLock is a single key lock whose value names the holding worker.
type RedisLock struct {
	client lockStore
	key    string
	ttl    time.Duration
	owner  string
}

func NewRedisLock(client lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := instance.GetID() + ":" + uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

func (l *RedisLock) Extend(ctx context.Context) (bool, error) {
	if l.owner == "" {
		return false, nil
	}
	ok, err := l.client.ExtendIfOwner(ctx, l.key, l.owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("extend %s: %w", l.key, err)
	}
	if !ok {
		l.owner = ""
	}
	return ok, nil
}

// Release is a no-op when another worker took the key over after expiry.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if _, err := l.client.ReleaseIfOwner(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	l.owner = ""
	return nil
}
