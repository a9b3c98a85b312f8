// Package cache provides a small read-through cache for analytics payloads.
// The store stays authoritative; cache misses and cache errors both fall back
// to the store.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

type SummaryCache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
	Close() error
}

// Noop satisfies SummaryCache without storing anything. Used when no Redis
// address is configured.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string, dest any) error { return ErrMiss }

func (Noop) Set(ctx context.Context, key string, value any, ttl time.Duration) error { return nil }

func (Noop) Invalidate(ctx context.Context, keys ...string) error { return nil }

func (Noop) Close() error { return nil }
