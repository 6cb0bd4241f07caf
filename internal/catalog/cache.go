package catalog

import (
	"context"
	"errors"
)

// Cache stores JSON-encodable catalog reads.
type Cache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache never holds anything. It is used when no Redis address is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) error   { return ErrCacheMiss }
func (NopCache) Set(context.Context, string, any) error   { return nil }
func (NopCache) Delete(context.Context, ...string) error { return nil }
