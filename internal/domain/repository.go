package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching serialized extraction results
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// TextExtractor turns a binary document into text lines in physical
// reading order. Internal whitespace runs are preserved.
type TextExtractor interface {
	Extract(ctx context.Context, content []byte) (Document, error)
}
