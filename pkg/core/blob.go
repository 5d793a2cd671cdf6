package core

import (
	"context"
	"time"
)

// BlobStore persists dataset payloads.
type BlobStore interface {
	// Upload stores data under key and returns the storage object id.
	Upload(ctx context.Context, key string, data []byte) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	// SignedURL returns a URL granting read access to key until ttl elapses.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
