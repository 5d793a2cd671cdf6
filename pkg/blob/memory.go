package blob

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/security"
)

// MemoryStore keeps objects in memory. It is meant for tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	uploads int
	signer  signer
}

var _ core.BlobStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		signer:  signer{key: []byte(uuid.NewString()), now: time.Now},
	}
}

func (m *MemoryStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := security.ValidateObjectKey(key); err != nil {
		return "", err
	}
	cp := append([]byte(nil), data...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = cp
	m.uploads++
	return uuid.NewString(), nil
}

func (m *MemoryStore) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	u := url.URL{Scheme: "mem", Opaque: key, RawQuery: m.signer.query(key, ttl).Encode()}
	return u.String(), nil
}

// Uploads reports how many Upload calls succeeded.
func (m *MemoryStore) Uploads() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uploads
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
