package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/security"
)

// FSStore keeps objects as files below a root directory.
type FSStore struct {
	root    string
	baseURL *url.URL
	signer  signer
	logger  *slog.Logger
}

var _ core.BlobStore = (*FSStore)(nil)

// FSOption configures an FSStore.
type FSOption interface {
	applyFS(*FSStore)
}

type fsOptionFunc func(*FSStore)

func (f fsOptionFunc) applyFS(s *FSStore) { f(s) }

// WithBaseURL sets the public prefix of signed URLs. Defaults to a file://
// URL of the root directory.
func WithBaseURL(u *url.URL) FSOption {
	return fsOptionFunc(func(s *FSStore) {
		if u != nil {
			s.baseURL = u
		}
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FSOption {
	return fsOptionFunc(func(s *FSStore) {
		if l != nil {
			s.logger = l
		}
	})
}

// NewFSStore creates the root directory if needed and returns a store that
// signs URLs with signingKey.
func NewFSStore(root string, signingKey []byte, opts ...FSOption) (*FSStore, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("blob: empty signing key")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("blob: create root: %w", err)
	}

	s := &FSStore{
		root:    abs,
		baseURL: &url.URL{Scheme: "file", Path: filepath.ToSlash(abs) + "/"},
		signer:  signer{key: signingKey, now: time.Now},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt.applyFS(s)
	}
	return s, nil
}

func (s *FSStore) path(key string) (string, error) {
	if err := security.ValidateObjectKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Upload writes data under key. The file is renamed into place so readers
// never see a partial object.
func (s *FSStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return "", fmt.Errorf("blob: create dir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("blob: create temp for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("blob: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blob: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", fmt.Errorf("blob: commit %s: %w", key, err)
	}

	objectID := uuid.NewString()
	s.logger.Debug("blob stored", "key", key, "object_id", objectID, "bytes", len(data))
	return objectID, nil
}

// Download reads the object under key.
func (s *FSStore) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("blob: read %s: %w", key, err)
	}
	return data, nil
}

// SignedURL returns a URL for key that Verify accepts until ttl elapses.
func (s *FSStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	u := s.baseURL.JoinPath(strings.Split(key, "/")...)
	u.RawQuery = s.signer.query(key, ttl).Encode()
	return u.String(), nil
}

// Verify checks the signature carried by a URL issued by SignedURL and
// returns the object key it grants.
func (s *FSStore) Verify(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrBadSignature
	}
	prefix := s.baseURL.EscapedPath()
	escaped := u.EscapedPath()
	if !strings.HasPrefix(escaped, prefix) {
		return "", ErrBadSignature
	}
	key, err := url.PathUnescape(strings.TrimPrefix(escaped, prefix))
	if err != nil {
		return "", ErrBadSignature
	}
	if err := s.signer.verify(key, u.Query()); err != nil {
		return "", err
	}
	return key, nil
}
