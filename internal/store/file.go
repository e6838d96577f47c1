package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 25 * time.Millisecond

// FileStore implements Store with one JSON document per key under a state
// directory. A file lock serializes writers so concurrent client processes
// cannot interleave partial writes.
type FileStore struct {
	dir  string
	lock *flock.Flock
}

// NewFileStore prepares the state directory and its lock file.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("file store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

// Get reads the value stored for the key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire state lock: %w", err)
	}
	if !locked {
		return nil, errors.New("acquire state lock: not granted")
	}
	defer s.lock.Unlock()

	value, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state entry %s: %w", key, err)
	}
	return value, nil
}

// Set writes the value through a temp file so readers never observe a torn
// entry.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !locked {
		return errors.New("acquire state lock: not granted")
	}
	defer s.lock.Unlock()

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("write state entry %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit state entry %s: %w", key, err)
	}
	return nil
}

// Delete removes the entry for the key. Deleting a missing key is a no-op.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}
	if !locked {
		return errors.New("acquire state lock: not granted")
	}
	defer s.lock.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete state entry %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) path(key string) string {
	// Keys use a "video-share:name" convention; keep the filesystem flat.
	name := strings.NewReplacer(":", "_", "/", "_").Replace(key)
	return filepath.Join(s.dir, name+".json")
}
