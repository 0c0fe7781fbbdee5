package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// jsonFile is whole-file JSON persistence for a list of T: every mutation
// rewrites the file. An in-process RWMutex serializes goroutines and a
// flock guards against a second process on the same data dir. At this
// scale (tens of entries) simplicity beats performance.
type jsonFile[T any] struct {
	path     string
	fileLock *flock.Flock
	mu       sync.RWMutex
}

func newJSONFile[T any](path string) *jsonFile[T] {
	return &jsonFile[T]{
		path:     path,
		fileLock: flock.New(path + ".lock"),
	}
}

func (s *jsonFile[T]) withLock(ctx context.Context, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	locked, err := s.fileLock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("could not acquire file lock for %s", s.path)
	}
	defer func() { _ = s.fileLock.Unlock() }()

	return fn()
}

// load reads the full list. A missing file is an empty list, not an error.
func (s *jsonFile[T]) load(ctx context.Context) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []T
	err := s.withLock(ctx, func() error {
		data, err := os.ReadFile(s.path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", s.path, err)
		}
		if len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("parse %s: %w", s.path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// mutate loads the list, applies fn, and rewrites the whole file with the
// result. fn returning an error aborts without touching the file.
func (s *jsonFile[T]) mutate(ctx context.Context, fn func(items []T) ([]T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withLock(ctx, func() error {
		var items []T
		data, err := os.ReadFile(s.path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", s.path, err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("parse %s: %w", s.path, err)
			}
		}

		items, err = fn(items)
		if err != nil {
			return err
		}
		if items == nil {
			items = []T{}
		}

		out, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return fmt.Errorf("encode %s: %w", s.path, err)
		}
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		if err := os.WriteFile(s.path, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", s.path, err)
		}
		return nil
	})
}
