// Package file stores sequence counters as one small file per destination.
package file

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/ports/repository"
)

var _ repository.CounterStore = (*CounterStore)(nil)

const suffix = ".counter"

// CounterStore writes each new value to a temp file, fsyncs it and renames it
// over the previous one, so a crash leaves either the old or the new value.
// Only one process may use a directory.
type CounterStore struct {
	dir string
	log *zerolog.Logger

	mu sync.Mutex
}

func NewCounterStore(dir string, logger *zerolog.Logger) (*CounterStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create counter directory %s: %w", dir, err)
	}
	l := logger.With().Str("component", "FileCounterStore").Str("dir", dir).Logger()
	return &CounterStore{dir: dir, log: &l}, nil
}

func (s *CounterStore) path(destinationID string) string {
	return filepath.Join(s.dir, url.PathEscape(destinationID)+suffix)
}

func (s *CounterStore) read(destinationID string) (int64, error) {
	b, err := os.ReadFile(s.path(destinationID))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt counter file for %s: %w", destinationID, err)
	}
	return n, nil
}

func (s *CounterStore) write(destinationID string, value int64) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strconv.FormatInt(value, 10) + "\n"); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(destinationID)); err != nil {
		return err
	}
	// persist the rename itself
	if d, err := os.Open(s.dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

func (s *CounterStore) Increment(ctx context.Context, destinationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.read(destinationID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	next := cur + 1
	if err := s.write(destinationID, next); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return next, nil
}

func (s *CounterStore) LoadAll(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	out := make(map[string]int64)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		dest, err := url.PathUnescape(strings.TrimSuffix(name, suffix))
		if err != nil {
			s.log.Warn().Str("file", name).Msg("skipping counter file with undecodable name")
			continue
		}
		n, err := s.read(dest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		out[dest] = n
	}
	return out, nil
}

func (s *CounterStore) Set(ctx context.Context, destinationID string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.read(destinationID)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if value < cur {
		return domain.ErrCounterRegress
	}
	if err := s.write(destinationID, value); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}
