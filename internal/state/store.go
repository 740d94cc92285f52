// Package state persists the last observed fleet rendering between runs.
package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// DefaultPath is where the file store keeps its baseline by default
const DefaultPath = "/tmp/monitor-state.txt"

// Store loads and saves the baseline rendering.
// Load never fails: an unreadable baseline is reported as absent.
type Store interface {
	Load(ctx context.Context) (string, bool)
	Save(ctx context.Context, rendering string) error
}

// FileStore keeps the baseline in a local file
type FileStore struct {
	logger *zap.Logger
	path   string
}

// NewFileStore creates a file-backed store at path
func NewFileStore(logger *zap.Logger, path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{logger: logger, path: path}
}

// Path returns the file the store reads and writes
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the baseline file
func (f *FileStore) Load(_ context.Context) (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("Failed to read state file, treating as no baseline",
				zap.String("path", f.path),
				zap.Error(err))
		}
		return "", false
	}
	return string(data), true
}

// Save overwrites the baseline file
func (f *FileStore) Save(_ context.Context, rendering string) error {
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open state file %s: %w", f.path, err)
	}

	if _, err := file.WriteString(rendering); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write state file %s: %w", f.path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close state file %s: %w", f.path, err)
	}

	f.logger.Debug("Saved fleet baseline", zap.String("path", f.path), zap.Int("bytes", len(rendering)))
	return nil
}

// MemoryStore keeps the baseline in memory. Used for dry runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	value   string
	present bool
	saves   int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates an in-memory store holding an existing baseline
func NewMemoryStoreWith(rendering string) *MemoryStore {
	return &MemoryStore{value: rendering, present: true}
}

// Load returns the stored baseline
func (m *MemoryStore) Load(_ context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, m.present
}

// Save replaces the stored baseline
func (m *MemoryStore) Save(_ context.Context, rendering string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = rendering
	m.present = true
	m.saves++
	return nil
}

// Saves returns how many times Save was called
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
