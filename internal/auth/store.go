package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/social-security/patient-office/internal/shared/metrics"
)

// ErrNoRecord is returned by Store.Load when nothing is persisted.
var ErrNoRecord = errors.New("no session record")

// Store persists the single current-user record.
type Store interface {
	// Load returns the raw record or ErrNoRecord.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the record.
	Save(ctx context.Context, data []byte) error
	// Clear removes the record. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// HealthChecker is implemented by stores backed by an external system.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// StoreHealth reports the health of s, or nil when s cannot be checked.
func StoreHealth(ctx context.Context, s Store) error {
	if hc, ok := s.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNoRecord
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemoryStore) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte{}, data...)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

// FileStore keeps the record in a single file under a directory.
type FileStore struct {
	dir  string
	path string
}

// NewFileStore stores the record for key as <dir>/<key>.json.
func NewFileStore(dir, key string) (*FileStore, error) {
	if key == "" || key != filepath.Base(key) {
		return nil, fmt.Errorf("invalid session key %q", key)
	}
	return &FileStore{dir: dir, path: filepath.Join(dir, key+".json")}, nil
}

// Path returns the record's file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return data, nil
}

// Save writes to a temp file and renames it over the record so a crash
// never leaves a half-written file behind.
func (s *FileStore) Save(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to chmod session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Health checks that the session directory is usable.
func (s *FileStore) Health(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		// Created on first save.
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

// instrumentedStore times every operation of the wrapped store.
type instrumentedStore struct {
	Store
	backend string
}

// Instrument wraps s so its operations are recorded under backend.
func Instrument(s Store, backend string) Store {
	return &instrumentedStore{Store: s, backend: backend}
}

func (s *instrumentedStore) Load(ctx context.Context) ([]byte, error) {
	defer s.observe("load", time.Now())
	return s.Store.Load(ctx)
}

func (s *instrumentedStore) Save(ctx context.Context, data []byte) error {
	defer s.observe("save", time.Now())
	return s.Store.Save(ctx, data)
}

func (s *instrumentedStore) Clear(ctx context.Context) error {
	defer s.observe("clear", time.Now())
	return s.Store.Clear(ctx)
}

func (s *instrumentedStore) Health(ctx context.Context) error {
	return StoreHealth(ctx, s.Store)
}

func (s *instrumentedStore) observe(op string, start time.Time) {
	metrics.RecordStoreOperation(s.backend, op, time.Since(start))
}
