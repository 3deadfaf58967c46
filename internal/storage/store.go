package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Well-known blob keys.
const (
	KeyDevices = "devices"
	KeyUsers   = "users"
)

// Sentinel errors shared by all registry persistence paths.
var (
	// ErrNotFound means no value has ever been saved under the key.
	ErrNotFound = errors.New("no stored value for key")

	// ErrPersistence marks a failed durable write. The in-memory mutation
	// that triggered the write is NOT rolled back; callers must surface
	// this to their own callers rather than mask it.
	ErrPersistence = errors.New("persistence failure")

	// ErrCorrupt marks stored content that fails to parse. Registries
	// treat it like absence (default synthesis) but log it distinctly.
	ErrCorrupt = errors.New("stored content is corrupt")
)

// Store is the durable key-value contract consumed by the registries.
type Store interface {
	// Load returns the blob saved under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save durably replaces the blob under key.
	Save(ctx context.Context, key string, data []byte) error
}

// SQLite implements Store over the registry_blobs table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed store. The registry_blobs table must
// exist (created by the initial schema migration).
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Load implements Store.
func (s *SQLite) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM registry_blobs WHERE key = ?", key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading blob %q: %w", key, err)
	}
	return data, nil
}

// Save implements Store.
func (s *SQLite) Save(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registry_blobs (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, now,
	)
	if err != nil {
		return fmt.Errorf("saving blob %q: %w", key, err)
	}
	return nil
}

// Memory is an in-process Store for tests and development.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// FailSaves forces every Save to fail, for exercising the
	// persistence-failure paths of the registries.
	FailSaves bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Load implements Store.
func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves {
		return fmt.Errorf("memory store: save disabled")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[key] = cp
	return nil
}

// Put seeds a blob directly, bypassing FailSaves. Test helper.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
}
