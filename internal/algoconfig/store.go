package algoconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Config store keys.
const (
	// KeyPrimary is the store key for the active configuration.
	KeyPrimary = "primary"
	// KeyCanary is the store key for the canary variant configuration.
	KeyCanary = "canary"
)

// ErrConfigNotFound is returned when no configuration exists under a key.
var ErrConfigNotFound = errors.New("algo config not found")

// Store persists named algorithm configurations.
type Store interface {
	// Load retrieves the configuration stored under key.
	// Returns ErrConfigNotFound when the key does not exist.
	Load(ctx context.Context, key string) (*AlgoConfig, error)
	// Save stores the configuration under key, replacing any previous value.
	Save(ctx context.Context, key string, cfg *AlgoConfig) error
}

// PostgresStore implements Store on the algo_config table, holding one JSON
// document per key.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load retrieves and decodes the configuration JSON stored under key.
func (s *PostgresStore) Load(ctx context.Context, key string) (*AlgoConfig, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM algo_config WHERE config_key = $1`, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load algo config %q: %w", key, err)
	}

	var cfg AlgoConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode algo config %q: %w", key, err)
	}
	return &cfg, nil
}

// Save upserts the configuration under key.
func (s *PostgresStore) Save(ctx context.Context, key string, cfg *AlgoConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode algo config %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO algo_config (config_key, config, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (config_key)
		DO UPDATE SET config = EXCLUDED.config, updated_at = NOW()`,
		key, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save algo config %q: %w", key, err)
	}
	return nil
}

// InMemoryStore is an in-memory implementation of Store for testing.
type InMemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*AlgoConfig

	// LoadErr, when set, is returned from every Load call to simulate a
	// store outage.
	LoadErr error
	// loadCount counts Load calls for cache-behavior assertions.
	loadCount int
}

// NewInMemoryStore creates an empty in-memory config store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{configs: make(map[string]*AlgoConfig)}
}

// Load retrieves the configuration stored under key.
func (s *InMemoryStore) Load(_ context.Context, key string) (*AlgoConfig, error) {
	s.mu.Lock()
	s.loadCount++
	err := s.LoadErr
	cfg, ok := s.configs[key]
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConfigNotFound
	}
	// Return a copy to prevent external mutation
	copied := *cfg
	return &copied, nil
}

// Save stores the configuration under key.
func (s *InMemoryStore) Save(_ context.Context, key string, cfg *AlgoConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cfg
	s.configs[key] = &copied
	return nil
}

// LoadCount returns the number of Load calls observed.
func (s *InMemoryStore) LoadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadCount
}
