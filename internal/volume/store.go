package volume

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
)

// ErrRecordNotFound is returned when no cache record exists for a key.
var ErrRecordNotFound = errors.New("volume cache record not found")

// Store persists keyword volume records keyed by normalized text.
type Store interface {
	// Get retrieves one record. Returns ErrRecordNotFound on a miss.
	Get(ctx context.Context, key string) (*CacheRecord, error)
	// GetMany retrieves records for the given keys, omitting misses.
	GetMany(ctx context.Context, keys []string) (map[string]*CacheRecord, error)
	// UpsertMany inserts or updates records keyed by normalized text,
	// returning the number of records written.
	UpsertMany(ctx context.Context, records []*CacheRecord) (int, error)
	// DeleteOlderThan removes records not updated within the duration,
	// returning the number deleted.
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// PostgresStore implements Store on the keyword_volume_cache table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const cacheColumns = `cache_key, text, raw_volume, volume, competition_index,
	competition_score, ad_depth, has_ads, estimated_cpc, cpc_source,
	source, ad_eligible, score, updated_at`

// Get retrieves one record by normalized key.
func (s *PostgresStore) Get(ctx context.Context, key string) (*CacheRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+cacheColumns+` FROM keyword_volume_cache WHERE cache_key = $1`, key)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get volume record %q: %w", key, err)
	}
	return rec, nil
}

// GetMany retrieves records for all keys in one query; missing keys are
// simply absent from the returned map.
func (s *PostgresStore) GetMany(ctx context.Context, keys []string) (map[string]*CacheRecord, error) {
	if len(keys) == 0 {
		return map[string]*CacheRecord{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+cacheColumns+` FROM keyword_volume_cache WHERE cache_key = ANY($1)`,
		pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to get volume records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*CacheRecord, len(keys))
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan volume record: %w", err)
		}
		records[rec.Key()] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read volume records: %w", err)
	}
	return records, nil
}

// UpsertMany writes records with insert-or-update semantics keyed by the
// normalized text. Last write wins; concurrent runs racing on the same
// keyword are acceptable because volume data is eventually consistent.
func (s *PostgresStore) UpsertMany(ctx context.Context, records []*CacheRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO keyword_volume_cache (`+cacheColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (cache_key) DO UPDATE SET
			text = EXCLUDED.text,
			raw_volume = EXCLUDED.raw_volume,
			volume = EXCLUDED.volume,
			competition_index = EXCLUDED.competition_index,
			competition_score = EXCLUDED.competition_score,
			ad_depth = EXCLUDED.ad_depth,
			has_ads = EXCLUDED.has_ads,
			estimated_cpc = EXCLUDED.estimated_cpc,
			cpc_source = EXCLUDED.cpc_source,
			source = EXCLUDED.source,
			ad_eligible = EXCLUDED.ad_eligible,
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.Key(), rec.Text, rec.RawVolume, rec.Volume,
			rec.CompetitionIndex, rec.CompetitionScore, rec.AdDepth,
			rec.HasAds, rec.EstimatedCPC, rec.CPCSource,
			rec.Source, rec.AdEligible, rec.Score, rec.UpdatedAt,
		); err != nil {
			return count, fmt.Errorf("failed to upsert volume record %q: %w", rec.Text, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return count, nil
}

// DeleteOlderThan purges records long past their freshness window.
func (s *PostgresStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM keyword_volume_cache WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale volume records: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted volume records: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*CacheRecord, error) {
	var rec CacheRecord
	var key string
	err := row.Scan(&key, &rec.Text, &rec.RawVolume, &rec.Volume,
		&rec.CompetitionIndex, &rec.CompetitionScore, &rec.AdDepth,
		&rec.HasAds, &rec.EstimatedCPC, &rec.CPCSource,
		&rec.Source, &rec.AdEligible, &rec.Score, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InMemoryStore is an in-memory implementation of Store for testing.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*CacheRecord

	// UpsertErr, when set, is returned from UpsertMany to simulate write
	// failures.
	UpsertErr error
}

// NewInMemoryStore creates an empty in-memory volume store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*CacheRecord)}
}

// Get retrieves one record by key.
func (s *InMemoryStore) Get(_ context.Context, key string) (*CacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, ErrRecordNotFound
	}
	copied := *rec
	return &copied, nil
}

// GetMany retrieves records for the given keys, omitting misses.
func (s *InMemoryStore) GetMany(_ context.Context, keys []string) (map[string]*CacheRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*CacheRecord, len(keys))
	for _, key := range keys {
		if rec, ok := s.records[key]; ok {
			copied := *rec
			out[key] = &copied
		}
	}
	return out, nil
}

// UpsertMany inserts or updates records keyed by normalized text.
func (s *InMemoryStore) UpsertMany(_ context.Context, records []*CacheRecord) (int, error) {
	if s.UpsertErr != nil {
		return 0, s.UpsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		copied := *rec
		s.records[rec.Key()] = &copied
	}
	return len(records), nil
}

// DeleteOlderThan removes records not updated within the duration.
func (s *InMemoryStore) DeleteOlderThan(_ context.Context, age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-age)
	var deleted int64
	for key, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// Seed stores a record directly, bypassing the resolver (for tests).
func (s *InMemoryStore) Seed(rec *CacheRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rec
	s.records[rec.Key()] = &copied
}
