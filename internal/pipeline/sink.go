package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jwkoo/keytier/internal/tier"
)

// ResultSink persists finalized tiers. Save must be idempotent per
// (jobID, inputKeyword, blogID, postID, tierNumber, normalizedKey) so that
// re-running a job overwrites rather than duplicates.
type ResultSink interface {
	Save(ctx context.Context, jobID, inputKeyword, blogID, postID string, t tier.Tier) error
}

// PostgresSink implements ResultSink on the post_keyword_tiers table.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink creates a PostgresSink.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

// Save upserts one tier row keyed by the job/post/tier identity.
func (s *PostgresSink) Save(ctx context.Context, jobID, inputKeyword, blogID, postID string, t tier.Tier) error {
	c := t.Candidate
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_keyword_tiers
			(job_id, input_keyword, blog_id, post_id, tier_number,
			 normalized_key, text, volume, rank, score, ad_score,
			 eligible, skip_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (job_id, input_keyword, blog_id, post_id, tier_number)
		DO UPDATE SET
			normalized_key = EXCLUDED.normalized_key,
			text = EXCLUDED.text,
			volume = EXCLUDED.volume,
			rank = EXCLUDED.rank,
			score = EXCLUDED.score,
			ad_score = EXCLUDED.ad_score,
			eligible = EXCLUDED.eligible,
			skip_reason = EXCLUDED.skip_reason,
			created_at = NOW()`,
		jobID, inputKeyword, blogID, postID, t.TierNumber,
		c.NormalizedKey, c.Text, c.Volume, c.Rank, t.Score, c.AdScore,
		c.Eligible, nullable(c.SkipReason),
	)
	if err != nil {
		return fmt.Errorf("failed to save tier %d for post %s: %w", t.TierNumber, postID, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// InMemorySink is an in-memory implementation of ResultSink for testing.
type InMemorySink struct {
	mu    sync.Mutex
	saved []SavedTier

	// SaveErr, when set, is returned from every Save call.
	SaveErr error
}

// SavedTier is one recorded Save call.
type SavedTier struct {
	JobID        string
	InputKeyword string
	BlogID       string
	PostID       string
	Tier         tier.Tier
}

// NewInMemorySink creates an empty in-memory sink.
func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

// Save records the tier.
func (s *InMemorySink) Save(_ context.Context, jobID, inputKeyword, blogID, postID string, t tier.Tier) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, SavedTier{
		JobID:        jobID,
		InputKeyword: inputKeyword,
		BlogID:       blogID,
		PostID:       postID,
		Tier:         t,
	})
	return nil
}

// Saved returns a copy of all recorded tiers.
func (s *InMemorySink) Saved() []SavedTier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SavedTier(nil), s.saved...)
}
