// Package rank verifies the live search position of selected tier
// candidates against the external rank lookup service.
package rank

import (
	"context"
	"log/slog"
	"time"

	"github.com/jwkoo/keytier/internal/keyword"
	"github.com/jwkoo/keytier/internal/tier"
)

// DefaultLookupTimeout bounds one rank lookup call.
const DefaultLookupTimeout = 15 * time.Second

// Lookup is the external rank lookup service. A nil position means the
// target was not found within the service's scan window.
type Lookup interface {
	LookupRank(ctx context.Context, keyword, targetID string) (*int, error)
}

// Verifier annotates tier candidates with their live search rank.
type Verifier struct {
	lookup  Lookup
	timeout time.Duration
	logger  *slog.Logger
}

// NewVerifier creates a Verifier. A non-positive timeout falls back to
// DefaultLookupTimeout.
func NewVerifier(lookup Lookup, timeout time.Duration, logger *slog.Logger) *Verifier {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{lookup: lookup, timeout: timeout, logger: logger}
}

// Verify looks up the rank for each tier's candidate and records it on the
// candidate. Candidates kept by the soft gate (rank already forced to the
// not-applicable sentinel) are skipped. A per-candidate failure records a
// nil rank and never affects sibling candidates.
func (v *Verifier) Verify(ctx context.Context, tiers []tier.Tier, targetID string) {
	for _, t := range tiers {
		c := t.Candidate
		if c.Rank != nil && *c.Rank == keyword.RankNotApplicable {
			continue
		}

		lookupCtx, cancel := context.WithTimeout(ctx, v.timeout)
		pos, err := v.lookup.LookupRank(lookupCtx, c.Text, targetID)
		cancel()
		if err != nil {
			v.logger.Warn("rank lookup failed",
				"keyword", c.Text,
				"target", targetID,
				"error", err)
			c.Rank = nil
			continue
		}
		c.Rank = pos
	}
}
