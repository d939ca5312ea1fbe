// Package volume provides the persistent keyword-volume cache and the
// pre-enrichment resolver that fills candidate metrics from it, falling back
// to the external volume source for missing or stale keys.
package volume

import (
	"time"

	"github.com/jwkoo/keytier/internal/keyword"
)

// DefaultTTL is the freshness window for cached volume records. Search
// volume moves slowly; a month-old genuine reading beats a fresh external
// call on every run.
const DefaultTTL = 30 * 24 * time.Hour

// CacheRecord is the persistent commercial-metrics record for one keyword,
// keyed by its normalized text. It is shared process-wide and mutated only
// through the resolver's upsert path (last-write-wins).
type CacheRecord struct {
	Text             string    `cbor:"1,keyasint" json:"text"`
	RawVolume        int64     `cbor:"2,keyasint" json:"raw_volume"`
	Volume           int64     `cbor:"3,keyasint" json:"volume"`
	CompetitionIndex float64   `cbor:"4,keyasint" json:"competition_index"`
	CompetitionScore float64   `cbor:"5,keyasint" json:"competition_score"`
	AdDepth          int       `cbor:"6,keyasint" json:"ad_depth"`
	HasAds           bool      `cbor:"7,keyasint" json:"has_ads"`
	EstimatedCPC     int64     `cbor:"8,keyasint" json:"estimated_cpc"`
	CPCSource        string    `cbor:"9,keyasint" json:"cpc_source"`
	Source           string    `cbor:"10,keyasint" json:"source"`
	AdEligible       bool      `cbor:"11,keyasint" json:"ad_eligible"`
	Score            float64   `cbor:"12,keyasint" json:"score"`
	UpdatedAt        time.Time `cbor:"13,keyasint" json:"updated_at"`
}

// Key returns the normalized cache key for the record's text.
func (r *CacheRecord) Key() string {
	return keyword.NormalizeKey(r.Text)
}

// AllZero reports whether every metric in the record is zero, i.e. the
// external source returned no signal at all for this keyword.
func (r *CacheRecord) AllZero() bool {
	return r.RawVolume == 0 && r.Volume == 0 && r.CompetitionIndex == 0 &&
		r.AdDepth == 0 && r.EstimatedCPC == 0
}

// Fresh reports whether the record can be reused without an external call:
// it must carry a genuine external signal (api_ok and not all-zero) and be
// younger than the TTL. Everything else is stale and must be refreshed.
func (r *CacheRecord) Fresh(now time.Time, ttl time.Duration) bool {
	if r.Source != keyword.SourceAPIOK {
		return false
	}
	if r.AllZero() {
		return false
	}
	return now.Sub(r.UpdatedAt) < ttl
}
