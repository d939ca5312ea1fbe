// Package algoconfig provides the tiering algorithm configuration model,
// its persistent store, and a TTL-cached resolver with canary selection.
package algoconfig

import (
	"errors"
	"fmt"
	"math"
)

// Gate modes.
const (
	GateModeHard = "hard"
	GateModeSoft = "soft"
)

// MaxTiersPerPost is the hard cap on tiers regardless of configuration.
const MaxTiersPerPost = 4

// weightSumTolerance is the allowed deviation from 1.0 for weight sums.
const weightSumTolerance = 0.001

// Validation errors.
var (
	ErrScoreWeightSum   = errors.New("score weights must sum to 1.0")
	ErrAdscoreWeightSum = errors.New("adscore weights must sum to 1.0")
	ErrInvalidGateMode  = errors.New("gate mode must be hard or soft")
	ErrInvalidTierCount = errors.New("tiers per post must be between 1 and the hard cap")
	ErrInvalidRatio     = errors.New("canary ratio must be between 0 and 1")
)

// ScoreWeights blends the volume component and the commercial (content)
// component of the total score. The two weights must sum to 1.0.
type ScoreWeights struct {
	Volume  float64 `json:"volume"`
	Content float64 `json:"content"`
}

// AdscoreWeights weighs the four normalized commercial metrics. The weights
// must sum to 1.0.
type AdscoreWeights struct {
	Volume      float64 `json:"volume"`
	Competition float64 `json:"competition"`
	AdDepth     float64 `json:"ad_depth"`
	CPC         float64 `json:"cpc"`
}

// MetricMaxima are the per-metric normalization ceilings for the adscore.
// Each raw metric is divided by its maximum and clamped to [0, 1].
type MetricMaxima struct {
	Volume      float64 `json:"volume"`
	Competition float64 `json:"competition"`
	AdDepth     float64 `json:"ad_depth"`
	CPC         float64 `json:"cpc"`
}

// GateConfig controls the commercial eligibility gate.
type GateConfig struct {
	Mode      string  `json:"mode"`
	MinScore  float64 `json:"min_score"`
	MinVolume int64   `json:"min_volume"`
}

// CanaryConfig controls probabilistic substitution of an alternate config
// for a fraction of runs.
type CanaryConfig struct {
	Enabled bool    `json:"enabled"`
	Ratio   float64 `json:"ratio"`
	// KeywordFilter restricts the canary to runs whose seed keyword is in
	// the list; empty means no restriction.
	KeywordFilter []string `json:"keyword_filter"`
}

// AlgoConfig is the complete tiering algorithm configuration. It is loaded
// from the config store, cached process-wide, and replaced atomically.
type AlgoConfig struct {
	ScoreWeights   ScoreWeights   `json:"score_weights"`
	AdscoreWeights AdscoreWeights `json:"adscore_weights"`
	MetricMaxima   MetricMaxima   `json:"metric_maxima"`
	Gate           GateConfig     `json:"gate"`
	TiersPerPost   int            `json:"tiers_per_post"`
	Canary         CanaryConfig   `json:"canary"`
}

// Default returns the compiled-in configuration used when the store is
// unavailable or has never been populated.
func Default() *AlgoConfig {
	return &AlgoConfig{
		ScoreWeights: ScoreWeights{Volume: 0.7, Content: 0.3},
		AdscoreWeights: AdscoreWeights{
			Volume:      0.4,
			Competition: 0.25,
			AdDepth:     0.2,
			CPC:         0.15,
		},
		MetricMaxima: MetricMaxima{
			Volume:      100000,
			Competition: 100,
			AdDepth:     15,
			CPC:         5000,
		},
		Gate: GateConfig{
			Mode:      GateModeSoft,
			MinScore:  40.0,
			MinVolume: 100,
		},
		TiersPerPost: MaxTiersPerPost,
		Canary:       CanaryConfig{Enabled: false, Ratio: 0},
	}
}

// Validate checks weight sums, gate mode, tier count, and canary ratio.
// Returns all violations rather than stopping at the first.
func (c *AlgoConfig) Validate() []error {
	var errs []error
	if math.Abs(c.ScoreWeights.Volume+c.ScoreWeights.Content-1.0) > weightSumTolerance {
		errs = append(errs, fmt.Errorf("%w: got %.3f", ErrScoreWeightSum,
			c.ScoreWeights.Volume+c.ScoreWeights.Content))
	}
	adSum := c.AdscoreWeights.Volume + c.AdscoreWeights.Competition +
		c.AdscoreWeights.AdDepth + c.AdscoreWeights.CPC
	if math.Abs(adSum-1.0) > weightSumTolerance {
		errs = append(errs, fmt.Errorf("%w: got %.3f", ErrAdscoreWeightSum, adSum))
	}
	if c.Gate.Mode != GateModeHard && c.Gate.Mode != GateModeSoft {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidGateMode, c.Gate.Mode))
	}
	if c.TiersPerPost < 1 || c.TiersPerPost > MaxTiersPerPost {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidTierCount, c.TiersPerPost))
	}
	if c.Canary.Ratio < 0 || c.Canary.Ratio > 1 {
		errs = append(errs, fmt.Errorf("%w: got %.3f", ErrInvalidRatio, c.Canary.Ratio))
	}
	return errs
}
