// Package scoring provides the pure commercial scoring functions for keyword
// candidates: a log-scaled volume component and a weighted ad-value score
// combined into the total rank score.
package scoring

import (
	"math"

	"github.com/jwkoo/keytier/internal/algoconfig"
)

// Metrics are the raw commercial metrics for one keyword, as resolved from
// the volume cache or the external volume source.
type Metrics struct {
	Volume           int64
	CompetitionIndex float64
	AdDepth          int
	CPC              int64
}

// VolumeScale converts a raw monthly search volume to a [0, 100] scale.
// The log curve rewards order-of-magnitude differences rather than raw
// deltas: 100 searches → 50, 10k → 100 (capped).
func VolumeScale(volume int64) float64 {
	if volume < 1 {
		volume = 1
	}
	scaled := math.Log10(float64(volume)) * 25
	return math.Min(100, scaled)
}

// NormalizeMetric maps a raw metric to [0, 1] against its configured
// maximum, clamping both ends. A non-positive maximum yields 0.
func NormalizeMetric(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	normalized := value / max
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

// AdScore combines the four independently normalized commercial metrics into
// a single [0, 1] score using the configured weights.
func AdScore(m Metrics, w algoconfig.AdscoreWeights, maxima algoconfig.MetricMaxima) float64 {
	return w.Volume*NormalizeMetric(float64(m.Volume), maxima.Volume) +
		w.Competition*NormalizeMetric(m.CompetitionIndex, maxima.Competition) +
		w.AdDepth*NormalizeMetric(float64(m.AdDepth), maxima.AdDepth) +
		w.CPC*NormalizeMetric(float64(m.CPC), maxima.CPC)
}

// TotalScore blends the volume scale and the ad score (stretched to [0, 100])
// with the configured weights, rounded to two decimal places.
func TotalScore(volume int64, adScore float64, w algoconfig.ScoreWeights) float64 {
	total := w.Volume*VolumeScale(volume) + w.Content*(adScore*100)
	return round2(total)
}

// Score computes both scores for a candidate's metrics under one config.
// Deterministic and free of I/O.
func Score(m Metrics, cfg *algoconfig.AlgoConfig) (adScore, totalScore float64) {
	adScore = AdScore(m, cfg.AdscoreWeights, cfg.MetricMaxima)
	totalScore = TotalScore(m.Volume, adScore, cfg.ScoreWeights)
	return adScore, totalScore
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
