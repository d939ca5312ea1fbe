package algoconfig

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Variant identifies which configuration a run was assigned.
type Variant string

const (
	// VariantPrimary is the stable configuration.
	VariantPrimary Variant = "primary"
	// VariantCanary is the alternate configuration under evaluation.
	VariantCanary Variant = "canary"
)

// Draw converts a run identity into a deterministic value in [0, 1).
// Hashing runID+keyword means a given run always lands in the same bucket,
// which keeps canary assignment reproducible across retries of the same run.
func Draw(runID, seedKeyword string) float64 {
	hash := sha256.Sum256([]byte(runID + "\x00" + seedKeyword))
	bucket := binary.BigEndian.Uint64(hash[:8])
	return float64(bucket) / float64(math.MaxUint64)
}

// PickVariant decides whether a run receives the canary configuration.
// Pure function: given the same draw value, canary config, and keyword, the
// outcome is fixed; it mutates no shared state. The draw must be in [0, 1).
func PickVariant(seedKeyword string, canary CanaryConfig, draw float64) Variant {
	if !canary.Enabled || canary.Ratio <= 0 {
		return VariantPrimary
	}
	if len(canary.KeywordFilter) > 0 && !containsKeyword(canary.KeywordFilter, seedKeyword) {
		return VariantPrimary
	}
	if draw < canary.Ratio {
		return VariantCanary
	}
	return VariantPrimary
}

func containsKeyword(filter []string, keyword string) bool {
	for _, k := range filter {
		if k == keyword {
			return true
		}
	}
	return false
}
