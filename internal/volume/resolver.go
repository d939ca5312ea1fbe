package volume

import (
	"context"
	"log/slog"
	"time"

	"github.com/jwkoo/keytier/internal/algoconfig"
	"github.com/jwkoo/keytier/internal/keyword"
	"github.com/jwkoo/keytier/internal/scoring"
	"github.com/jwkoo/keytier/internal/stats"
)

// Resolution modes describing how much of a batch resolved with a genuine
// external signal.
const (
	// ModeSearchAds: at least 80% of requested keys carry api_ok data.
	ModeSearchAds = "searchads"
	// ModePartial: some but fewer than 80% of keys carry api_ok data.
	ModePartial = "partial"
	// ModeFallback: no key resolved non-trivially.
	ModeFallback = "fallback"
)

// searchAdsThreshold is the api_ok fraction at which a batch counts as
// fully source-backed.
const searchAdsThreshold = 0.8

// Result is the outcome of one batch resolution: the merged volume map and
// the mode tag consumed by the health side channel.
type Result struct {
	// Records maps normalized keys to their metric records. Keys that could
	// not be resolved (miss or stale with the source down) are absent.
	Records map[string]*CacheRecord
	Mode    string
}

// Resolver implements cache-first volume resolution ("pre-enrich"): fresh
// cache records are used directly, miss/stale keys go to the external source
// in one batch, and refreshed records are upserted back best-effort.
type Resolver struct {
	store     Store
	source    Source
	sideCache *RedisCache // optional
	resStats  *stats.ResolutionStats
	metrics   *PromMetrics // optional
	logger    *slog.Logger
	ttl       time.Duration

	// now is the freshness clock; replaceable in tests.
	now func() time.Time
}

// NewResolver creates a Resolver. sideCache and metrics may be nil; a
// non-positive ttl falls back to DefaultTTL.
func NewResolver(store Store, source Source, sideCache *RedisCache,
	resStats *stats.ResolutionStats, metrics *PromMetrics,
	ttl time.Duration, logger *slog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if resStats == nil {
		resStats = stats.NewResolutionStats()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:     store,
		source:    source,
		sideCache: sideCache,
		resStats:  resStats,
		metrics:   metrics,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Resolve returns a metrics record per requested text, preferring the cache.
// It never fails: a degraded or failed external call still returns whatever
// fresh cache data exists.
func (r *Resolver) Resolve(ctx context.Context, texts []string) *Result {
	// Normalize, first-seen wins on key collisions.
	keys := make([]string, 0, len(texts))
	textByKey := make(map[string]string, len(texts))
	for _, text := range texts {
		key := keyword.NormalizeKey(text)
		if key == "" {
			continue
		}
		if _, dup := textByKey[key]; dup {
			continue
		}
		textByKey[key] = text
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return &Result{Records: map[string]*CacheRecord{}, Mode: ModeFallback}
	}

	now := r.now()
	merged := make(map[string]*CacheRecord, len(keys))
	var toFetch []string

	cached := r.lookup(ctx, keys)
	for _, key := range keys {
		rec, ok := cached[key]
		switch {
		case !ok:
			r.resStats.RecordMiss(1)
			r.incLookup(OutcomeMiss)
			toFetch = append(toFetch, key)
		case rec.Fresh(now, r.ttl):
			r.resStats.RecordFresh(1)
			r.incLookup(OutcomeFresh)
			merged[key] = rec
		default:
			r.resStats.RecordStale(1)
			r.incLookup(OutcomeStale)
			toFetch = append(toFetch, key)
		}
	}

	if len(toFetch) > 0 {
		refreshed := r.refresh(ctx, toFetch, textByKey, now)
		for key, rec := range refreshed {
			merged[key] = rec
		}
	}

	return &Result{
		Records: merged,
		Mode:    r.classifyMode(keys, merged),
	}
}

// lookup reads records from the Redis side cache first, then the persistent
// store. Store read failures degrade to a full miss set.
func (r *Resolver) lookup(ctx context.Context, keys []string) map[string]*CacheRecord {
	found := make(map[string]*CacheRecord, len(keys))
	var remaining []string

	if r.sideCache != nil {
		for _, key := range keys {
			if rec := r.sideCache.Get(ctx, key); rec != nil {
				found[key] = rec
			} else {
				remaining = append(remaining, key)
			}
		}
	} else {
		remaining = keys
	}

	if len(remaining) > 0 {
		stored, err := r.store.GetMany(ctx, remaining)
		if err != nil {
			r.logger.Warn("volume cache read failed, treating keys as misses",
				"keys", len(remaining), "error", err)
		} else {
			for key, rec := range stored {
				found[key] = rec
			}
		}
	}
	return found
}

// refresh fetches miss/stale keys from the external source in one batch and
// upserts the results. A failed call returns nothing; a partial response
// yields fallback records for the absent keys so every requested keyword
// still carries a tagged record. Fallback records never count as fresh, so
// the absent keys are retried on the next run.
func (r *Resolver) refresh(ctx context.Context, fetchKeys []string,
	textByKey map[string]string, now time.Time) map[string]*CacheRecord {

	// Single-flight across concurrent runs: advisory only, a duplicate
	// external call is acceptable when the lock is unavailable.
	if r.sideCache != nil {
		release, _ := r.sideCache.TryLock(ctx, fetchKeys)
		defer release()
	}

	fetchTexts := make([]string, 0, len(fetchKeys))
	for _, key := range fetchKeys {
		fetchTexts = append(fetchTexts, textByKey[key])
	}

	start := time.Now()
	fetched, err := r.source.BatchLookup(ctx, fetchTexts)
	if r.metrics != nil {
		r.metrics.ObserveSourceDuration(time.Since(start).Seconds())
	}
	if err != nil {
		r.incSourceCall("error")
		r.logger.Warn("volume source batch failed, serving fresh cache only",
			"keys", len(fetchKeys), "error", err)
		return nil
	}
	r.incSourceCall("ok")

	records := make([]*CacheRecord, 0, len(fetchKeys))
	byKey := make(map[string]*CacheRecord, len(fetchKeys))
	for _, key := range fetchKeys {
		rec := buildRecord(textByKey[key], fetched[key], now)
		records = append(records, rec)
		byKey[key] = rec
	}
	r.resStats.RecordRefreshed(int64(len(records)))

	// Best-effort persistence: a write failure is logged, counted, and the
	// freshly fetched data is still returned to the caller.
	if _, err := r.store.UpsertMany(ctx, records); err != nil {
		r.resStats.RecordWriteFailure()
		if r.metrics != nil {
			r.metrics.IncUpsertFailure()
		}
		r.logger.Warn("volume cache upsert failed", "records", len(records), "error", err)
	}
	if r.sideCache != nil {
		r.sideCache.Set(ctx, records)
	}
	return byKey
}

// buildRecord derives a cache record from one keyword's source metrics.
// Zero-valued metrics (including keys the source omitted) produce a
// fallback-tagged record.
func buildRecord(text string, m Metrics, now time.Time) *CacheRecord {
	maxima := algoconfig.Default().MetricMaxima
	source := keyword.SourceFallback
	if m.TotalVolume != 0 || m.CompetitionIndex != 0 || m.AdDepth != 0 || m.CPC != 0 {
		source = keyword.SourceAPIOK
	}
	cpcSource := "none"
	if m.CPC > 0 {
		cpcSource = "api"
	}
	return &CacheRecord{
		Text:             text,
		RawVolume:        m.TotalVolume,
		Volume:           m.TotalVolume,
		CompetitionIndex: m.CompetitionIndex,
		CompetitionScore: scoring.NormalizeMetric(m.CompetitionIndex, maxima.Competition),
		AdDepth:          m.AdDepth,
		HasAds:           m.AdDepth > 0,
		EstimatedCPC:     m.CPC,
		CPCSource:        cpcSource,
		Source:           source,
		AdEligible:       m.AdDepth > 0,
		Score: scoring.AdScore(scoring.Metrics{
			Volume:           m.TotalVolume,
			CompetitionIndex: m.CompetitionIndex,
			AdDepth:          m.AdDepth,
			CPC:              m.CPC,
		}, algoconfig.Default().AdscoreWeights, maxima),
		UpdatedAt: now,
	}
}

// classifyMode tags the result set by the fraction of requested keys that
// resolved with a genuine external signal.
func (r *Resolver) classifyMode(keys []string, merged map[string]*CacheRecord) string {
	apiOK := 0
	for _, key := range keys {
		if rec, ok := merged[key]; ok && rec.Source == keyword.SourceAPIOK {
			apiOK++
		}
	}
	switch {
	case apiOK == 0:
		return ModeFallback
	case float64(apiOK)/float64(len(keys)) >= searchAdsThreshold:
		return ModeSearchAds
	default:
		return ModePartial
	}
}

func (r *Resolver) incLookup(outcome string) {
	if r.metrics != nil {
		r.metrics.IncLookup(outcome)
	}
}

func (r *Resolver) incSourceCall(status string) {
	if r.metrics != nil {
		r.metrics.IncSourceCall(status)
	}
}
