package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwkoo/keytier/internal/algoconfig"
	"github.com/jwkoo/keytier/internal/gate"
	"github.com/jwkoo/keytier/internal/keyword"
	"github.com/jwkoo/keytier/internal/rank"
	"github.com/jwkoo/keytier/internal/scoring"
	"github.com/jwkoo/keytier/internal/tier"
	"github.com/jwkoo/keytier/internal/tracing"
	"github.com/jwkoo/keytier/internal/volume"
)

// ErrNoCandidates is returned when a title yields no usable tokens and no
// seed keyword was provided to fall back on.
var ErrNoCandidates = errors.New("no candidates: title yielded no tokens and no seed keyword given")

// reasonSeedFallback marks a tier built from the raw seed keyword because
// extraction or base selection produced nothing usable.
const reasonSeedFallback = "seed_fallback"

// Request identifies one tiering run: a blog post and the seed keyword the
// post targets.
type Request struct {
	JobID   string
	BlogID  string
	PostID  string
	Title   string
	Keyword string
}

// RunStats summarizes what happened during a run, for operators and tests.
type RunStats struct {
	CandidatesGenerated int `json:"candidates_generated"`
	PreEnriched         int `json:"pre_enriched"`
	GateFiltered        int `json:"gate_filtered"`
	TiersAutoFilled     int `json:"tiers_auto_filled"`
	PersistFailures     int `json:"persist_failures"`
}

// Result is the final output of a run. A run always either returns a
// non-empty tier list or an error; a degraded run (source down, persist
// failures) still produces tiers.
type Result struct {
	RunID   string             `json:"run_id"`
	Variant algoconfig.Variant `json:"variant"`
	Mode    string             `json:"mode"`
	Tiers   []tier.View        `json:"tiers"`
	Stats   RunStats           `json:"stats"`
}

// Pipeline orchestrates the tiering stages for one post: extract, enrich,
// score, gate, select, verify, auto-fill, persist.
type Pipeline struct {
	extractor *keyword.Extractor
	volumes   *volume.Resolver
	verifier  *rank.Verifier
	configs   *algoconfig.Resolver
	sink      ResultSink
	metrics   *Metrics // optional
	logger    *slog.Logger
}

// New creates a Pipeline. metrics may be nil.
func New(extractor *keyword.Extractor, volumes *volume.Resolver,
	verifier *rank.Verifier, configs *algoconfig.Resolver,
	sink ResultSink, metrics *Metrics, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		volumes:   volumes,
		verifier:  verifier,
		configs:   configs,
		sink:      sink,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run executes the full tiering pipeline for one request. External failures
// degrade the result instead of failing it; the only error paths are a run
// with nothing to tier and context cancellation. On cancellation nothing is
// persisted.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := p.logger.With("run_id", runID, "job_id", req.JobID, "post_id", req.PostID)

	cfg, variant := p.resolveConfig(ctx, runID, req.Keyword)
	if variant == algoconfig.VariantCanary {
		log.Info("canary config selected", "keyword", req.Keyword)
	}

	var st RunStats
	seed := strings.TrimSpace(req.Keyword)

	_, endExtract := tracing.StartStageSpan(ctx, runID, "extract")
	tokens := p.extractor.Extract(req.Title)
	endExtract(nil)

	if len(tokens) == 0 {
		if seed == "" {
			p.observe(StatusFailed, start, 0)
			return nil, ErrNoCandidates
		}
		log.Warn("title yielded no tokens, falling back to seed keyword", "title", req.Title)
		return p.seedOnlyRun(ctx, runID, req, seed, volume.ModeFallback, variant, &st, start, log)
	}

	unigrams := keyword.BuildUnigrams(tokens)
	st.CandidatesGenerated += len(unigrams)

	mode := p.enrich(ctx, runID, "enrich_unigrams", unigrams, cfg, &st)
	if err := p.cancelled(ctx, start); err != nil {
		return nil, err
	}

	// Token scores feed bigram ordering; computed before the gate so every
	// token contributes, eligible or not.
	tokenScores := make(map[string]float64, len(unigrams))
	for _, c := range unigrams {
		tokenScores[c.Text] = c.TotalScore
	}

	ev := gate.NewEvaluator(cfg.Gate, log)
	eligibleUni := ev.Apply(unigrams)
	st.GateFiltered += len(unigrams) - len(eligibleUni)

	selector := tier.NewSelector(cfg.TiersPerPost)
	base := selector.SelectBase(eligibleUni)
	if base == nil {
		if seed != "" {
			log.Warn("no eligible base unigram, falling back to seed keyword")
			return p.seedOnlyRun(ctx, runID, req, seed, mode, variant, &st, start, log)
		}
		base = bestByScore(eligibleUni)
		if base == nil {
			p.observe(StatusFailed, start, 0)
			return nil, ErrNoCandidates
		}
	}

	bigrams := keyword.BuildBigrams(base.Text, tokens)
	st.CandidatesGenerated += len(bigrams)

	bigramMode := p.enrich(ctx, runID, "enrich_bigrams", bigrams, cfg, &st)
	mode = worseMode(mode, bigramMode)
	if err := p.cancelled(ctx, start); err != nil {
		return nil, err
	}

	eligibleBig := ev.Apply(bigrams)
	st.GateFiltered += len(bigrams) - len(eligibleBig)

	tiers := selector.Select(base, eligibleBig, tokenScores)

	vctx, endVerify := tracing.StartStageSpan(ctx, runID, "verify_ranks")
	p.verifier.Verify(vctx, tiers, req.BlogID)
	endVerify(nil)
	if err := p.cancelled(ctx, start); err != nil {
		return nil, err
	}

	pool := make([]*keyword.Candidate, 0, len(eligibleUni)+len(eligibleBig))
	pool = append(pool, eligibleUni...)
	pool = append(pool, eligibleBig...)
	var added int
	tiers, added = tier.AutoFill(tiers, pool, cfg.TiersPerPost)
	st.TiersAutoFilled = added
	if added > 0 {
		// Auto-filled tiers get their ranks verified in a second pass.
		p.verifier.Verify(ctx, tiers[len(tiers)-added:], req.BlogID)
	}

	return p.finish(ctx, runID, req, tiers, mode, variant, &st, start, log)
}

// seedOnlyRun produces the single emergency tier from the seed keyword.
// Volume stays unset; the rank is still verified and the tier persisted.
func (p *Pipeline) seedOnlyRun(ctx context.Context, runID string, req Request,
	seed, mode string, variant algoconfig.Variant, st *RunStats,
	start time.Time, log *slog.Logger) (*Result, error) {

	c := keyword.NewSeedCandidate(seed)
	c.Eligible = true
	c.SkipReason = reasonSeedFallback
	c.Source = keyword.SourceFallback
	st.CandidatesGenerated++

	tiers := []tier.Tier{{TierNumber: 1, Candidate: c, Score: c.TotalScore}}

	sctx, end := tracing.StartStageSpan(ctx, runID, "verify_ranks")
	p.verifier.Verify(sctx, tiers, req.BlogID)
	end(nil)
	if err := p.cancelled(ctx, start); err != nil {
		return nil, err
	}

	return p.finish(ctx, runID, req, tiers, mode, variant, st, start, log)
}

// finish persists the tiers, records run metrics, and assembles the result.
// Persist failures degrade the run; they never abort it.
func (p *Pipeline) finish(ctx context.Context, runID string, req Request,
	tiers []tier.Tier, mode string, variant algoconfig.Variant,
	st *RunStats, start time.Time, log *slog.Logger) (*Result, error) {

	sctx, end := tracing.StartStageSpan(ctx, runID, "persist")
	for _, t := range tiers {
		if err := p.sink.Save(sctx, req.JobID, req.Keyword, req.BlogID, req.PostID, t); err != nil {
			log.Error("tier persist failed",
				"tier", t.TierNumber,
				"keyword", t.Candidate.Text,
				"error", err)
			st.PersistFailures++
			if p.metrics != nil {
				p.metrics.IncPersistFailure()
			}
		}
	}
	end(nil)

	views := make([]tier.View, len(tiers))
	for i, t := range tiers {
		views[i] = tier.NewView(t)
	}

	status := StatusCompleted
	if mode != volume.ModeSearchAds || st.PersistFailures > 0 {
		status = StatusDegraded
	}
	p.observe(status, start, len(tiers))

	log.Info("tiering run finished",
		"status", status,
		"mode", mode,
		"variant", string(variant),
		"tiers", len(tiers),
		"gate_filtered", st.GateFiltered,
		"auto_filled", st.TiersAutoFilled,
		"persist_failures", st.PersistFailures,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		RunID:   runID,
		Variant: variant,
		Mode:    mode,
		Tiers:   views,
		Stats:   *st,
	}, nil
}

// enrich resolves volumes for the candidates in one batch and scores each
// candidate that got a record. Candidates without a record keep zero metrics
// and the fallback source tag.
func (p *Pipeline) enrich(ctx context.Context, runID, stage string,
	cands []*keyword.Candidate, cfg *algoconfig.AlgoConfig, st *RunStats) string {

	if len(cands) == 0 {
		return volume.ModeSearchAds
	}

	sctx, end := tracing.StartStageSpan(ctx, runID, stage)
	defer end(nil)

	texts := make([]string, len(cands))
	for i, c := range cands {
		texts[i] = c.Text
	}
	res := p.volumes.Resolve(sctx, texts)

	for _, c := range cands {
		rec, ok := res.Records[c.NormalizedKey]
		if !ok {
			c.Source = keyword.SourceFallback
			continue
		}
		st.PreEnriched++
		c.Volume = rec.Volume
		c.CompetitionScore = rec.CompetitionScore
		c.AdDepth = rec.AdDepth
		c.CPC = rec.EstimatedCPC
		c.Source = rec.Source
		c.AdEligible = rec.AdEligible
		c.AdScore, c.TotalScore = scoring.Score(scoring.Metrics{
			Volume:           rec.Volume,
			CompetitionIndex: rec.CompetitionIndex,
			AdDepth:          rec.AdDepth,
			CPC:              rec.EstimatedCPC,
		}, cfg)
	}
	return res.Mode
}

// resolveConfig picks the config for this run, substituting the canary
// variant when the deterministic draw lands inside the canary cohort.
func (p *Pipeline) resolveConfig(ctx context.Context, runID, seedKeyword string) (*algoconfig.AlgoConfig, algoconfig.Variant) {
	cfg := p.configs.Get(ctx)
	if algoconfig.PickVariant(seedKeyword, cfg.Canary, algoconfig.Draw(runID, seedKeyword)) == algoconfig.VariantCanary {
		if alt := p.configs.GetVariant(ctx); alt != nil {
			return alt, algoconfig.VariantCanary
		}
	}
	return cfg, algoconfig.VariantPrimary
}

// cancelled reports context cancellation, recording the aborted run. Partial
// results are discarded; nothing has been persisted yet at any call site.
func (p *Pipeline) cancelled(ctx context.Context, start time.Time) error {
	if err := ctx.Err(); err != nil {
		p.observe(StatusCancelled, start, 0)
		return err
	}
	return nil
}

func (p *Pipeline) observe(status string, start time.Time, tiers int) {
	if p.metrics != nil {
		p.metrics.ObserveRun(status, time.Since(start).Seconds(), tiers)
	}
}

func bestByScore(cands []*keyword.Candidate) *keyword.Candidate {
	var best *keyword.Candidate
	for _, c := range cands {
		if best == nil || c.TotalScore > best.TotalScore {
			best = c
		}
	}
	return best
}

// worseMode merges the modes of two resolution batches, keeping the more
// degraded one.
func worseMode(a, b string) string {
	if modeRank(b) > modeRank(a) {
		return b
	}
	return a
}

func modeRank(m string) int {
	switch m {
	case volume.ModeFallback:
		return 2
	case volume.ModePartial:
		return 1
	default:
		return 0
	}
}
