package match

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/weightconfig"
)

// componentTimeout is the per-C9-invocation wall-clock cap.
const componentTimeout = 30 * time.Second

// maxFailedComponents is the failure threshold past which a match is
// marked partially scored and capped at LOW confidence.
const maxFailedComponents = 2

// scoreDecimalPlaces is the fixed precision floats are rounded to at the
// persistence boundary.
const scoreDecimalPlaces = 4

// Orchestrator implements C10: gate on C8, fan out the C9 components,
// combine, derive confidence, and persist.
type Orchestrator struct {
	Objects objectstore.ObjectStore
	Matches kvstore.MatchStore
	Configs *weightconfig.Store
	Cache   Cache
	Now     func() time.Time
}

// Score runs the full match pipeline for one (opportunity, company) pair.
// tenantID resolves the effective weight configuration; weightOverrides, if
// non-nil, is merged on top of that resolved configuration for this call
// only (not persisted).
func (o *Orchestrator) Score(ctx context.Context, opp opportunity.Opportunity, company profile.CompanyProfile, tenantID string, useCache bool, weightOverrides *weightconfig.Config) (Result, error) {
	cfg, err := o.Configs.Get(ctx, tenantID)
	if err != nil {
		return Result{}, fmt.Errorf("match: resolve weights: %w", err)
	}
	if weightOverrides != nil {
		cfg = weightconfig.Merge(cfg, *weightOverrides)
	}

	key := CacheKey(opp, company, cfg.Weights)
	if useCache && o.Cache != nil {
		if cached, ok, err := o.Cache.Get(ctx, key); err == nil && ok {
			cached.Cached = true
			return cached, nil
		}
	}

	filter := QuickFilter(opp, company)
	if !filter.IsPotentialMatch {
		result := Result{
			NoticeID:     opp.NoticeID,
			CompanyID:    company.CompanyID,
			TotalScore:   0,
			Confidence:   ConfidenceNoMatch,
			MatchReasons: []string{"failed initial compatibility screening"},
			ComputedAt:   o.now(),
		}
		if err := o.persist(ctx, result); err != nil {
			return Result{}, err
		}
		return result, nil
	}

	components := o.runComponents(ctx, opp, company, cfg)

	total, renormalized := weightedTotal(components, cfg.Weights)
	failed := countFailed(components)
	partial := failed > maxFailedComponents

	cvThreshold := defaultCVThreshold
	if cfg.ConfidenceCVThreshold != nil {
		cvThreshold = *cfg.ConfidenceCVThreshold
	}
	confidence := deriveConfidence(total, components, cvThreshold)
	if cfg.MinScoreThreshold != nil && total < *cfg.MinScoreThreshold {
		confidence = ConfidenceNoMatch
	}
	if partial && confidence != ConfidenceNoMatch {
		confidence = ConfidenceLow
	}

	reasons := matchReasons(components)
	if partial {
		reasons = append(reasons, "partial_scoring")
	}
	if renormalized {
		reasons = append(reasons, "weights_renormalized")
	}

	result := Result{
		NoticeID:        opp.NoticeID,
		CompanyID:       company.CompanyID,
		TotalScore:      total,
		Confidence:      confidence,
		Components:      components,
		MatchReasons:    reasons,
		Recommendations: recommendations(components, confidence),
		ActionItems:     actionItems(components, opp, o.now()),
		PartialScoring:  partial,
		ComputedAt:      o.now(),
	}

	if err := o.persist(ctx, result); err != nil {
		return Result{}, err
	}

	if o.Cache != nil {
		ttl := 24 * time.Hour
		if cfg.CacheTTLHours != nil {
			ttl = time.Duration(*cfg.CacheTTLHours * float64(time.Hour))
		}
		_ = o.Cache.Set(ctx, key, result, ttl)
	}

	return result, nil
}

func (o *Orchestrator) runComponents(ctx context.Context, opp opportunity.Opportunity, company profile.CompanyProfile, cfg weightconfig.Config) []ComponentResult {
	type indexed struct {
		idx    int
		result ComponentResult
	}
	out := make([]ComponentResult, len(componentNames))
	var wg sync.WaitGroup
	ch := make(chan indexed, len(componentNames))

	run := func(idx int, fn func(context.Context) ComponentResult) {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, componentTimeout)
		defer cancel()
		ch <- indexed{idx: idx, result: fn(cctx)}
	}

	companyText := company.CapabilityStatement
	oppText := opp.Title + "\n" + opp.Description

	var semanticThreshold float64
	if cfg.SemanticSimilarityThreshold != nil {
		semanticThreshold = *cfg.SemanticSimilarityThreshold
	}

	wg.Add(len(componentNames))
	go run(0, func(cctx context.Context) ComponentResult {
		return scoreSemantic(cctx, o.Objects, SemanticInput{
			OpportunityMainKey:  opp.EmbeddingMetadata.SummaryKey,
			CompanyProfileKey:   company.EmbeddingMetadata.SummaryKey,
			CompanyChunkKeys:    company.EmbeddingMetadata.ChunkKeys,
			SimilarityThreshold: semanticThreshold,
		})
	})
	go run(1, func(context.Context) ComponentResult { return scoreKeyword(oppText, companyText) })
	go run(2, func(context.Context) ComponentResult { return scoreNAICS(opp.NAICSCode, company.NAICSCodes) })
	go run(3, func(context.Context) ComponentResult { return scorePastPerformance(opp, company) })
	go run(4, func(context.Context) ComponentResult { return scoreCertification(opp.SetAsideCode, company.Certifications) })
	go run(5, func(context.Context) ComponentResult { return scoreGeographic(opp, company) })
	go run(6, func(context.Context) ComponentResult { return scoreCapacity(opp, company) })
	go run(7, func(context.Context) ComponentResult { return scoreRecency(company, o.now()) })

	go func() {
		wg.Wait()
		close(ch)
	}()
	for r := range ch {
		out[r.idx] = r.result
	}
	for i, name := range componentNames {
		if out[i].Name == "" {
			out[i].Name = name
		}
	}
	return out
}

func weightedTotal(components []ComponentResult, weights weightconfig.Weights) (float64, bool) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	renormalize := sum > 0 && (sum < 0.99 || sum > 1.01)

	var total float64
	for _, c := range components {
		w := weights[c.Name]
		if renormalize {
			w /= sum
		}
		if c.Status == ComponentOK {
			total += w * c.Score
		}
	}
	return clamp01(total), renormalize
}

func countFailed(components []ComponentResult) int {
	var n int
	for _, c := range components {
		if c.Status != ComponentOK {
			n++
		}
	}
	return n
}

func matchReasons(components []ComponentResult) []string {
	var reasons []string
	for _, c := range components {
		if c.Status == ComponentOK && c.Score >= 0.7 {
			reasons = append(reasons, fmt.Sprintf("strong %s match (%.2f)", c.Name, c.Score))
		}
	}
	return reasons
}

func recommendations(components []ComponentResult, confidence Confidence) []string {
	var out []string
	for _, c := range components {
		out = append(out, c.Recommendations...)
	}
	switch confidence {
	case ConfidenceHigh:
		out = append(out, "prioritize for proposal development")
	case ConfidenceMedium:
		out = append(out, "review weak components before committing pursuit resources")
	case ConfidenceLow:
		out = append(out, "treat as a long-shot; verify capability gaps before pursuing")
	case ConfidenceNoMatch:
		out = append(out, "do not pursue without a material capability or certification change")
	}
	return out
}

func actionItems(components []ComponentResult, opp opportunity.Opportunity, now time.Time) []string {
	var items []string
	for _, c := range components {
		if c.Status == ComponentOK && c.Score < 0.5 {
			items = append(items, fmt.Sprintf("strengthen %s before bidding", c.Name))
		}
	}
	if opp.ResponseDeadline != nil {
		if days := opp.ResponseDeadline.Sub(now).Hours() / 24; days >= 0 && days <= 7 {
			items = append(items, "response deadline is within a week; prioritize go/no-go decision")
		}
	}
	return items
}

func (o *Orchestrator) persist(ctx context.Context, result Result) error {
	if o.Matches == nil {
		return nil
	}
	payload, err := json.Marshal(roundResult(result))
	if err != nil {
		return fmt.Errorf("match: marshal result: %w", err)
	}
	if err := o.Matches.Upsert(ctx, result.CompanyID, result.NoticeID, payload); err != nil {
		return fmt.Errorf("match: persist %s/%s: %w", result.CompanyID, result.NoticeID, err)
	}
	return nil
}

// roundResult converts every float64 score to a fixed-precision decimal at
// the persistence boundary.
func roundResult(r Result) Result {
	r.TotalScore = roundScore(r.TotalScore)
	components := make([]ComponentResult, len(r.Components))
	for i, c := range r.Components {
		c.Score = roundScore(c.Score)
		components[i] = c
	}
	r.Components = components
	return r
}

func roundScore(v float64) float64 {
	d := decimal.NewFromFloat(v).Round(scoreDecimalPlaces)
	f, _ := d.Float64()
	return f
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}
