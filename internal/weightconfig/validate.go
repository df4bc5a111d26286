package weightconfig

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const weightSumTolerance = 0.01

// Validate enforces the full Config invariant set: struct-level tag
// validation via validator/v10 for the numeric ranges, plus the two
// cross-field invariants a tag alone can't express (weight-sum-to-1 and
// low<=medium<=high confidence ordering).
func Validate(cfg Config) error {
	if cfg.ConfidenceLevels != nil {
		if err := validate.Struct(cfg.ConfidenceLevels); err != nil {
			return fmt.Errorf("weightconfig: confidence_levels: %w", err)
		}
	}
	if cfg.CacheTTLHours != nil && (*cfg.CacheTTLHours < 0 || *cfg.CacheTTLHours > 168) {
		return fmt.Errorf("weightconfig: cache_ttl_hours must be in [0, 168]")
	}
	if cfg.MaxConcurrentMatches != nil && (*cfg.MaxConcurrentMatches < 1 || *cfg.MaxConcurrentMatches > 1000) {
		return fmt.Errorf("weightconfig: max_concurrent_matches must be in [1, 1000]")
	}
	if cfg.MinScoreThreshold != nil && (*cfg.MinScoreThreshold < 0 || *cfg.MinScoreThreshold > 1) {
		return fmt.Errorf("weightconfig: min_score_threshold must be in [0, 1]")
	}
	if cfg.SemanticSimilarityThreshold != nil && (*cfg.SemanticSimilarityThreshold < 0 || *cfg.SemanticSimilarityThreshold > 1) {
		return fmt.Errorf("weightconfig: semantic_similarity_threshold must be in [0, 1]")
	}
	if cfg.ConfidenceCVThreshold != nil && *cfg.ConfidenceCVThreshold < 0 {
		return fmt.Errorf("weightconfig: confidence_cv_threshold must be >= 0")
	}

	if cfg.Weights != nil {
		if err := validateWeights(cfg.Weights); err != nil {
			return err
		}
	}
	if cfg.ConfidenceLevels != nil {
		if err := validateConfidenceOrdering(*cfg.ConfidenceLevels); err != nil {
			return err
		}
	}
	return nil
}

func validateWeights(w Weights) error {
	if len(w) != len(componentNames) {
		return fmt.Errorf("weightconfig: weights must specify exactly the %d scoring components", len(componentNames))
	}
	sum := 0.0
	for _, name := range componentNames {
		v, ok := w[name]
		if !ok {
			return fmt.Errorf("weightconfig: weights missing required component %q", name)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("weightconfig: weight for %q must be in [0,1], got %v", name, v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weightconfig: weights must sum to 1.0 +/- %.2f, got %.4f", weightSumTolerance, sum)
	}
	return nil
}

func validateConfidenceOrdering(c ConfidenceLevels) error {
	if !(0 <= c.Low && c.Low <= c.Medium && c.Medium <= c.High && c.High <= 1) {
		return fmt.Errorf("weightconfig: confidence_levels must satisfy 0 <= low <= medium <= high <= 1")
	}
	return nil
}
