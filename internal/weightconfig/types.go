// Package weightconfig implements the Weight/Config Store: versioned,
// tenant-overridable scoring weights and thresholds with validation and
// an audit trail.
package weightconfig

// componentNames are the 8 C9 scoring components; Weights must carry
// exactly these keys.
var componentNames = []string{
	"semantic", "keyword", "naics", "past_performance",
	"certification", "geographic", "capacity", "recency",
}

// Weights maps each scoring component to its blend weight.
type Weights map[string]float64

// ConfidenceLevels are the total-score thresholds for HIGH/MEDIUM/LOW bands.
type ConfidenceLevels struct {
	High   float64 `json:"high" validate:"required,gte=0,lte=1"`
	Medium float64 `json:"medium" validate:"required,gte=0,lte=1"`
	Low    float64 `json:"low" validate:"required,gte=0,lte=1"`
}

// Config is one versioned weight/threshold configuration, keyed per
// tenant or stored as the global default. CacheTTLHours, MaxConcurrentMatches,
// MinScoreThreshold, and SemanticSimilarityThreshold together are the
// algorithm_params of the data model; they stay flat fields here rather than
// a nested struct to match the rest of Config.
type Config struct {
	Weights                     Weights           `json:"weights,omitempty"`
	ConfidenceLevels            *ConfidenceLevels `json:"confidenceLevels,omitempty"`
	CacheTTLHours               *float64          `json:"cacheTtlHours,omitempty" validate:"omitempty,gte=0,lte=168"`
	MaxConcurrentMatches        *int              `json:"maxConcurrentMatches,omitempty" validate:"omitempty,gte=1,lte=1000"`
	MinScoreThreshold           *float64          `json:"minScoreThreshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	SemanticSimilarityThreshold *float64          `json:"semanticSimilarityThreshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	// ConfidenceCVThreshold overrides the coefficient-of-variation past
	// which deriveConfidence down-shifts a band; nil uses the 0.5 default.
	ConfidenceCVThreshold *float64 `json:"confidenceCvThreshold,omitempty" validate:"omitempty,gte=0"`
}

// DefaultConfig is the built-in configuration used when neither a
// tenant-specific nor a global override exists.
func DefaultConfig() Config {
	ttl := 24.0
	maxConcurrent := 8
	minScore := 0.0
	semanticSimilarity := 0.0
	cvThreshold := 0.5
	return Config{
		Weights: Weights{
			"semantic":         0.25,
			"keyword":          0.15,
			"naics":            0.20,
			"past_performance": 0.10,
			"certification":    0.10,
			"geographic":       0.10,
			"capacity":         0.05,
			"recency":          0.05,
		},
		ConfidenceLevels:            &ConfidenceLevels{High: 0.75, Medium: 0.50, Low: 0.25},
		CacheTTLHours:               &ttl,
		MaxConcurrentMatches:        &maxConcurrent,
		MinScoreThreshold:           &minScore,
		SemanticSimilarityThreshold: &semanticSimilarity,
		ConfidenceCVThreshold:       &cvThreshold,
	}
}

// Merge overlays non-nil/non-empty fields of patch onto base, returning a
// new Config. Weights are replaced wholesale when present (the PUT/POST
// contract is "merge updates" at the top level, not per-weight-key).
func Merge(base, patch Config) Config {
	out := base
	if patch.Weights != nil {
		out.Weights = patch.Weights
	}
	if patch.ConfidenceLevels != nil {
		out.ConfidenceLevels = patch.ConfidenceLevels
	}
	if patch.CacheTTLHours != nil {
		out.CacheTTLHours = patch.CacheTTLHours
	}
	if patch.MaxConcurrentMatches != nil {
		out.MaxConcurrentMatches = patch.MaxConcurrentMatches
	}
	if patch.MinScoreThreshold != nil {
		out.MinScoreThreshold = patch.MinScoreThreshold
	}
	if patch.SemanticSimilarityThreshold != nil {
		out.SemanticSimilarityThreshold = patch.SemanticSimilarityThreshold
	}
	if patch.ConfidenceCVThreshold != nil {
		out.ConfidenceCVThreshold = patch.ConfidenceCVThreshold
	}
	return out
}
