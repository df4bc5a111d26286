package weightconfig

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
)

// AuditEntry is one immutable audit row written for every configuration
// mutation: who changed it, when, and exactly which fields changed.
type AuditEntry struct {
	ConfigKey string         `json:"configKey"`
	Caller    string         `json:"caller"`
	At        time.Time      `json:"at"`
	Diff      map[string]any `json:"diff"`
}

// recordAudit computes a field-level diff between before and after and
// appends it to the audit log. A nil diff (no fields changed) still writes
// a row, since a PUT/POST/DELETE call is itself the fact being audited.
func recordAudit(ctx context.Context, store kvstore.AuditLogStore, configKey, caller string, at time.Time, before, after Config) error {
	if store == nil {
		return nil
	}
	entry := AuditEntry{
		ConfigKey: configKey,
		Caller:    caller,
		At:        at,
		Diff:      diffConfig(before, after),
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return store.Append(ctx, configKey, at, payload)
}

func diffConfig(before, after Config) map[string]any {
	diff := map[string]any{}
	if !weightsEqual(before.Weights, after.Weights) {
		diff["weights"] = map[string]any{"before": before.Weights, "after": after.Weights}
	}
	if !confidenceLevelsEqual(before.ConfidenceLevels, after.ConfidenceLevels) {
		diff["confidenceLevels"] = map[string]any{"before": before.ConfidenceLevels, "after": after.ConfidenceLevels}
	}
	if !float64PtrEqual(before.CacheTTLHours, after.CacheTTLHours) {
		diff["cacheTtlHours"] = map[string]any{"before": before.CacheTTLHours, "after": after.CacheTTLHours}
	}
	if !intPtrEqual(before.MaxConcurrentMatches, after.MaxConcurrentMatches) {
		diff["maxConcurrentMatches"] = map[string]any{"before": before.MaxConcurrentMatches, "after": after.MaxConcurrentMatches}
	}
	if !float64PtrEqual(before.MinScoreThreshold, after.MinScoreThreshold) {
		diff["minScoreThreshold"] = map[string]any{"before": before.MinScoreThreshold, "after": after.MinScoreThreshold}
	}
	if !float64PtrEqual(before.SemanticSimilarityThreshold, after.SemanticSimilarityThreshold) {
		diff["semanticSimilarityThreshold"] = map[string]any{"before": before.SemanticSimilarityThreshold, "after": after.SemanticSimilarityThreshold}
	}
	if !float64PtrEqual(before.ConfidenceCVThreshold, after.ConfidenceCVThreshold) {
		diff["confidenceCvThreshold"] = map[string]any{"before": before.ConfidenceCVThreshold, "after": after.ConfidenceCVThreshold}
	}
	return diff
}

func weightsEqual(a, b Weights) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func confidenceLevelsEqual(a, b *ConfidenceLevels) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func float64PtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
