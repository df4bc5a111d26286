package weightconfig

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/telemetry"
)

func TestValidate_RejectsBadWeightSum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights["semantic"] = 0.9
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidate_RejectsMissingComponent(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Weights, "recency")
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidate_RejectsConfidenceOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfidenceLevels = &ConfidenceLevels{High: 0.5, Medium: 0.6, Low: 0.2}
	err := Validate(cfg)
	require.Error(t, err)
}

func TestValidate_AcceptsDefaultConfig(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestMerge_ReplacesWeightsWholesale(t *testing.T) {
	base := DefaultConfig()
	patch := Config{Weights: Weights{
		"semantic": 0.5, "keyword": 0.1, "naics": 0.1, "past_performance": 0.1,
		"certification": 0.1, "geographic": 0.05, "capacity": 0.025, "recency": 0.025,
	}}
	merged := Merge(base, patch)
	require.Equal(t, 0.5, merged.Weights["semantic"])
	require.NoError(t, Validate(merged))
}

func TestStore_Get_FallsBackToDefault(t *testing.T) {
	store := NewStore(kvstore.NewMemoryWeightConfigStore(), kvstore.NewMemoryAuditLogStore(), telemetry.NoopMetrics{}, 16)
	cfg, err := store.Get(context.Background(), "co-1")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Weights, cfg.Weights)
}

func TestStore_Put_TenantOverrideDoesNotLeakToOtherTenants(t *testing.T) {
	store := NewStore(kvstore.NewMemoryWeightConfigStore(), kvstore.NewMemoryAuditLogStore(), telemetry.NoopMetrics{}, 16)
	store.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	patch := Config{Weights: Weights{
		"semantic": 0.4, "keyword": 0.1, "naics": 0.2, "past_performance": 0.1,
		"certification": 0.1, "geographic": 0.05, "capacity": 0.025, "recency": 0.025,
	}}
	updated, err := store.Put(context.Background(), "co-1", "user:alice", patch)
	require.NoError(t, err)
	require.Equal(t, 0.4, updated.Weights["semantic"])

	other, err := store.Get(context.Background(), "co-2")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Weights["semantic"], other.Weights["semantic"])

	mine, err := store.Get(context.Background(), "co-1")
	require.NoError(t, err)
	require.Equal(t, 0.4, mine.Weights["semantic"])
}

func TestStore_Put_RejectsInvalidPatch(t *testing.T) {
	store := NewStore(kvstore.NewMemoryWeightConfigStore(), kvstore.NewMemoryAuditLogStore(), telemetry.NoopMetrics{}, 16)
	patch := Config{Weights: Weights{"semantic": 1.0}}
	_, err := store.Put(context.Background(), "co-1", "user:alice", patch)
	require.Error(t, err)
}

func TestStore_Put_LiteralWeightOverrideSumsToOneAndAudits(t *testing.T) {
	audit := kvstore.NewMemoryAuditLogStore()
	store := NewStore(kvstore.NewMemoryWeightConfigStore(), audit, telemetry.NoopMetrics{}, 16)

	patch := Config{Weights: Weights{
		"semantic": 0.30, "keyword": 0.20, "naics": 0.15, "past_performance": 0.15,
		"certification": 0.10, "geographic": 0.05, "capacity": 0.03, "recency": 0.02,
	}}
	updated, err := store.Put(context.Background(), "co-1", "user:alice", patch)
	require.NoError(t, err)
	require.Equal(t, patch.Weights, updated.Weights)

	rows, err := audit.ListByTenant(context.Background(), tenantConfigKey("co-1"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestValidate_WeightSumBoundary(t *testing.T) {
	atBoundary := DefaultConfig()
	atBoundary.Weights["semantic"] -= 0.01 // sum 0.99, within tolerance
	require.NoError(t, Validate(atBoundary))

	overBoundary := DefaultConfig()
	overBoundary.Weights["semantic"] -= 0.02 // sum 0.98, outside tolerance
	require.Error(t, Validate(overBoundary))
}

func TestStore_Delete_ResetsToDefaults(t *testing.T) {
	audit := kvstore.NewMemoryAuditLogStore()
	store := NewStore(kvstore.NewMemoryWeightConfigStore(), audit, telemetry.NoopMetrics{}, 16)

	patch := Config{Weights: Weights{
		"semantic": 0.4, "keyword": 0.1, "naics": 0.2, "past_performance": 0.1,
		"certification": 0.1, "geographic": 0.05, "capacity": 0.025, "recency": 0.025,
	}}
	_, err := store.Put(context.Background(), "co-1", "user:alice", patch)
	require.NoError(t, err)

	reset, err := store.Delete(context.Background(), "co-1", "user:alice")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Weights, reset.Weights)

	rows, err := audit.ListByTenant(context.Background(), tenantConfigKey("co-1"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
