package weightconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/telemetry"
)

const globalConfigKey = "global"

func tenantConfigKey(tenantID string) string {
	return "tenant:" + tenantID
}

// Store resolves effective scoring configuration per tenant, falling back
// tenant -> global -> built-in default, and records every mutation to an
// audit trail with validation on write.
type Store struct {
	Configs kvstore.WeightConfigStore
	Audit   kvstore.AuditLogStore
	Metrics telemetry.Metrics
	Now     func() time.Time

	cache *lru.Cache[string, Config]
}

// NewStore builds a Store with an in-process cache of up to cacheSize
// resolved configurations.
func NewStore(configs kvstore.WeightConfigStore, audit kvstore.AuditLogStore, metrics telemetry.Metrics, cacheSize int) *Store {
	c, _ := lru.New[string, Config](cacheSize)
	return &Store{Configs: configs, Audit: audit, Metrics: metrics, cache: c}
}

// Get resolves the effective configuration for a tenant: a tenant-specific
// override if one exists, else the global override, else DefaultConfig.
func (s *Store) Get(ctx context.Context, tenantID string) (Config, error) {
	if tenantID != "" {
		if cfg, ok := s.lookupCache(tenantConfigKey(tenantID)); ok {
			return cfg, nil
		}
		cfg, err := s.load(ctx, tenantConfigKey(tenantID))
		if err == nil {
			s.storeCache(tenantConfigKey(tenantID), cfg)
			return cfg, nil
		} else if err != kvstore.ErrNotFound {
			return Config{}, err
		}
	}

	if cfg, ok := s.lookupCache(globalConfigKey); ok {
		return cfg, nil
	}
	cfg, err := s.load(ctx, globalConfigKey)
	if err == nil {
		s.storeCache(globalConfigKey, cfg)
		return cfg, nil
	} else if err != kvstore.ErrNotFound {
		return Config{}, err
	}

	return DefaultConfig(), nil
}

// Put merges patch onto the configuration stored under the tenant's own key
// (the global key when tenantID is empty), or onto DefaultConfig when none
// is stored there; a global override is not used as the base for a tenant.
// It then validates the result, persists a new version, writes an audit
// row, and emits per-weight/per-threshold metrics.
func (s *Store) Put(ctx context.Context, tenantID, caller string, patch Config) (Config, error) {
	key := scopedKey(tenantID)

	before, err := s.currentOrDefault(ctx, key)
	if err != nil {
		return Config{}, err
	}
	after := Merge(before, patch)
	if err := Validate(after); err != nil {
		return Config{}, err
	}

	payload, err := json.Marshal(after)
	if err != nil {
		return Config{}, fmt.Errorf("weightconfig: marshal config: %w", err)
	}
	now := s.now()
	if err := s.Configs.PutVersion(ctx, key, now, payload); err != nil {
		return Config{}, fmt.Errorf("weightconfig: put version: %w", err)
	}
	if err := recordAudit(ctx, s.Audit, key, caller, now, before, after); err != nil {
		return Config{}, fmt.Errorf("weightconfig: record audit: %w", err)
	}

	s.storeCache(key, after)
	s.emitMetrics(after)
	return after, nil
}

// Delete resets configKey back to the built-in defaults by writing a fresh
// default-valued version (the mutation, and its audit row, are retained;
// DefaultConfig simply becomes the new effective value).
func (s *Store) Delete(ctx context.Context, tenantID, caller string) (Config, error) {
	key := scopedKey(tenantID)
	before, err := s.currentOrDefault(ctx, key)
	if err != nil {
		return Config{}, err
	}
	after := DefaultConfig()

	payload, err := json.Marshal(after)
	if err != nil {
		return Config{}, fmt.Errorf("weightconfig: marshal config: %w", err)
	}
	now := s.now()
	if err := s.Configs.PutVersion(ctx, key, now, payload); err != nil {
		return Config{}, fmt.Errorf("weightconfig: put version: %w", err)
	}
	if err := recordAudit(ctx, s.Audit, key, caller, now, before, after); err != nil {
		return Config{}, fmt.Errorf("weightconfig: record audit: %w", err)
	}

	s.storeCache(key, after)
	s.emitMetrics(after)
	return after, nil
}

// History returns every persisted version for tenantID (or the global
// configuration if tenantID is empty), oldest first.
func (s *Store) History(ctx context.Context, tenantID string) ([]Config, error) {
	raws, err := s.Configs.History(ctx, scopedKey(tenantID))
	if err != nil {
		return nil, fmt.Errorf("weightconfig: history: %w", err)
	}
	out := make([]Config, 0, len(raws))
	for _, raw := range raws {
		var cfg Config
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("weightconfig: decode history entry: %w", err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func scopedKey(tenantID string) string {
	if tenantID == "" {
		return globalConfigKey
	}
	return tenantConfigKey(tenantID)
}

func (s *Store) currentOrDefault(ctx context.Context, key string) (Config, error) {
	cfg, err := s.load(ctx, key)
	if err == nil {
		return cfg, nil
	}
	if err == kvstore.ErrNotFound {
		return DefaultConfig(), nil
	}
	return Config{}, err
}

func (s *Store) load(ctx context.Context, key string) (Config, error) {
	payload, err := s.Configs.Latest(ctx, key)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return Config{}, fmt.Errorf("weightconfig: unmarshal %s: %w", key, err)
	}
	return cfg, nil
}

func (s *Store) lookupCache(key string) (Config, bool) {
	if s.cache == nil {
		return Config{}, false
	}
	return s.cache.Get(key)
}

func (s *Store) storeCache(key string, cfg Config) {
	if s.cache == nil {
		return
	}
	s.cache.Add(key, cfg)
}

func (s *Store) emitMetrics(cfg Config) {
	if s.Metrics == nil {
		return
	}
	for name, w := range cfg.Weights {
		s.Metrics.SetGauge(telemetry.GaugeScoringWeight, w, map[string]string{"component": name})
	}
	if cfg.ConfidenceLevels != nil {
		s.Metrics.SetGauge(telemetry.GaugeConfidenceThreshold, cfg.ConfidenceLevels.High, map[string]string{"band": "high"})
		s.Metrics.SetGauge(telemetry.GaugeConfidenceThreshold, cfg.ConfidenceLevels.Medium, map[string]string{"band": "medium"})
		s.Metrics.SetGauge(telemetry.GaugeConfidenceThreshold, cfg.ConfidenceLevels.Low, map[string]string{"band": "low"})
	}
	if cfg.MinScoreThreshold != nil {
		s.Metrics.SetGauge(telemetry.GaugeConfidenceThreshold, *cfg.MinScoreThreshold, map[string]string{"band": "min_score"})
	}
	if cfg.SemanticSimilarityThreshold != nil {
		s.Metrics.SetGauge(telemetry.GaugeConfidenceThreshold, *cfg.SemanticSimilarityThreshold, map[string]string{"band": "semantic_similarity"})
	}
	if cfg.ConfidenceCVThreshold != nil {
		s.Metrics.SetGauge(telemetry.GaugeConfidenceThreshold, *cfg.ConfidenceCVThreshold, map[string]string{"band": "confidence_cv"})
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
