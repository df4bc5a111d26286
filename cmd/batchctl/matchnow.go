package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/tjaddison/govbiz-ai-sub002/internal/batch"
	"github.com/tjaddison/govbiz-ai-sub002/internal/config"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/match"
	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/telemetry"
	"github.com/tjaddison/govbiz-ai-sub002/internal/weightconfig"
)

// matchPairSep matches cmd/matchord's pair-key separator.
const matchPairSep = "\x1f"

var matchNowCmd = &cobra.Command{
	Use:   "match-now",
	Short: "Run one match-scoring pass over every active opportunity and company immediately",
	RunE:  runMatchNow,
}

func runMatchNow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("batchctl: load config: %w", err)
	}
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("batchctl: connect: %w", err)
	}
	defer pool.Close()

	opportunities := kvstore.NewPostgresOpportunityStore(pool)
	companies := kvstore.NewPostgresCompanyStore(pool)
	matches := kvstore.NewPostgresMatchStore(pool)
	coordinations := kvstore.NewPostgresBatchCoordinationStore(pool)
	progress := kvstore.NewPostgresProgressStore(pool)
	weightConfigs := kvstore.NewPostgresWeightConfigStore(pool)
	auditLog := kvstore.NewPostgresAuditLogStore(pool)

	objects, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("batchctl: init object store: %w", err)
	}
	metrics := telemetry.NewOtelMetrics("govbiz-batchctl")
	configs := weightconfig.NewStore(weightConfigs, auditLog, metrics, 256)

	orchestrator := &match.Orchestrator{
		Objects: objects,
		Matches: matches,
		Configs: configs,
		Cache:   matchCache(cfg.Cache),
		Now:     time.Now,
	}

	producer := newProducer(cfg.Queue)
	coordinator := &batch.Coordinator{Coordinations: coordinations, Producer: producer, Topic: cfg.Queue.Topic, Now: time.Now}
	tracker := &batch.Tracker{Coordinations: coordinations, Batches: progress, Metrics: metrics, Now: time.Now}
	pipeline := &batch.Pipeline{
		Optimizer:          &batch.Optimizer{TargetLatency: 5 * time.Second},
		Coordinator:        coordinator,
		Tracker:            tracker,
		FailureHandler:     &batch.FailureHandler{Tracker: tracker},
		Coordinations:      coordinations,
		DefaultBatchSize:   50,
		DefaultConcurrency: 8,
	}

	oppRaws, err := opportunities.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("batchctl: list active opportunities: %w", err)
	}
	companyRaws, err := companies.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("batchctl: list companies: %w", err)
	}

	opps := make(map[string]opportunity.Opportunity, len(oppRaws))
	for _, raw := range oppRaws {
		var o opportunity.Opportunity
		if json.Unmarshal(raw, &o) == nil {
			opps[o.NoticeID] = o
		}
	}
	comps := make(map[string]profile.CompanyProfile, len(companyRaws))
	for _, raw := range companyRaws {
		var c profile.CompanyProfile
		if json.Unmarshal(raw, &c) == nil {
			comps[c.CompanyID] = c
		}
	}

	pairs := make([]string, 0, len(opps)*len(comps))
	for noticeID := range opps {
		for companyID := range comps {
			pairs = append(pairs, noticeID+matchPairSep+companyID)
		}
	}
	if len(pairs) == 0 {
		fmt.Println("no active opportunity/company pairs to score")
		return nil
	}

	var scored, failed int64
	coord, err := pipeline.Run(ctx, "match_scoring", pairs, nil, func(ctx context.Context, batchKeys []string) error {
		for _, key := range batchKeys {
			parts := strings.SplitN(key, matchPairSep, 2)
			if len(parts) != 2 {
				continue
			}
			opp, ok := opps[parts[0]]
			if !ok {
				continue
			}
			company, ok := comps[parts[1]]
			if !ok {
				continue
			}
			if _, err := orchestrator.Score(ctx, opp, company, company.TenantID, true, nil); err != nil {
				atomic.AddInt64(&failed, 1)
				continue
			}
			atomic.AddInt64(&scored, 1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batchctl: pipeline run: %w", err)
	}

	fmt.Printf("match scoring complete: coordination=%s pairs=%d scored=%d failed=%d\n",
		coord.CoordinationID, len(pairs), atomic.LoadInt64(&scored), atomic.LoadInt64(&failed))
	return nil
}

func matchCache(cfg config.CacheConfig) match.Cache {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &match.RedisCache{Client: client}
}
