// Command matchord runs the nightly match-scoring batch: for every active
// opportunity and every company, gate on quick compatibility, score the
// remaining pairs across all match components, and persist the results.
// Pairs are fanned out through a batch.Pipeline rather than a queue
// consumer, since Pipeline.Run's concurrency-bounded fan-out already runs
// in-process.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tjaddison/govbiz-ai-sub002/internal/batch"
	"github.com/tjaddison/govbiz-ai-sub002/internal/config"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/logging"
	"github.com/tjaddison/govbiz-ai-sub002/internal/match"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
	"github.com/tjaddison/govbiz-ai-sub002/internal/telemetry"
	"github.com/tjaddison/govbiz-ai-sub002/internal/weightconfig"
)

const matchScoringTarget = "match_scoring"

// pairSep separates noticeID from companyID in a Pipeline item key; neither
// ID contains this character in practice (SAM.gov notice IDs and generated
// company IDs are both alphanumeric-with-hyphens).
const pairSep = "\x1f"

func main() {
	_ = godotenv.Overload()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic("matchord: load config: " + err.Error())
	}
	log := logging.New(cfg.LogLevel, os.Stdout)
	metrics := telemetry.NewOtelMetrics("govbiz-matchord")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := kvstore.OpenPool(ctx, cfg.KV.DSN, cfg.KV.MaxConns, cfg.KV.MaxConnLifetime, cfg.KV.MaxConnIdleTime)
	if err != nil {
		log.Fatal().Err(err).Msg("open kv pool")
	}
	if _, err := kvstore.NewStore(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("run kv schema migration")
	}

	opportunities := kvstore.NewPostgresOpportunityStore(pool)
	companies := kvstore.NewPostgresCompanyStore(pool)
	matches := kvstore.NewPostgresMatchStore(pool)
	coordinations := kvstore.NewPostgresBatchCoordinationStore(pool)
	progress := kvstore.NewPostgresProgressStore(pool)
	weightConfigs := kvstore.NewPostgresWeightConfigStore(pool)
	auditLog := kvstore.NewPostgresAuditLogStore(pool)

	objects, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		log.Fatal().Err(err).Msg("init object store")
	}

	configs := weightconfig.NewStore(weightConfigs, auditLog, metrics, 256)
	cache := newCache(cfg.Cache)

	orchestrator := &match.Orchestrator{
		Objects: objects,
		Matches: matches,
		Configs: configs,
		Cache:   cache,
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

	runner := &scoringRun{
		opportunities: opportunities,
		companies:     companies,
		orchestrator:  orchestrator,
		pipeline:      pipeline,
		log:           log,
	}

	scheduler := batch.NewScheduler()
	scheduler.RegisterTarget(matchScoringTarget, func(ctx context.Context, _ json.RawMessage) error {
		return runner.run(ctx)
	})
	for _, sched := range cfg.Schedules {
		if sched.Type != matchScoringTarget {
			continue
		}
		if err := scheduler.Upsert(batch.Schedule{Name: sched.Name, CronExpr: sched.Cron, Target: matchScoringTarget}); err != nil {
			log.Fatal().Err(err).Str("schedule", sched.Name).Msg("register schedule")
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().Msg("matchord scheduler running")
	<-ctx.Done()
	pool.Close()
}

// scoringRun enumerates every active opportunity against every company and
// drives the resulting pairs through a batch.Pipeline.
type scoringRun struct {
	opportunities kvstore.OpportunityStore
	companies     kvstore.CompanyStore
	orchestrator  *match.Orchestrator
	pipeline      *batch.Pipeline
	log           zerolog.Logger
}

func (r *scoringRun) run(ctx context.Context) error {
	oppRaws, err := r.opportunities.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("matchord: list active opportunities: %w", err)
	}
	companyRaws, err := r.companies.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("matchord: list companies: %w", err)
	}

	opps := make(map[string]opportunity.Opportunity, len(oppRaws))
	for _, raw := range oppRaws {
		var o opportunity.Opportunity
		if err := json.Unmarshal(raw, &o); err != nil {
			r.log.Warn().Err(err).Msg("matchord: skip undecodable opportunity")
			continue
		}
		opps[o.NoticeID] = o
	}
	comps := make(map[string]profile.CompanyProfile, len(companyRaws))
	for _, raw := range companyRaws {
		var c profile.CompanyProfile
		if err := json.Unmarshal(raw, &c); err != nil {
			r.log.Warn().Err(err).Msg("matchord: skip undecodable company")
			continue
		}
		comps[c.CompanyID] = c
	}

	pairs := make([]string, 0, len(opps)*len(comps))
	for noticeID := range opps {
		for companyID := range comps {
			pairs = append(pairs, noticeID+pairSep+companyID)
		}
	}
	if len(pairs) == 0 {
		r.log.Info().Msg("matchord: no active opportunity/company pairs to score")
		return nil
	}

	process := func(ctx context.Context, batchKeys []string) error {
		for _, key := range batchKeys {
			parts := strings.SplitN(key, pairSep, 2)
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
			if _, err := r.orchestrator.Score(ctx, opp, company, company.TenantID, true, nil); err != nil {
				r.log.Error().Err(err).Str("noticeId", opp.NoticeID).Str("companyId", company.CompanyID).Msg("matchord: score failed")
			}
		}
		return nil
	}

	coord, err := r.pipeline.Run(ctx, matchScoringTarget, pairs, nil, process)
	if err != nil {
		return fmt.Errorf("matchord: pipeline run: %w", err)
	}
	r.log.Info().Str("coordinationId", coord.CoordinationID).Int("pairs", len(pairs)).Msg("matchord: scoring run complete")
	return nil
}

func newObjectStore(ctx context.Context, cfg config.ObjectStoreConfig) (objectstore.ObjectStore, error) {
	if cfg.Bucket == "" {
		return objectstore.NewMemoryStore(), nil
	}
	return objectstore.NewS3Store(ctx, objectstore.S3Config{
		Bucket:       cfg.Bucket,
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		AccessKey:    cfg.AccessKeyID,
		SecretKey:    cfg.SecretAccessKey,
		UsePathStyle: cfg.UsePathStyle,
	})
}

func newProducer(cfg config.QueueConfig) queue.Producer {
	if len(cfg.Brokers) == 0 {
		return queue.NewMemoryQueue()
	}
	return queue.NewKafkaProducer(cfg.Brokers)
}

func newCache(cfg config.CacheConfig) match.Cache {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &match.RedisCache{Client: client}
}
