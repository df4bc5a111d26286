// Command ingestord runs the nightly CSV acquisition on a cron schedule and
// consumes the resulting row batches, running each opportunity through the
// processing pipeline (extract attachments, embed, index, upsert).
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjaddison/govbiz-ai-sub002/internal/batch"
	"github.com/tjaddison/govbiz-ai-sub002/internal/config"
	"github.com/tjaddison/govbiz-ai-sub002/internal/csvingest"
	"github.com/tjaddison/govbiz-ai-sub002/internal/embedclient"
	"github.com/tjaddison/govbiz-ai-sub002/internal/extract"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/logging"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/opportunity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
	"github.com/tjaddison/govbiz-ai-sub002/internal/telemetry"
	"github.com/tjaddison/govbiz-ai-sub002/internal/vectorindex"
)

const csvRefreshTarget = "csv_refresh"

func main() {
	_ = godotenv.Overload()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic("ingestord: load config: " + err.Error())
	}
	log := logging.New(cfg.LogLevel, os.Stdout)
	metrics := telemetry.NewOtelMetrics("govbiz-ingestord")

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

	objects, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		log.Fatal().Err(err).Msg("init object store")
	}
	index, err := newVectorIndex(cfg.VectorIndex)
	if err != nil {
		log.Fatal().Err(err).Msg("init vector index")
	}

	producer := newProducer(cfg.Queue)
	downloader := csvingest.NewDownloader(cfg.CSVIngest)
	ingestor := &csvingest.Ingestor{
		Downloader: downloader,
		Producer:   producer,
		Topic:      cfg.CSVIngest.QueueTopic,
	}

	processor := &opportunity.Processor{
		Store:       opportunities,
		Objects:     objects,
		VectorIndex: index,
		Embedder:    embedclient.New(cfg.Embedding),
		Attachments: opportunity.NewHTTPAttachmentFetcher(30*time.Second, 3),
		OCR:         extract.NewHTTPOCRClient(cfg.OCR),
		Now:         time.Now,
	}

	scheduler := batch.NewScheduler()
	scheduler.RegisterTarget(csvRefreshTarget, func(ctx context.Context, _ json.RawMessage) error {
		stats, err := ingestor.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("csv refresh failed")
			return err
		}
		log.Info().Int("totalRows", stats.TotalRows).Int("duplicates", stats.DuplicateRows).
			Int("batches", stats.EmittedBatches).Msg("csv refresh complete")
		return nil
	})
	for _, sched := range cfg.Schedules {
		if sched.Type != csvRefreshTarget {
			continue
		}
		if err := scheduler.Upsert(batch.Schedule{Name: sched.Name, CronExpr: sched.Cron, Target: csvRefreshTarget}); err != nil {
			log.Fatal().Err(err).Str("schedule", sched.Name).Msg("register schedule")
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	consumer := queue.NewKafkaConsumer(queue.KafkaConsumerConfig{
		Brokers: cfg.Queue.Brokers,
		GroupID: cfg.Queue.GroupID,
		Topic:   cfg.CSVIngest.QueueTopic,
		Dedupe:  queue.NewMemoryDedupeStore(),
	})
	defer consumer.Close()

	log.Info().Str("topic", cfg.CSVIngest.QueueTopic).Msg("ingestord consuming row batches")
	if err := consumer.Run(ctx, func(ctx context.Context, msg queue.Message) error {
		return handleRowBatch(ctx, processor, metrics, msg)
	}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("consumer stopped")
	}
}

func handleRowBatch(ctx context.Context, processor *opportunity.Processor, metrics telemetry.Metrics, msg queue.Message) error {
	var rowBatch csvingest.RowBatch
	if err := json.Unmarshal(msg.Value, &rowBatch); err != nil {
		return err
	}
	for _, o := range rowBatch.Rows {
		result := processor.Process(ctx, opportunity.Input{
			NoticeID:        o.NoticeID,
			Opportunity:     o,
			AttachmentInfos: o.Attachments,
		})
		if result.Status == opportunity.StatusError {
			metrics.IncCounter(telemetry.GaugeProcessingErrors, map[string]string{"stage": "opportunity_processor"})
		}
	}
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

func newVectorIndex(cfg config.VectorIndexConfig) (vectorindex.Index, error) {
	if cfg.Addr == "" {
		return vectorindex.NewMemoryIndex(cfg.Dimension), nil
	}
	return vectorindex.NewQdrantIndex(cfg.Addr, cfg.Collection, cfg.Dimension, "cosine")
}

func newProducer(cfg config.QueueConfig) queue.Producer {
	if len(cfg.Brokers) == 0 {
		return queue.NewMemoryQueue()
	}
	return queue.NewKafkaProducer(cfg.Brokers)
}
