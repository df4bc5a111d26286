// Command apiserver runs the HTTP API: document upload/confirm/download,
// company document listing, and weight-config CRUD, behind bearer-auth
// middleware.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjaddison/govbiz-ai-sub002/internal/config"
	"github.com/tjaddison/govbiz-ai-sub002/internal/embedclient"
	"github.com/tjaddison/govbiz-ai-sub002/internal/extract"
	"github.com/tjaddison/govbiz-ai-sub002/internal/httpapi"
	"github.com/tjaddison/govbiz-ai-sub002/internal/identity"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/llmclient"
	"github.com/tjaddison/govbiz-ai-sub002/internal/logging"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/profile"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
	"github.com/tjaddison/govbiz-ai-sub002/internal/telemetry"
	"github.com/tjaddison/govbiz-ai-sub002/internal/weightconfig"
)

func main() {
	_ = godotenv.Overload()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic("apiserver: load config: " + err.Error())
	}

	log := logging.New(cfg.LogLevel, os.Stdout)
	metrics := telemetry.NewOtelMetrics("govbiz-apiserver")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := kvstore.OpenPool(ctx, cfg.KV.DSN, cfg.KV.MaxConns, cfg.KV.MaxConnLifetime, cfg.KV.MaxConnIdleTime)
	if err != nil {
		log.Fatal().Err(err).Msg("open kv pool")
	}
	if _, err := kvstore.NewStore(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("run kv schema migration")
	}

	companies := kvstore.NewPostgresCompanyStore(pool)
	weightConfigs := kvstore.NewPostgresWeightConfigStore(pool)
	auditLog := kvstore.NewPostgresAuditLogStore(pool)

	objects, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		log.Fatal().Err(err).Msg("init object store")
	}
	var uploader profile.SignedUploader
	var downloader profile.SignedDownloader
	if s3store, ok := objects.(*objectstore.S3Store); ok {
		presigner := objectstore.NewPresigner(s3store)
		uploader = presigner
		downloader = presigner
	}

	verifier, err := identity.NewVerifier(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.Audience)
	if err != nil {
		log.Fatal().Err(err).Msg("init oidc verifier")
	}

	embedder := embedclient.New(cfg.Embedding)
	llm := newLLMClient(cfg.LLM)
	ocr := extract.NewHTTPOCRClient(cfg.OCR)

	configs := weightconfig.NewStore(weightConfigs, auditLog, metrics, 256)

	ingestor := &profile.Ingestor{
		Objects:    objects,
		Uploader:   uploader,
		Embedder:   embedder,
		Summarizer: llm,
		LLM:        llm,
		OCR:        ocr,
		Now:        time.Now,
	}
	reembedder := &profile.Reembedder{
		Companies:  companies,
		Objects:    objects,
		Embedder:   embedder,
		Summarizer: llm,
		Now:        time.Now,
	}

	producer := newProducer(cfg.Queue)
	defer producer.Close()

	server := &httpapi.Server{
		Ingestor:                ingestor,
		Companies:               companies,
		Downloader:              downloader,
		Configs:                 configs,
		Verifier:                verifier,
		Reembed:                 reembedder,
		Now:                     time.Now,
		Producer:                producer,
		DocumentProcessingTopic: cfg.Queue.DocumentProcessingTopic,
	}
	mux := httpapi.NewServer(server)

	consumer := queue.NewKafkaConsumer(queue.KafkaConsumerConfig{
		Brokers: cfg.Queue.Brokers,
		GroupID: cfg.Queue.GroupID,
		Topic:   cfg.Queue.DocumentProcessingTopic,
		Dedupe:  queue.NewMemoryDedupeStore(),
	})
	defer consumer.Close()

	go func() {
		log.Info().Str("topic", cfg.Queue.DocumentProcessingTopic).Msg("apiserver consuming document processing messages")
		err := consumer.Run(ctx, func(ctx context.Context, msg queue.Message) error {
			return handleDocumentProcessing(ctx, ingestor, companies, reembedder, log, msg)
		})
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("document processing consumer stopped")
		}
	}()

	httpServer := &http.Server{
		Addr:              envOr("APISERVER_ADDR", ":8080"),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("apiserver listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("apiserver failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apiserver shutdown")
	}
	pool.Close()
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

func newLLMClient(cfg config.LLMConfig) llmclient.Client {
	if cfg.AnthropicAPIKey != "" {
		return llmclient.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model, &http.Client{Timeout: cfg.Timeout})
	}
	return llmclient.NewOpenAIClient(cfg.OpenAIAPIKey, "", cfg.Model)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
