package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tjaddison/govbiz-ai-sub002/internal/config"
	"github.com/tjaddison/govbiz-ai-sub002/internal/kvstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/objectstore"
	"github.com/tjaddison/govbiz-ai-sub002/internal/queue"
)

func loadConfig() (config.Config, error) {
	return config.Load(configFile)
}

func openPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := kvstore.OpenPool(ctx, cfg.KV.DSN, cfg.KV.MaxConns, cfg.KV.MaxConnLifetime, cfg.KV.MaxConnIdleTime)
	if err != nil {
		return nil, err
	}
	if _, err := kvstore.NewStore(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func newProducer(cfg config.QueueConfig) queue.Producer {
	if len(cfg.Brokers) == 0 {
		return queue.NewMemoryQueue()
	}
	return queue.NewKafkaProducer(cfg.Brokers)
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
