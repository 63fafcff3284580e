package main

import (
	"context"
	"fmt"
	"time"

	"PracticeHub360/compliance"
	"PracticeHub360/config"
	"PracticeHub360/diagnostics"
	"PracticeHub360/queue"
	"PracticeHub360/services"
	"PracticeHub360/store"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const diagnosticsTTL = 30 * 24 * time.Hour

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  store.DocumentStore
	svc    *services.Service
	redis  redis.UniversalClient
	stream *queue.StreamQueue
	local  *queue.LocalQueue
}

/*
* Mongo document store (nil database uses the server's connection)
* Field cipher when a key is configured, audit trail in the store
* Redis: sync stream and diagnostics; otherwise an in-process queue when background is set
 */
func buildApp(cfg *config.Config, logger *zap.Logger, database *mongo.Database, background bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger, store: store.NewMongo(database, logger)}
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithAuditor(compliance.NewStoreAuditor(a.store, logger)),
		services.WithDedupWindow(cfg.DedupWindow()),
		services.WithDefaultInvoiceAmount(cfg.DefaultInvoiceAmount),
	}
	if key := cfg.EncryptionKeyBytes(); key != nil {
		cipher, err := compliance.NewFieldCipher(cfg.EncryptionKeyID, key, logger)
		if err != nil {
			return nil, fmt.Errorf("field cipher: %w", err)
		}
		opts = append(opts, services.WithEncryptor(cipher))
	}
	if cfg.RedisEnabled() {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		opts = append(opts, services.WithRecorder(diagnostics.NewRedisRecorder(a.redis, "practicehub", diagnosticsTTL, logger)))
		if background {
			a.stream = queue.NewStreamQueue(a.redis, cfg.SyncStream, cfg.SyncGroup, cfg.SyncMaxAttempts, logger)
			opts = append(opts, services.WithDispatcher(a.stream))
		}
	} else if background {
		a.local = queue.NewLocalQueue(256, cfg.SyncMaxAttempts, time.Second, logger)
		opts = append(opts, services.WithDispatcher(a.local))
	}
	a.svc = services.New(a.store, opts...)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// connectMongo opens a standalone connection for the maintenance commands.
func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(cfg.MongoDatabase), nil
}
