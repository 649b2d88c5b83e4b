// Package app assembles the processing pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cv-processor/internal/config"
	"cv-processor/internal/cv"
	"cv-processor/internal/embedding"
	"cv-processor/internal/llm"
	"cv-processor/internal/logger"
	"cv-processor/internal/matching"
	"cv-processor/internal/notify"
	"cv-processor/internal/service"
	"cv-processor/internal/storage"
	httpclient "cv-processor/pkg/http"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	userAgent         = "cv-processor/1.0"
	embeddingTimeout  = 60 * time.Second
	smtpTimeout       = 30 * time.Second
	redisPingDeadline = 5 * time.Second
)

// App holds the wired services. Close releases the store and cache clients.
type App struct {
	Store    storage.Store
	CVs      *service.CVService
	Jobs     *service.JobService
	Contacts *service.ContactService
	Ranker   *matching.Ranker

	closers []func() error
}

// Build connects storage, migrates the schema and wires every service.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	log = logger.OrNop(log)

	store, err := storage.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Store: store, closers: []func() error{store.Close}}

	if err := store.Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	cache, err := a.newEmbeddingCache(ctx, cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	client := httpclient.NewClient(embeddingTimeout, userAgent)
	embedder := embedding.NewGenerator(cfg.EmbeddingModel(), encoderLoader(cfg, client), cache, log)
	fields := cv.NewExtractor(log, cv.DefaultThresholds, fieldStrategies(ctx, cfg, log)...)

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		User:      cfg.SMTP.User,
		Password:  cfg.SMTP.Password,
		TLS:       cfg.SMTP.TLS,
		FromEmail: cfg.Emails.FromEmail,
		FromName:  cfg.Emails.FromName,
		Timeout:   smtpTimeout,
	}, log)

	a.CVs = service.NewCVService(store, blobs, cv.NewCVParser(), fields, embedder, log)
	a.Jobs = service.NewJobService(store, embedder, log)
	a.Contacts = service.NewContactService(store, mailer, log)
	a.Ranker = matching.NewRanker(store, log)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newBlobStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.BlobStore, error) {
	if cfg.Minio.Endpoint == "" {
		blobs, err := storage.NewLocalBlobStore(cfg.UploadsDir)
		if err != nil {
			return nil, fmt.Errorf("uploads dir: %w", err)
		}
		return blobs, nil
	}

	blobs, err := storage.NewMinioBlobStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Bucket:    cfg.Minio.Bucket,
		UseSSL:    cfg.Minio.UseSSL,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}
	return blobs, nil
}

func (a *App) newEmbeddingCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (embedding.Cache, error) {
	if cfg.Redis.Addr == "" {
		return embedding.NewMemoryCache(cfg.Embedding.CacheTTL), nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingDeadline)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	log.Info("[Embedding] using redis cache", zap.String("addr", cfg.Redis.Addr))
	a.closers = append(a.closers, rdb.Close)
	return embedding.NewRedisCache(rdb, cfg.Embedding.CacheTTL), nil
}

func encoderLoader(cfg *config.Config, client *httpclient.Client) embedding.Loader {
	return func(context.Context) (embedding.Encoder, error) {
		key := cfg.EmbeddingAPIKey()
		if key == "" && cfg.Embedding.BaseURL == "" {
			return nil, errors.New("no embedding endpoint configured: set EMBEDDING_BASE_URL or an API key")
		}
		return embedding.NewOpenAIEncoder(key, cfg.Embedding.BaseURL, cfg.EmbeddingModel(), client), nil
	}
}

// fieldStrategies returns the LLM strategy when a provider is usable. The
// pattern strategy is always appended by the extractor.
func fieldStrategies(ctx context.Context, cfg *config.Config, log *zap.Logger) []cv.FieldStrategy {
	svc, err := llm.NewService(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLMAPIKey(),
		Model:    cfg.LLMModel(),
		BaseURL:  cfg.LLM.BaseURL,
	}, httpclient.NewClient(cfg.LLM.Timeout, userAgent), llm.Options{
		Timeout:       cfg.LLM.Timeout,
		MaxAttempts:   cfg.LLM.MaxAttempts,
		MaxElapsed:    cfg.LLM.MaxElapsed,
		MaxInputChars: cfg.LLM.MaxInputChars,
	}, log)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			log.Warn("[LLM] not configured, using pattern extraction only", zap.String("provider", cfg.LLM.Provider))
		} else {
			log.Error("[LLM] provider unavailable, using pattern extraction only", zap.Error(err))
		}
		return nil
	}
	log.Info("[LLM] field extraction enabled", zap.String("strategy", svc.Name()), zap.String("model", cfg.LLMModel()))
	return []cv.FieldStrategy{svc}
}
