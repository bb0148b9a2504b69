package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/config"
	"github.com/kailas-cloud/vibesearch/internal/db"
	dbMilvus "github.com/kailas-cloud/vibesearch/internal/db/milvus"
	dbRedis "github.com/kailas-cloud/vibesearch/internal/db/redis"
	"github.com/kailas-cloud/vibesearch/internal/domain"
	domlisting "github.com/kailas-cloud/vibesearch/internal/domain/listing"
	logpkg "github.com/kailas-cloud/vibesearch/internal/logger"
	"github.com/kailas-cloud/vibesearch/internal/metrics"
	"github.com/kailas-cloud/vibesearch/internal/repository/embcache"
	listingrepo "github.com/kailas-cloud/vibesearch/internal/repository/listing"
	searchrepo "github.com/kailas-cloud/vibesearch/internal/repository/search"
	onnxEmb "github.com/kailas-cloud/vibesearch/internal/transport/onnx"
	openaiEmb "github.com/kailas-cloud/vibesearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vibesearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vibesearch/internal/usecase/health"
	listinguc "github.com/kailas-cloud/vibesearch/internal/usecase/listing"
	rankeruc "github.com/kailas-cloud/vibesearch/internal/usecase/ranker"
	resolveruc "github.com/kailas-cloud/vibesearch/internal/usecase/resolver"
	searchuc "github.com/kailas-cloud/vibesearch/internal/usecase/search"
	"github.com/kailas-cloud/vibesearch/internal/version"
)

// listingStore is what the composition root needs from either listing source.
type listingStore interface {
	Get(ctx context.Context, id string) (domlisting.Listing, error)
	Ping(ctx context.Context) error
}

// app is the composition root shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger

	search   *searchuc.Service
	listings *listinguc.Service
	health   *healthuc.Service

	fileStore *listingrepo.FileStore
	closers   []func()
}

// newApp loads config for env and wires the full search pipeline.
func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if override := config.GetLogLevel(); override != "" {
		level = override
	}
	logger, err := logpkg.NewLogger(env, logpkg.Options{
		Level: level,
		File: logpkg.FileOptions{
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
			Compress:   cfg.Logging.File.Compress,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	logger.Info("Starting vibesearch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.String("vector_backend", cfg.Index.Backend),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("listings_source", cfg.Listings.Source),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	var redisStore *dbRedis.Store
	if len(cfg.Database.Addrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return fmt.Errorf("create redis store: %w", err)
		}
		redisStore = s
		a.closers = append(a.closers, s.Close)
	}

	vectors, err := a.vectorStore(ctx, redisStore)
	if err != nil {
		return err
	}

	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := vectors.WaitForReady(ctx, readiness); err != nil {
		return fmt.Errorf("vector backend not ready: %w", err)
	}
	logger.Info("Connected to vector backend")

	queryEmbedder, err := a.embedder(redisStore)
	if err != nil {
		return err
	}

	store, err := a.listingStore(redisStore)
	if err != nil {
		return err
	}

	// Pass nil interface (not typed nil pointer!) when vision is disabled.
	var describer resolveruc.Describer
	if cfg.VisionEnabled() {
		describer = openaiEmb.NewDescriber(&openaiEmb.Config{
			APIKey:    cfg.Vision.APIKey,
			BaseURL:   cfg.Vision.BaseURL,
			Model:     cfg.Vision.Model,
			MaxTokens: cfg.Vision.MaxTokens,
			Logger:    logger,
		}, cfg.Vision.MaxImages)
	}

	repo := searchrepo.New(vectors, searchrepo.Config{
		ListingIndex:     cfg.Index.ListingIndex,
		ImageIndex:       cfg.Index.ImageIndex,
		ListingKeyPrefix: cfg.Index.ListingKeyPrefix,
	})

	resolver := resolveruc.New(queryEmbedder, describer, resolveruc.Config{
		VisionTimeout: cfg.Timeouts.Vision(),
		MaxImages:     cfg.Vision.MaxImages,
	})
	a.search = searchuc.New(resolver, searchuc.NewGateway(repo, cfg.Timeouts.Index()))

	ranker := rankeruc.New(queryEmbedder, repo, cfg.Timeouts.Index())
	a.listings = listinguc.New(store, ranker, cfg.Ranking.Parallelism)

	a.health = healthuc.New(vectors, store, queryEmbedder)
	return nil
}

// vectorStore opens the configured KNN backend.
func (a *app) vectorStore(ctx context.Context, redisStore *dbRedis.Store) (db.VectorStore, error) {
	cfg := a.cfg
	switch cfg.Index.Backend {
	case config.BackendMilvus:
		s, err := dbMilvus.NewStore(ctx, dbMilvus.Config{
			Address:        cfg.Milvus.Address,
			Username:       cfg.Milvus.Username,
			Password:       cfg.Milvus.Password,
			DBName:         cfg.Milvus.DBName,
			PingCollection: cfg.Index.ListingIndex,
		})
		if err != nil {
			return nil, fmt.Errorf("create milvus store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		if redisStore == nil {
			return nil, errors.New("redis backend requires database.addrs")
		}
		return redisStore, nil
	}
}

// embedder assembles the decorator chain: provider -> Cached -> Instrumented -> Service.
func (a *app) embedder(redisStore *dbRedis.Store) (*embeddinguc.Service, error) {
	cfg, logger := a.cfg.Embedding, a.logger

	var base domain.Embedder
	switch cfg.Provider {
	case config.ProviderONNX:
		e, err := onnxEmb.NewEmbedder(&onnxEmb.Config{
			ModelPath:   cfg.ONNXModelPath,
			VocabPath:   cfg.ONNXVocabPath,
			LibraryPath: cfg.ONNXLibraryPath,
			Model:       cfg.Model,
			Dimensions:  cfg.Dimensions,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create onnx embedder: %w", err)
		}
		a.closers = append(a.closers, e.Close)
		base = e
	default:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	}

	var opts []embcache.Option
	if cfg.SharedCache && redisStore != nil {
		ttl := time.Duration(cfg.SharedCacheTTL) * time.Second
		opts = append(opts, embcache.WithSharedStore(redisStore, cfg.Model, ttl))
	}
	cached, err := embcache.New(base, cfg.CacheCapacity, metrics.EmbeddingCacheTotal, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(cached, cfg.Provider, cfg.Model, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
		zap.Bool("shared_cache", len(opts) > 0),
	)
	return embeddinguc.NewService(instrumented, a.cfg.Timeouts.Embedding(), cfg.Dimensions), nil
}

// listingStore opens the configured listing source.
func (a *app) listingStore(redisStore *dbRedis.Store) (listingStore, error) {
	cfg := a.cfg.Listings
	switch cfg.Source {
	case config.SourceRedis:
		if redisStore == nil {
			return nil, errors.New("redis listing source requires database.addrs")
		}
		return listingrepo.NewRedisStore(redisStore, cfg.KeyPrefix), nil
	default:
		fs, err := listingrepo.NewFileStore(cfg.Path, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open listings file: %w", err)
		}
		a.fileStore = fs
		a.logger.Info("Loaded listings", zap.String("path", cfg.Path), zap.Int("count", fs.Len()))
		return fs, nil
	}
}

// watchListings starts hot reload when the file source asks for it.
func (a *app) watchListings(ctx context.Context) {
	if a.fileStore == nil || !a.cfg.Listings.Watch {
		return
	}
	if err := a.fileStore.Watch(ctx); err != nil {
		a.logger.Warn("Listing hot reload disabled", zap.Error(err))
		return
	}
	a.logger.Info("Watching listings file", zap.String("path", a.cfg.Listings.Path))
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
