// Package wire 提供依赖装配
package wire

import (
	"context"
	"fmt"

	"github.com/shifat71/350/internal/application/admin"
	"github.com/shifat71/350/internal/application/index"
	"github.com/shifat71/350/internal/application/recommend"
	"github.com/shifat71/350/internal/application/search"
	"github.com/shifat71/350/internal/application/vision"
	"github.com/shifat71/350/internal/config"
	"github.com/shifat71/350/internal/infrastructure/embedding"
	"github.com/shifat71/350/internal/infrastructure/intent"
	"github.com/shifat71/350/internal/infrastructure/llm"
	"github.com/shifat71/350/internal/infrastructure/messaging"
	"github.com/shifat71/350/internal/infrastructure/persistence/milvus"
	"github.com/shifat71/350/internal/infrastructure/persistence/postgres"
	"github.com/shifat71/350/internal/infrastructure/persistence/redis"
	"github.com/shifat71/350/internal/infrastructure/websearch"
	"github.com/shifat71/350/internal/interfaces/http/handler"
	"github.com/shifat71/350/internal/interfaces/http/router"
	"github.com/shifat71/350/pkg/logger"
)

// DataLayer 数据层依赖容器
type DataLayer struct {
	PgClient     *postgres.Client
	ProductRepo  *postgres.ProductRepository
	RedisClient  *redis.Client
	Cache        *redis.Cache
	TaskStore    *redis.TaskStore
	RateLimiter  *redis.RateLimiter
	MilvusClient *milvus.Client
	MilvusRepo   *milvus.Repository
}

// NewDataLayer 初始化数据层
func NewDataLayer(ctx context.Context, cfg *config.Config) (*DataLayer, func(), error) {
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		pgClient.Close()
		return nil, nil, fmt.Errorf("init redis: %w", err)
	}

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		redisClient.Close()
		pgClient.Close()
		return nil, nil, fmt.Errorf("init milvus: %w", err)
	}

	layer := &DataLayer{
		PgClient:     pgClient,
		ProductRepo:  postgres.NewProductRepository(pgClient),
		RedisClient:  redisClient,
		Cache:        redis.NewCache(redisClient),
		TaskStore:    redis.NewTaskStore(redisClient),
		RateLimiter:  redis.NewRateLimiter(redisClient),
		MilvusClient: milvusClient,
		MilvusRepo:   milvus.NewRepository(milvusClient),
	}

	cleanup := func() {
		if err := milvusClient.Close(); err != nil {
			logger.Error(context.Background(), "close milvus", err)
		}
		if err := redisClient.Close(); err != nil {
			logger.Error(context.Background(), "close redis", err)
		}
		if err := pgClient.Close(); err != nil {
			logger.Error(context.Background(), "close postgres", err)
		}
	}

	return layer, cleanup, nil
}

// App API 进程的依赖容器
type App struct {
	Data   *DataLayer
	Router *router.Router
}

// NewApp 装配 API 进程
func NewApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	data, cleanup, err := NewDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	llmFactory := llm.NewEinoFactory(cfg)

	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init embedder: %w", err)
	}

	vectorAdapter := milvus.NewSearchAdapter(data.MilvusRepo, embedder)

	var webctx search.ContextProvider
	if cfg.Search.WebContext {
		webctx = websearch.NewClient("", 0)
	}

	searchEngine := search.NewEngine(
		data.ProductRepo,
		vectorAdapter,
		data.Cache,
		intent.NewExtractor(llmFactory),
		intent.NewSQLGen(llmFactory),
		webctx,
		search.Options{
			CacheTTL:        cfg.Search.CacheTTL,
			CacheTimeout:    cfg.Search.CacheTimeout,
			VectorTimeout:   cfg.Vector.Milvus.SearchTimeout,
			LLMTimeout:      cfg.LLM.CallTimeout,
			SQLTimeout:      cfg.Database.Postgres.QueryTimeout,
			DefaultLimit:    cfg.Search.DefaultLimit,
			MaxLimit:        cfg.Search.MaxLimit,
			FeatureSlots:    cfg.Search.MaxFeatureSlots,
			WebContextLimit: cfg.Search.WebContextLimit,
		},
	)

	recommendEngine := recommend.NewEngine(vectorAdapter, data.Cache, recommend.Options{
		CacheTTL:      cfg.Search.CacheTTL,
		CacheTimeout:  cfg.Search.CacheTimeout,
		VectorTimeout: cfg.Vector.Milvus.SearchTimeout,
		DefaultLimit:  cfg.Search.RecommendResults,
		MaxLimit:      cfg.Search.MaxLimit,
	})

	describer := vision.NewDescriber(llmFactory, cfg.LLM.CallTimeout)

	producer := messaging.NewProducer(data.RedisClient.Redis(), cfg.Messaging.StreamMaxLen)
	taskManager := admin.NewTaskManager(data.TaskStore, producer, cfg.Index.MinRebuildInterval)

	handlers := router.Handlers{
		Search:    handler.NewSearchHandler(searchEngine, describer),
		Recommend: handler.NewRecommendHandler(recommendEngine),
		Admin:     handler.NewAdminHandler(taskManager),
		Health:    handler.NewHealthHandler(data.PgClient, data.RedisClient, data.MilvusClient),
	}

	app := &App{
		Data:   data,
		Router: router.New(cfg, handlers, data.RateLimiter),
	}

	return app, cleanup, nil
}

// Worker 索引重建 worker 进程的依赖容器
type Worker struct {
	Data      *DataLayer
	Rebuilder *index.Rebuilder
	Consumer  *messaging.Consumer
}

// NewWorker 装配 worker 进程
func NewWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	data, cleanup, err := NewDataLayer(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := embedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("init embedder: %w", err)
	}

	vectorAdapter := milvus.NewSearchAdapter(data.MilvusRepo, embedder)

	rebuilder := index.NewRebuilder(
		data.ProductRepo,
		embedder,
		vectorAdapter,
		data.TaskStore,
		cfg.Index.BatchSize,
	)

	consumer := messaging.NewConsumer(data.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:       messaging.StreamIndexRebuild,
		Group:        cfg.Messaging.ConsumerGroup,
		ConsumerName: cfg.Messaging.ConsumerName,
	})

	return &Worker{
		Data:      data,
		Rebuilder: rebuilder,
		Consumer:  consumer,
	}, cleanup, nil
}
