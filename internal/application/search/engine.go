package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/shifat71/350/internal/domain/entity"
	"github.com/shifat71/350/pkg/logger"
	"github.com/shifat71/350/pkg/metrics"
)

var tracer = otel.Tracer("search")

// Options 检索引擎参数
type Options struct {
	CacheTTL      time.Duration
	CacheTimeout  time.Duration
	SQLTimeout    time.Duration
	VectorTimeout time.Duration
	LLMTimeout    time.Duration

	DefaultLimit    int
	MaxLimit        int
	FeatureSlots    int
	WebContextLimit int
}

func (o *Options) withDefaults() {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 300 * time.Second
	}
	if o.CacheTimeout <= 0 {
		o.CacheTimeout = time.Second
	}
	if o.SQLTimeout <= 0 {
		o.SQLTimeout = 10 * time.Second
	}
	if o.VectorTimeout <= 0 {
		o.VectorTimeout = 5 * time.Second
	}
	if o.LLMTimeout <= 0 {
		o.LLMTimeout = 30 * time.Second
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 5
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 100
	}
	if o.FeatureSlots <= 0 {
		o.FeatureSlots = defaultFeatureSlots
	}
	if o.WebContextLimit <= 0 {
		o.WebContextLimit = 5
	}
}

// Engine 文本检索引擎：缓存门 + 意图管道 + 双信号召回 + 融合
//
// 所有外部依赖通过窄接口注入，引擎本身不持有跨调用的可变状态，
// 单次调用内的候选表对并发调用方不可见。
type Engine struct {
	executor QueryExecutor
	vector   VectorIndex
	cache    Cache
	intents  IntentExtractor
	sqlgen   SQLGenerator
	webctx   ContextProvider

	opts  Options
	group singleflight.Group
}

// NewEngine 创建检索引擎；webctx 可为 nil（关闭上下文增强）
func NewEngine(executor QueryExecutor, vector VectorIndex, cache Cache,
	intents IntentExtractor, sqlgen SQLGenerator, webctx ContextProvider, opts Options) *Engine {
	opts.withDefaults()
	return &Engine{
		executor: executor,
		vector:   vector,
		cache:    cache,
		intents:  intents,
		sqlgen:   sqlgen,
		webctx:   webctx,
		opts:     opts,
	}
}

// NormalizeLimit 校验调用方传入的 limit：缺省（0）回落到默认值，
// 超出 [1, MaxLimit] 区间返回 ErrInvalidLimit
func (e *Engine) NormalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return e.opts.DefaultLimit, nil
	}
	if limit < 0 || limit > e.opts.MaxLimit {
		return 0, fmt.Errorf("%w: limit=%d, allowed [1, %d]", ErrInvalidLimit, limit, e.opts.MaxLimit)
	}
	return limit, nil
}

// Search 执行一次文本检索
func (e *Engine) Search(ctx context.Context, query string, limit int) (*entity.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "search.Engine.Search",
		trace.WithAttributes(attribute.Int("search.limit", limit)))
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	limit, err := e.NormalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	cacheKey := cacheKey(query, limit)

	// 缓存门：命中直接返回，连意图提取都跳过
	if cached := e.readCache(ctx, cacheKey); cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	// singleflight 合并同 key 并发请求，避免重复打 LLM 和两个存储。
	// 合并执行与首个调用方的生命周期解耦：领跑者取消不会连累被合并的
	// 等待方，各阶段超时继续兜底。
	result, err, shared := e.group.Do(cacheKey, func() (any, error) {
		return e.searchUncached(context.WithoutCancel(ctx), query, limit, cacheKey)
	})
	span.SetAttributes(attribute.Bool("search.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result.(*entity.SearchResult), nil
}

func (e *Engine) searchUncached(ctx context.Context, query string, limit int, cacheKey string) (*entity.SearchResult, error) {
	// 可选 web 上下文增强；失败只降级，不影响检索
	var webContext string
	if e.webctx != nil {
		snippets, err := e.webctx.Snippets(ctx, query, e.opts.WebContextLimit)
		if err != nil {
			logger.Warn(ctx, "web context enrichment failed", "error", err.Error())
		} else {
			webContext = strings.Join(snippets, "\n")
		}
	}

	// 意图提取：解析失败对本次检索是致命的
	intentCtx, cancelIntent := context.WithTimeout(ctx, e.opts.LLMTimeout)
	intent, err := e.intents.Extract(intentCtx, query, webContext)
	cancelIntent()
	if err != nil {
		return nil, fmt.Errorf("intent extraction: %w", err)
	}
	intent.Normalize()

	sqlCtx, cancelSQL := context.WithTimeout(ctx, e.opts.LLMTimeout)
	sqlText, err := e.sqlgen.Generate(sqlCtx, intent, limit)
	cancelSQL()
	if err != nil {
		return nil, fmt.Errorf("sql generation: %w", err)
	}

	if err := ValidateSQL(sqlText); err != nil {
		logger.Warn(ctx, "rejecting generated sql", "error", err.Error())
		return nil, err
	}

	params := BindParameters(intent, limit, e.opts.FeatureSlots)

	// 两路召回相互独立，可并发；任一路失败都让整个调用失败，
	// 单信号的部分融合会悄悄扭曲排序。
	var (
		rows []Row
		hits []VectorHit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		qctx, cancel := context.WithTimeout(gctx, e.opts.SQLTimeout)
		defer cancel()
		var err error
		rows, err = e.executor.Search(qctx, sqlText, params)
		if err != nil {
			return fmt.Errorf("sql execution: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		vctx, cancel := context.WithTimeout(gctx, e.opts.VectorTimeout)
		defer cancel()
		var err error
		hits, err = e.vector.Search(vctx, query, limit)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result, err := Fuse(ctx, rows, hits, limit)
	if err != nil {
		return nil, fmt.Errorf("result fusion: %w", err)
	}

	e.writeCache(ctx, cacheKey, result)

	return result, nil
}

// readCache 读缓存；任何缓存故障都按未命中处理
func (e *Engine) readCache(ctx context.Context, key string) *entity.SearchResult {
	cctx, cancel := context.WithTimeout(ctx, e.opts.CacheTimeout)
	defer cancel()

	data, err := e.cache.Get(cctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			metrics.SearchCacheHits.WithLabelValues("miss").Inc()
		} else {
			logger.Warn(ctx, "cache read failed, treating as miss", "key", key, "error", err.Error())
			metrics.SearchCacheHits.WithLabelValues("error").Inc()
		}
		return nil
	}

	var result entity.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warn(ctx, "cache entry undecodable, treating as miss", "key", key, "error", err.Error())
		metrics.SearchCacheHits.WithLabelValues("error").Inc()
		return nil
	}

	metrics.SearchCacheHits.WithLabelValues("hit").Inc()
	return &result
}

// writeCache 写缓存；失败只记日志，绝不让检索失败
func (e *Engine) writeCache(ctx context.Context, key string, result *entity.SearchResult) {
	data, err := json.Marshal(result)
	if err != nil {
		logger.Warn(ctx, "cache encode failed", "key", key, "error", err.Error())
		return
	}

	// 写入与请求生命周期解耦，调用方取消不应丢掉已算好的结果
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.CacheTimeout)
	defer cancel()

	if err := e.cache.Set(cctx, key, data, e.opts.CacheTTL); err != nil {
		logger.Warn(ctx, "cache write failed", "key", key, "error", err.Error())
	}
}

// cacheKey 由归一化查询文本和 limit 构成确定性缓存键
func cacheKey(query string, limit int) string {
	normalized := strings.Join(strings.Fields(query), " ")
	return fmt.Sprintf("search:%s:%d", normalized, limit)
}
