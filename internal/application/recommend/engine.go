// Package recommend 基于向量近邻的相似商品推荐
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shifat71/350/internal/application/search"
	"github.com/shifat71/350/internal/domain/entity"
	"github.com/shifat71/350/pkg/logger"
	"github.com/shifat71/350/pkg/metrics"
)

var tracer = otel.Tracer("recommend")

// ErrNotIndexed 表示商品在向量库中没有嵌入，推荐退化为空结果
var ErrNotIndexed = errors.New("product has no embedding in the vector index")

// NeighborIndex 按商品 ID 查近邻的向量库依赖
// 商品未建索引时返回 ErrNotIndexed；返回的近邻可能包含商品自身。
type NeighborIndex interface {
	Neighbors(ctx context.Context, productID int64, nResults int) ([]search.VectorHit, error)
}

// Options 推荐引擎参数
type Options struct {
	CacheTTL      time.Duration
	CacheTimeout  time.Duration
	VectorTimeout time.Duration
	DefaultLimit  int
	MaxLimit      int
}

func (o *Options) withDefaults() {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 300 * time.Second
	}
	if o.CacheTimeout <= 0 {
		o.CacheTimeout = time.Second
	}
	if o.VectorTimeout <= 0 {
		o.VectorTimeout = 5 * time.Second
	}
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 10
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 100
	}
}

// Engine 相似商品推荐引擎
type Engine struct {
	neighbors NeighborIndex
	cache     search.Cache
	opts      Options
}

// NewEngine 创建推荐引擎
func NewEngine(neighbors NeighborIndex, cache search.Cache, opts Options) *Engine {
	opts.withDefaults()
	return &Engine{neighbors: neighbors, cache: cache, opts: opts}
}

// Recommend 返回与指定商品最相似的商品列表。
// 商品未建索引时返回空结果而不是错误：推荐位缺数据不该打断页面渲染。
func (e *Engine) Recommend(ctx context.Context, productID int64, limit int) (*entity.RecommendResult, error) {
	ctx, span := tracer.Start(ctx, "recommend.Engine.Recommend",
		trace.WithAttributes(
			attribute.Int64("recommend.product_id", productID),
			attribute.Int("recommend.limit", limit),
		))
	defer span.End()

	if limit == 0 {
		limit = e.opts.DefaultLimit
	} else if limit < 0 || limit > e.opts.MaxLimit {
		return nil, fmt.Errorf("%w: limit=%d, allowed [1, %d]", search.ErrInvalidLimit, limit, e.opts.MaxLimit)
	}

	cacheKey := fmt.Sprintf("recommend:%d:%d", productID, limit)

	if cached := e.readCache(ctx, cacheKey); cached != nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}

	vctx, cancel := context.WithTimeout(ctx, e.opts.VectorTimeout)
	// 多查一条以便剔除商品自身后仍然凑满 limit
	hits, err := e.neighbors.Neighbors(vctx, productID, limit+1)
	cancel()
	if err != nil {
		if errors.Is(err, ErrNotIndexed) {
			logger.Warn(ctx, "product not indexed, returning empty recommendations", "product_id", productID)
			return &entity.RecommendResult{Recommendations: []*entity.ProductCandidate{}, Total: 0}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("neighbor search: %w", err)
	}

	self := strconv.FormatInt(productID, 10)
	recommendations := make([]*entity.ProductCandidate, 0, limit)
	for _, hit := range hits {
		if len(recommendations) >= limit {
			break
		}

		c, err := search.CandidateFromHit(hit)
		if err != nil {
			if errors.Is(err, search.ErrBadIdentity) {
				logger.Warn(ctx, "dropping neighbor with unreconcilable identity", "hit_id", hit.ID)
				metrics.FusionDropped.WithLabelValues("bad_identity").Inc()
				continue
			}
			return nil, err
		}
		if c.ID == productID || hit.ID == self {
			continue
		}

		c.Score = 1.0 - hit.Distance
		recommendations = append(recommendations, c)
	}

	result := &entity.RecommendResult{
		Recommendations: recommendations,
		Total:           len(recommendations),
	}

	e.writeCache(ctx, cacheKey, result)

	return result, nil
}

func (e *Engine) readCache(ctx context.Context, key string) *entity.RecommendResult {
	cctx, cancel := context.WithTimeout(ctx, e.opts.CacheTimeout)
	defer cancel()

	data, err := e.cache.Get(cctx, key)
	if err != nil {
		if !errors.Is(err, search.ErrCacheMiss) {
			logger.Warn(ctx, "cache read failed, treating as miss", "key", key, "error", err.Error())
		}
		return nil
	}

	var result entity.RecommendResult
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Warn(ctx, "cache entry undecodable, treating as miss", "key", key, "error", err.Error())
		return nil
	}
	return &result
}

func (e *Engine) writeCache(ctx context.Context, key string, result *entity.RecommendResult) {
	data, err := json.Marshal(result)
	if err != nil {
		logger.Warn(ctx, "cache encode failed", "key", key, "error", err.Error())
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.CacheTimeout)
	defer cancel()

	if err := e.cache.Set(cctx, key, data, e.opts.CacheTTL); err != nil {
		logger.Warn(ctx, "cache write failed", "key", key, "error", err.Error())
	}
}
