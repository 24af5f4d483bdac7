package search

import (
	"context"
	"time"

	"github.com/shifat71/350/internal/domain/entity"
)

// Row 关系库查询返回的一行，列名到值的映射
type Row map[string]any

// VectorHit 向量检索返回的一条命中
// Distance 为余弦距离，取值范围 [0, 2]，越小越相似；
// 命中按距离升序返回（最相似在前）。
type VectorHit struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// QueryExecutor 定义核心对关系库的最小依赖（port）
type QueryExecutor interface {
	Search(ctx context.Context, sql string, params map[string]any) ([]Row, error)
}

// VectorIndex 定义核心对向量存储的最小依赖（port）
type VectorIndex interface {
	Search(ctx context.Context, query string, nResults int) ([]VectorHit, error)
}

// Cache 定义核心对缓存的最小依赖（port）
// Get 未命中时返回 ErrCacheMiss。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IntentExtractor 查询理解黑盒：自然语言 -> 结构化意图
// 底层结构化输出不符合契约时必须返回错误（不可吞掉）。
type IntentExtractor interface {
	Extract(ctx context.Context, query string, webContext string) (*entity.QueryIntent, error)
}

// SQLGenerator SQL 生成黑盒：结构化意图 -> 带命名参数的 SELECT 模板
type SQLGenerator interface {
	Generate(ctx context.Context, intent *entity.QueryIntent, limit int) (string, error)
}

// ContextProvider 可选的查询上下文增强（web 检索摘要）
type ContextProvider interface {
	Snippets(ctx context.Context, query string, max int) ([]string, error)
}
