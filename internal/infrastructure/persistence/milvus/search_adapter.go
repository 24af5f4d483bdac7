package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/shifat71/350/internal/application/index"
	"github.com/shifat71/350/internal/application/recommend"
	"github.com/shifat71/350/internal/application/search"
)

// SearchAdapter 把商品向量仓储适配成检索核心的窄接口。
// Milvus 的 COSINE 返回相似度分数，这里统一换算成余弦距离
// (distance = 1 - score)，保持核心 [0, 2] 的距离契约。
type SearchAdapter struct {
	repo     *Repository
	embedder embedding.Embedder
}

// NewSearchAdapter 创建向量检索适配器
func NewSearchAdapter(repo *Repository, embedder embedding.Embedder) *SearchAdapter {
	return &SearchAdapter{repo: repo, embedder: embedder}
}

var (
	_ search.VectorIndex      = (*SearchAdapter)(nil)
	_ recommend.NeighborIndex = (*SearchAdapter)(nil)
	_ index.VectorWriter      = (*SearchAdapter)(nil)
)

// Search 按查询文本检索最相似的商品
func (a *SearchAdapter) Search(ctx context.Context, query string, nResults int) ([]search.VectorHit, error) {
	vectors, err := a.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	hits, err := a.repo.SearchByVector(ctx, toFloat32(vectors[0]), nResults, "")
	if err != nil {
		return nil, err
	}
	return toVectorHits(hits), nil
}

// Neighbors 按商品 ID 查近邻；商品未建索引时返回 recommend.ErrNotIndexed
func (a *SearchAdapter) Neighbors(ctx context.Context, productID int64, nResults int) ([]search.VectorHit, error) {
	id := strconv.FormatInt(productID, 10)

	vector, err := a.repo.VectorOfProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if vector == nil {
		return nil, recommend.ErrNotIndexed
	}

	hits, err := a.repo.SearchByVector(ctx, vector, nResults, id)
	if err != nil {
		return nil, err
	}
	return toVectorHits(hits), nil
}

// Reset 清空商品集合
func (a *SearchAdapter) Reset(ctx context.Context) error {
	return a.repo.Reset(ctx)
}

// Upsert 批量写入商品嵌入
func (a *SearchAdapter) Upsert(ctx context.Context, entries []index.Entry) error {
	return a.repo.Upsert(ctx, entries)
}

func toVectorHits(hits []*ProductHit) []search.VectorHit {
	out := make([]search.VectorHit, 0, len(hits))
	for _, h := range hits {
		doc, _ := h.Fields["description"].(string)
		out = append(out, search.VectorHit{
			ID:       h.ID,
			Document: doc,
			Metadata: h.Fields,
			Distance: 1.0 - float64(h.Score),
		})
	}
	return out
}
