package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shifat71/350/internal/application/index"
	"github.com/shifat71/350/pkg/metrics"
)

// Repository 商品向量仓储
type Repository struct {
	client *Client
}

// NewRepository 创建商品向量仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// ProductHit 向量检索的一条命中
type ProductHit struct {
	ID     string
	Score  float32
	Fields map[string]any
}

// EnsureProductsCollection 确保商品集合存在、已建索引并加载
func (r *Repository) EnsureProductsCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.EnsureProductsCollection")
	defer span.End()

	collName := r.client.CollectionName(CollectionProducts)

	has, err := r.client.milvus.HasCollection(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("check collection: %w", err)
	}
	if has {
		return r.client.LoadCollection(ctx, CollectionProducts)
	}

	schema := ProductsSchema(r.client.config.VectorDim)
	schema.CollectionName = collName
	if err := r.client.milvus.CreateCollection(ctx, schema, mentity.DefaultShardNumber); err != nil {
		span.RecordError(err)
		return fmt.Errorf("create collection: %w", err)
	}

	idx, err := mentity.NewIndexHNSW(
		mentity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false); err != nil {
		span.RecordError(err)
		return fmt.Errorf("create index: %w", err)
	}

	return r.client.LoadCollection(ctx, CollectionProducts)
}

// Reset 清空商品集合（删除后重建）
func (r *Repository) Reset(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.Reset")
	defer span.End()

	collName := r.client.CollectionName(CollectionProducts)

	has, err := r.client.milvus.HasCollection(ctx, collName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("check collection: %w", err)
	}
	if has {
		if err := r.client.milvus.DropCollection(ctx, collName); err != nil {
			span.RecordError(err)
			return fmt.Errorf("drop collection: %w", err)
		}
	}

	return r.EnsureProductsCollection(ctx)
}

// Upsert 批量写入商品嵌入
func (r *Repository) Upsert(ctx context.Context, entries []index.Entry) error {
	ctx, span := tracer.Start(ctx, "milvus.Upsert",
		trace.WithAttributes(attribute.Int("entry_count", len(entries))))
	defer span.End()

	if len(entries) == 0 {
		return nil
	}

	n := len(entries)
	ids := make([]string, n)
	vectors := make([][]float32, n)
	backendIDs := make([]int64, n)
	names := make([]string, n)
	descriptions := make([]string, n)
	prices := make([]float64, n)
	images := make([]string, n)
	ratings := make([]float64, n)
	reviews := make([]int64, n)
	inStock := make([]bool, n)
	stocks := make([]int64, n)
	features := make([]string, n)
	specifications := make([]string, n)
	categories := make([]string, n)

	for i, e := range entries {
		p := e.Product
		ids[i] = e.ID
		vectors[i] = toFloat32(e.Vector)
		backendIDs[i] = p.ID
		names[i] = p.Name
		descriptions[i] = p.Description
		prices[i] = p.Price
		images[i] = p.Image
		ratings[i] = p.Rating
		reviews[i] = int64(p.Reviews)
		inStock[i] = p.InStock
		stocks[i] = int64(p.Stock)
		features[i] = marshalJSON(p.Features)
		specifications[i] = marshalJSON(p.Specifications)
		categories[i] = p.CategoryName
	}

	collName := r.client.CollectionName(CollectionProducts)
	_, err := r.client.milvus.Upsert(ctx, collName, "",
		mentity.NewColumnVarChar("id", ids),
		mentity.NewColumnFloatVector("vector", r.client.config.VectorDim, vectors),
		mentity.NewColumnInt64("backend_id", backendIDs),
		mentity.NewColumnVarChar("name", names),
		mentity.NewColumnVarChar("description", descriptions),
		mentity.NewColumnDouble("price", prices),
		mentity.NewColumnVarChar("image", images),
		mentity.NewColumnDouble("rating", ratings),
		mentity.NewColumnInt64("reviews", reviews),
		mentity.NewColumnBool("in_stock", inStock),
		mentity.NewColumnInt64("stock", stocks),
		mentity.NewColumnVarChar("features", features),
		mentity.NewColumnVarChar("specifications", specifications),
		mentity.NewColumnVarChar("category", categories),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("upsert products: %w", err)
	}
	return nil
}

// SearchByVector 按查询向量检索最相似的商品
func (r *Repository) SearchByVector(ctx context.Context, vector []float32, topK int, exclude string) ([]*ProductHit, error) {
	ctx, span := tracer.Start(ctx, "milvus.SearchByVector",
		trace.WithAttributes(attribute.Int("top_k", topK)))
	defer span.End()

	collName := r.client.CollectionName(CollectionProducts)

	filter := ""
	if exclude != "" {
		filter = fmt.Sprintf(`id != "%s"`, exclude)
	}

	sp, err := mentity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("build search param: %w", err)
	}

	start := time.Now()
	results, err := r.client.milvus.Search(ctx,
		collName,
		nil,
		filter,
		productOutputFields,
		[]mentity.Vector{mentity.FloatVector(vector)},
		"vector",
		mentity.COSINE,
		topK,
		sp,
	)
	metrics.MilvusSearchDuration.WithLabelValues(CollectionProducts).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MilvusSearchTotal.WithLabelValues(CollectionProducts, "error").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("search products: %w", err)
	}
	metrics.MilvusSearchTotal.WithLabelValues(CollectionProducts, "success").Inc()

	var hits []*ProductHit
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			hit := &ProductHit{
				Score:  result.Scores[i],
				Fields: make(map[string]any, len(productOutputFields)),
			}
			for _, field := range productOutputFields {
				v, ok := columnValue(result.Fields.GetColumn(field), i)
				if !ok {
					continue
				}
				if field == "id" {
					hit.ID, _ = v.(string)
				}
				hit.Fields[field] = v
			}
			hits = append(hits, hit)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(hits)))
	return hits, nil
}

// VectorOfProduct 读取指定商品的存量向量；商品未建索引时返回 (nil, nil)
func (r *Repository) VectorOfProduct(ctx context.Context, id string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "milvus.VectorOfProduct",
		trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	collName := r.client.CollectionName(CollectionProducts)

	rs, err := r.client.milvus.Query(ctx, collName, nil,
		fmt.Sprintf(`id == "%s"`, id), []string{"vector"})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query product vector: %w", err)
	}

	for _, col := range rs {
		vec, ok := col.(*mentity.ColumnFloatVector)
		if !ok || vec.Len() == 0 {
			continue
		}
		return vec.Data()[0], nil
	}
	return nil, nil
}

// columnValue 按下标取出一列的值
func columnValue(col mentity.Column, i int) (any, bool) {
	switch c := col.(type) {
	case *mentity.ColumnVarChar:
		if i < len(c.Data()) {
			return c.Data()[i], true
		}
	case *mentity.ColumnInt64:
		if i < len(c.Data()) {
			return c.Data()[i], true
		}
	case *mentity.ColumnDouble:
		if i < len(c.Data()) {
			return c.Data()[i], true
		}
	case *mentity.ColumnBool:
		if i < len(c.Data()) {
			return c.Data()[i], true
		}
	}
	return nil, false
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
