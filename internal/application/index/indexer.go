// Package index 商品嵌入索引的全量重建
package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shifat71/350/internal/application/admin"
	"github.com/shifat71/350/internal/domain/entity"
	"github.com/shifat71/350/pkg/logger"
	"github.com/shifat71/350/pkg/metrics"
)

var tracer = otel.Tracer("index")

// Entry 一条待写入向量库的索引记录
type Entry struct {
	ID      string
	Vector  []float64
	Product *entity.ProductCandidate
}

// ProductSource 全量商品的读取端
type ProductSource interface {
	AllProducts(ctx context.Context) ([]*entity.ProductCandidate, error)
}

// VectorWriter 向量库的写入端。
// Reset 清空现有集合，Upsert 按批写入。
type VectorWriter interface {
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, entries []Entry) error
}

// Rebuilder 执行一次全量嵌入重建：读库、嵌入、重写向量集合
type Rebuilder struct {
	source   ProductSource
	embedder embedding.Embedder
	writer   VectorWriter
	store    admin.TaskStore

	batchSize int
}

// NewRebuilder 创建重建执行器
func NewRebuilder(source ProductSource, embedder embedding.Embedder, writer VectorWriter,
	store admin.TaskStore, batchSize int) *Rebuilder {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Rebuilder{
		source:    source,
		embedder:  embedder,
		writer:    writer,
		store:     store,
		batchSize: batchSize,
	}
}

// Run 执行指定任务。任务状态变更全程落库，失败时任务标记 failed 并返回错误。
func (r *Rebuilder) Run(ctx context.Context, taskID string) error {
	ctx, span := tracer.Start(ctx, "index.Rebuilder.Run",
		trace.WithAttributes(attribute.String("task.id", taskID)))
	defer span.End()

	task, err := r.store.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}

	task.Start()
	if err := r.store.Save(ctx, task); err != nil {
		return fmt.Errorf("save task %s: %w", taskID, err)
	}

	indexed, err := r.rebuild(ctx)
	if err != nil {
		task.Fail(err.Error())
		if saveErr := r.store.Save(ctx, task); saveErr != nil {
			logger.Error(ctx, "failed to persist task failure", saveErr, "task_id", taskID)
		}
		metrics.IndexRebuildTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		return err
	}

	task.Complete(indexed)
	if err := r.store.Save(ctx, task); err != nil {
		return fmt.Errorf("save task %s: %w", taskID, err)
	}

	logger.Info(ctx, "embedding rebuild completed", "task_id", taskID, "indexed", indexed)
	metrics.IndexRebuildTotal.WithLabelValues("completed").Inc()
	return nil
}

func (r *Rebuilder) rebuild(ctx context.Context) (int, error) {
	products, err := r.source.AllProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("load products: %w", err)
	}
	if len(products) == 0 {
		logger.Warn(ctx, "no products to index")
	}

	if err := r.writer.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset vector collection: %w", err)
	}

	indexed := 0
	for start := 0; start < len(products); start += r.batchSize {
		end := start + r.batchSize
		if end > len(products) {
			end = len(products)
		}
		batch := products[start:end]

		docs := make([]string, len(batch))
		for i, p := range batch {
			docs[i] = Document(p)
		}

		vectors, err := r.embedder.EmbedStrings(ctx, docs)
		if err != nil {
			return indexed, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return indexed, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(batch))
		}

		entries := make([]Entry, len(batch))
		for i, p := range batch {
			entries[i] = Entry{
				ID:      strconv.FormatInt(p.ID, 10),
				Vector:  vectors[i],
				Product: p,
			}
		}
		if err := r.writer.Upsert(ctx, entries); err != nil {
			return indexed, fmt.Errorf("upsert batch at %d: %w", start, err)
		}

		indexed += len(batch)
		metrics.IndexedProducts.Add(float64(len(batch)))
	}

	return indexed, nil
}

// Document 构造商品的嵌入文本
func Document(p *entity.ProductCandidate) string {
	return strings.TrimSpace(p.Name + " " + p.Description)
}
