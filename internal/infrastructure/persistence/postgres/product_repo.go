package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shifat71/350/internal/application/index"
	"github.com/shifat71/350/internal/application/search"
	"github.com/shifat71/350/internal/domain/entity"
)

// allProductsQuery 全量商品读取，列别名与检索模板保持一致
const allProductsQuery = `
SELECT p.id, p.name, p.description, p.price, p."originalPrice",
       p.image, p.images, p.rating, p.reviews, p."inStock", p.stock,
       p.features, p.specifications, c.name AS category_name
FROM products p
JOIN categories c ON p."categoryId" = c.id
ORDER BY p.id`

// ProductRepository 商品读取层：检索用的动态查询执行端和索引用的全量读取端
type ProductRepository struct {
	client *Client
}

// NewProductRepository 创建商品读取层
func NewProductRepository(client *Client) *ProductRepository {
	return &ProductRepository{client: client}
}

var (
	_ search.QueryExecutor = (*ProductRepository)(nil)
	_ index.ProductSource  = (*ProductRepository)(nil)
)

// Search 执行生成的 SELECT 模板。
// 模板已通过调用方的安全校验，这里只负责命名参数绑定与行扫描。
func (r *ProductRepository) Search(ctx context.Context, sqlText string, params map[string]any) ([]search.Row, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProductRepository.Search",
		trace.WithAttributes(attribute.Int("sql.param_count", len(params))))
	defer span.End()

	tx := r.client.db.WithContext(ctx)
	if len(params) > 0 {
		tx = tx.Raw(sqlText, params)
	} else {
		tx = tx.Raw(sqlText)
	}
	rows, err := tx.Rows()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("execute search query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	var result []search.Row
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}

		row := make(search.Row, len(columns))
		for i, col := range columns {
			// 驱动把 text/jsonb 交回 []byte，统一转成 string 方便下游归一
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
			if isArrayColumn(col) {
				row[col] = decodeTextArray(row[col])
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}

	span.SetAttributes(attribute.Int("sql.row_count", len(result)))
	return result, nil
}

// AllProducts 读取全量商品（嵌入重建用）
func (r *ProductRepository) AllProducts(ctx context.Context) ([]*entity.ProductCandidate, error) {
	ctx, span := tracer.Start(ctx, "postgres.ProductRepository.AllProducts")
	defer span.End()

	rows, err := r.Search(ctx, allProductsQuery, nil)
	if err != nil {
		return nil, err
	}

	products := make([]*entity.ProductCandidate, 0, len(rows))
	for _, row := range rows {
		p, err := search.CandidateFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("normalize product row: %w", err)
		}
		products = append(products, p)
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	return products, nil
}

// isArrayColumn 标记 schema 中的 text[] 列
func isArrayColumn(col string) bool {
	return col == "images" || col == "features"
}

// decodeTextArray 把 text[] 的数组字面量解析成 []string；
// 非数组字面量（比如已经是 JSON 的历史数据）原样保留
func decodeTextArray(v any) any {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return v
	}

	var arr pq.StringArray
	if err := arr.Scan(s); err != nil {
		return v
	}
	return []string(arr)
}
