package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/shifat71/350/internal/application/search"
	"github.com/shifat71/350/internal/domain/entity"
	"github.com/shifat71/350/internal/infrastructure/llm"
	"github.com/shifat71/350/pkg/metrics"
)

const sqlGenSystemPrompt = `你是电商搜索的 SQL 生成组件。根据结构化购物意图生成一条 PostgreSQL SELECT 查询，只输出 SQL 语句本身，不要解释，不要 markdown 代码块。

表结构（列名区分大小写，camelCase 列必须带双引号）：

products:
  id            integer 主键
  name          text
  description   text
  price         double precision
  "originalPrice" double precision 可空
  image         text
  images        text[]
  rating        double precision
  reviews       integer
  "inStock"     boolean
  stock         integer
  features      text[]
  specifications jsonb
  "categoryId"  integer 外键 -> categories.id

categories:
  id    integer 主键
  name  text

硬性规则：
- 只生成 SELECT；必须以 LIMIT @limit 结尾
- SELECT 至少包含 p.id, p.name, p.description, p.price, p."originalPrice",
  p.image, p.images, p.rating, p.reviews, p."inStock", p.stock,
  p.features, p.specifications, c.name AS category_name
- JOIN categories c ON p."categoryId" = c.id
- 条件值一律使用命名参数，不允许把意图内容拼进 SQL 字面量：
  @category_name, @min_price, @max_price,
  @feature1..@feature8, @brand1..@brand5, @constraint1..@constraint5
- 文本匹配用 ILIKE 配合参数（参数值已含通配符）；类目匹配写
  c.name ILIKE @category_name
- 价格条件写 (@min_price::float8 IS NULL OR p.price >= @min_price)
  这种空值安全形式
- 特性/品牌/约束按需匹配 name、description 或
  array_to_string(p.features, ' ') 的文本形式
- 意图里没有的条件不要生成`

// SQLGen 基于 ChatModel 的 SQL 生成器
type SQLGen struct {
	factory *llm.EinoFactory
}

// NewSQLGen 创建 SQL 生成器
func NewSQLGen(factory *llm.EinoFactory) *SQLGen {
	return &SQLGen{factory: factory}
}

var _ search.SQLGenerator = (*SQLGen)(nil)

// Generate 根据意图生成带命名参数的 SELECT 模板。
// 输出只做代码块剥离，安全校验由调用方的 ValidateSQL 负责。
func (g *SQLGen) Generate(ctx context.Context, intent *entity.QueryIntent, limit int) (string, error) {
	chatModel, err := g.factory.Default(ctx)
	if err != nil {
		return "", err
	}

	intentJSON, err := json.Marshal(intent)
	if err != nil {
		return "", fmt.Errorf("marshal intent: %w", err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(sqlGenSystemPrompt),
		schema.UserMessage(fmt.Sprintf("购物意图：\n%s\n\n结果上限：%d", intentJSON, limit)),
	}

	provider := g.factory.DefaultProviderName()
	start := time.Now()
	outMsg, err := chatModel.Generate(ctx, messages)
	metrics.LLMCallDuration.WithLabelValues(provider, "sql").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(provider, "sql", "error").Inc()
		return "", fmt.Errorf("sql llm call: %w", err)
	}
	metrics.LLMCallTotal.WithLabelValues(provider, "sql", "success").Inc()
	if outMsg == nil || outMsg.Content == "" {
		return "", fmt.Errorf("empty sql generation response")
	}

	return stripCodeFence(outMsg.Content), nil
}
