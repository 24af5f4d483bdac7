// Package intent 查询理解管道：意图提取与 SQL 生成的 LLM 适配器
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

const extractSystemPrompt = `你是电商搜索的查询理解组件。从用户查询中提取结构化购物意图，只输出一个 JSON 对象，不要任何解释文字。

JSON 结构：
{
  "category": "商品类目，无法判断时为空字符串",
  "features": ["商品特性关键词，最多 10 个"],
  "price_range": {"min": null 或数字, "max": null 或数字},
  "brands": ["品牌，最多 5 个"],
  "constraints": ["其他硬性约束（如 现货、高评分），最多 5 个"]
}

规则：
- 所有字段都必须出现；提取不到就给空值（空字符串 / 空数组 / null）
- 价格只在查询明确提到时填写，单位按查询原文
- 不要编造查询中不存在的信息`

// Extractor 基于 ChatModel 的意图提取器
type Extractor struct {
	factory *llm.EinoFactory
}

// NewExtractor 创建意图提取器
func NewExtractor(factory *llm.EinoFactory) *Extractor {
	return &Extractor{factory: factory}
}

var _ search.IntentExtractor = (*Extractor)(nil)

// Extract 将自然语言查询解析为结构化意图。
// 模型输出不是合法 JSON 或不符合结构契约时返回 search.ErrIntentParse。
func (e *Extractor) Extract(ctx context.Context, query string, webContext string) (*entity.QueryIntent, error) {
	chatModel, err := e.factory.Default(ctx)
	if err != nil {
		return nil, err
	}

	userContent := "用户查询：" + query
	if webContext != "" {
		userContent += "\n\n参考的网络检索摘要（仅用于消歧，不要引入查询之外的约束）：\n" + webContext
	}

	messages := []*schema.Message{
		schema.SystemMessage(extractSystemPrompt),
		schema.UserMessage(userContent),
	}

	provider := e.factory.DefaultProviderName()
	start := time.Now()
	outMsg, err := chatModel.Generate(ctx, messages)
	metrics.LLMCallDuration.WithLabelValues(provider, "intent").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(provider, "intent", "error").Inc()
		return nil, fmt.Errorf("intent llm call: %w", err)
	}
	metrics.LLMCallTotal.WithLabelValues(provider, "intent", "success").Inc()
	if outMsg == nil || outMsg.Content == "" {
		return nil, fmt.Errorf("%w: empty llm response", search.ErrIntentParse)
	}

	raw := extractJSONObject(outMsg.Content)

	var intent entity.QueryIntent
	if err := json.Unmarshal([]byte(raw), &intent); err != nil {
		return nil, fmt.Errorf("%w: %v", search.ErrIntentParse, err)
	}

	return &intent, nil
}
