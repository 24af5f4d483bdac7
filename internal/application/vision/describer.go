// Package vision 以图搜商品的识图环节：把商品图片转成可检索的文本描述
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"

	"github.com/shifat71/350/pkg/metrics"
)

var tracer = otel.Tracer("vision")

// ErrImageDecode 表示图片输入不是合法的 base64 数据
var ErrImageDecode = errors.New("image payload is not valid base64")

const describePrompt = `描述这张图片中的商品。输出一段简短的中文检索文本，包含：商品类型、颜色、材质、风格等可辨识特征。只输出描述本身，不要客套话。`

// ModelProvider 提供识图所用的多模态 ChatModel
type ModelProvider interface {
	Vision(ctx context.Context) (model.BaseChatModel, error)
	VisionProviderName() string
}

// Describer 多模态识图器
type Describer struct {
	models  ModelProvider
	timeout time.Duration
}

// NewDescriber 创建识图器
func NewDescriber(models ModelProvider, timeout time.Duration) *Describer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Describer{models: models, timeout: timeout}
}

// Describe 将 base64 编码的商品图片转成文本描述。
// 输入可以是裸 base64，也可以是完整的 data URL；mimeType 仅在裸输入时生效。
func (d *Describer) Describe(ctx context.Context, imageBase64 string, mimeType string) (string, error) {
	ctx, span := tracer.Start(ctx, "vision.Describer.Describe")
	defer span.End()

	dataURL, err := normalizeImage(imageBase64, mimeType)
	if err != nil {
		return "", err
	}

	chatModel, err := d.models.Vision(ctx)
	if err != nil {
		return "", err
	}

	messages := []*schema.Message{
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{
					Type:     schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{URL: dataURL},
				},
				{
					Type: schema.ChatMessagePartTypeText,
					Text: describePrompt,
				},
			},
		},
	}

	provider := d.models.VisionProviderName()
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	outMsg, err := chatModel.Generate(cctx, messages)
	metrics.LLMCallDuration.WithLabelValues(provider, "vision").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LLMCallTotal.WithLabelValues(provider, "vision", "error").Inc()
		span.RecordError(err)
		return "", fmt.Errorf("vision llm call: %w", err)
	}
	metrics.LLMCallTotal.WithLabelValues(provider, "vision", "success").Inc()

	if outMsg == nil || strings.TrimSpace(outMsg.Content) == "" {
		return "", fmt.Errorf("empty vision response")
	}
	return strings.TrimSpace(outMsg.Content), nil
}

// normalizeImage 校验 base64 负载并补全 data URL 前缀
func normalizeImage(imageBase64 string, mimeType string) (string, error) {
	trimmed := strings.TrimSpace(imageBase64)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty payload", ErrImageDecode)
	}

	payload := trimmed
	if strings.HasPrefix(trimmed, "data:") {
		idx := strings.Index(trimmed, "base64,")
		if idx < 0 {
			return "", fmt.Errorf("%w: data url without base64 payload", ErrImageDecode)
		}
		payload = trimmed[idx+len("base64,"):]
	}

	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	if strings.HasPrefix(trimmed, "data:") {
		return trimmed, nil
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, payload), nil
}
