// Package websearch 查询上下文增强的网络检索客户端
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shifat71/350/internal/application/search"
)

var tracer = otel.Tracer("websearch")

const defaultEndpoint = "https://api.duckduckgo.com/"

// Client DuckDuckGo Instant Answer 客户端
type Client struct {
	endpoint   string
	httpClient *http.Client
}

type instantAnswer struct {
	AbstractText  string         `json:"AbstractText"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text   string         `json:"Text"`
	Topics []relatedTopic `json:"Topics"`
}

// NewClient 创建网络检索客户端；endpoint 为空时使用官方接口
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ search.ContextProvider = (*Client)(nil)

// Snippets 返回与查询相关的摘要片段，最多 max 条
func (c *Client) Snippets(ctx context.Context, query string, max int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "websearch.Snippets",
		trace.WithAttributes(attribute.Int("websearch.max", max)))
	defer span.End()

	if max <= 0 {
		max = 5
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid websearch endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create websearch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("websearch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("websearch returned status %d: %s", resp.StatusCode, string(body))
	}

	var answer instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode websearch response: %w", err)
	}

	snippets := make([]string, 0, max)
	if text := strings.TrimSpace(answer.AbstractText); text != "" {
		snippets = append(snippets, text)
	}
	snippets = appendTopics(snippets, answer.RelatedTopics, max)

	span.SetAttributes(attribute.Int("websearch.snippet_count", len(snippets)))
	return snippets, nil
}

// appendTopics 展平嵌套的主题列表
func appendTopics(snippets []string, topics []relatedTopic, max int) []string {
	for _, topic := range topics {
		if len(snippets) >= max {
			return snippets
		}
		if text := strings.TrimSpace(topic.Text); text != "" {
			snippets = append(snippets, text)
		}
		if len(topic.Topics) > 0 {
			snippets = appendTopics(snippets, topic.Topics, max)
		}
	}
	return snippets
}
