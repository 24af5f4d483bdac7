package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"纯对象", `{"category":"键盘"}`, `{"category":"键盘"}`},
		{"前后缀噪音", "好的，提取结果如下：\n{\"category\":\"键盘\"}\n希望有帮助", `{"category":"键盘"}`},
		{"代码块", "```json\n{\"category\":\"键盘\"}\n```", `{"category":"键盘"}`},
		{"数组", `[1,2,3]`, `[1,2,3]`},
		{"非 JSON 回退原文", "抱歉我无法处理", "抱歉我无法处理"},
		{"空输入", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONObject(tt.in))
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"无代码块", "SELECT id FROM products LIMIT @limit", "SELECT id FROM products LIMIT @limit"},
		{"sql 代码块", "```sql\nSELECT id FROM products LIMIT @limit\n```", "SELECT id FROM products LIMIT @limit"},
		{"无语言标记", "```\nSELECT 1 LIMIT 1\n```", "SELECT 1 LIMIT 1"},
		{"带前后空白", "  ```sql\nSELECT 1 LIMIT 1\n```  ", "SELECT 1 LIMIT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}
