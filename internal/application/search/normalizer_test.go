package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateFromRowFullColumns(t *testing.T) {
	row := Row{
		"id":             int64(12),
		"name":           "降噪耳机",
		"description":    "主动降噪，40 小时续航",
		"price":          899.0,
		"originalPrice":  1099.0,
		"image":          "https://img.example.com/12.jpg",
		"images":         `["https://img.example.com/12-1.jpg","https://img.example.com/12-2.jpg"]`,
		"rating":         4.7,
		"reviews":        int64(2310),
		"inStock":        true,
		"stock":          int64(58),
		"features":       `["主动降噪","蓝牙 5.3"]`,
		"specifications": `{"重量":"254g","续航":"40h"}`,
		"category_name":  "音频设备",
	}

	c, err := CandidateFromRow(row)
	require.NoError(t, err)

	assert.Equal(t, int64(12), c.ID)
	assert.Equal(t, "降噪耳机", c.Name)
	assert.Equal(t, 899.0, c.Price)
	require.NotNil(t, c.OriginalPrice)
	assert.Equal(t, 1099.0, *c.OriginalPrice)
	assert.Len(t, c.Images, 2)
	assert.Equal(t, 4.7, c.Rating)
	assert.Equal(t, 2310, c.Reviews)
	assert.True(t, c.InStock)
	assert.Equal(t, 58, c.Stock)
	assert.Equal(t, []string{"主动降噪", "蓝牙 5.3"}, c.Features)
	assert.Equal(t, "40h", c.Specifications["续航"])
	assert.Equal(t, "音频设备", c.CategoryName)
}

func TestCandidateFromRowMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		row  Row
	}{
		{"缺 id", Row{"name": "x", "price": 1.0, "image": "i", "category_name": "c"}},
		{"id 带小数", Row{"id": 3.5, "name": "x", "price": 1.0, "image": "i", "category_name": "c"}},
		{"缺 name", Row{"id": int64(1), "price": 1.0, "image": "i", "category_name": "c"}},
		{"缺 price", Row{"id": int64(1), "name": "x", "image": "i", "category_name": "c"}},
		{"缺 image", Row{"id": int64(1), "name": "x", "price": 1.0, "category_name": "c"}},
		{"缺 category_name", Row{"id": int64(1), "name": "x", "price": 1.0, "image": "i"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CandidateFromRow(tt.row)
			assert.Error(t, err)
		})
	}
}

func TestCandidateFromRowOptionalDefaults(t *testing.T) {
	c, err := CandidateFromRow(sqlRow(5, "极简行", 49.9))
	require.NoError(t, err)

	assert.Nil(t, c.OriginalPrice)
	assert.NotNil(t, c.Images)
	assert.Empty(t, c.Images)
	assert.NotNil(t, c.Features)
	assert.NotNil(t, c.Specifications)
	assert.False(t, c.InStock)
	assert.Zero(t, c.Stock)
}

func TestCandidateFromHitIdentity(t *testing.T) {
	t.Run("backend_id 优先", func(t *testing.T) {
		c, err := CandidateFromHit(VectorHit{
			ID:       "999",
			Metadata: map[string]any{"backend_id": int64(7)},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), c.ID)
	})

	t.Run("回退命中 ID", func(t *testing.T) {
		c, err := CandidateFromHit(VectorHit{ID: "31", Metadata: map[string]any{}})
		require.NoError(t, err)
		assert.Equal(t, int64(31), c.ID)
	})

	t.Run("浮点形式的 backend_id", func(t *testing.T) {
		c, err := CandidateFromHit(VectorHit{
			ID:       "x",
			Metadata: map[string]any{"backend_id": float64(15)},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(15), c.ID)
	})

	t.Run("两路都无法解析", func(t *testing.T) {
		_, err := CandidateFromHit(VectorHit{
			ID:       "legacy-uuid",
			Metadata: map[string]any{"backend_id": "not-a-number"},
		})
		require.ErrorIs(t, err, ErrBadIdentity)
	})

	t.Run("元数据为 nil", func(t *testing.T) {
		_, err := CandidateFromHit(VectorHit{ID: "uuid-only"})
		require.ErrorIs(t, err, ErrBadIdentity)
	})
}

func TestCandidateFromHitMetadata(t *testing.T) {
	c, err := CandidateFromHit(VectorHit{
		ID: "3",
		Metadata: map[string]any{
			"backend_id":     int64(3),
			"name":           "便携音箱",
			"description":    "IPX7 防水",
			"price":          "199.5",
			"originalPrice":  float64(259),
			"image":          "https://img.example.com/3.jpg",
			"rating":         float64(4.2),
			"reviews":        float64(87),
			"in_stock":       true,
			"stock":          float64(12),
			"features":       `["防水","便携"]`,
			"specifications": `{"电池":"2600mAh"}`,
			"category":       "音频设备",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "便携音箱", c.Name)
	assert.Equal(t, 199.5, c.Price)
	require.NotNil(t, c.OriginalPrice)
	assert.Equal(t, 259.0, *c.OriginalPrice)
	assert.True(t, c.InStock)
	assert.Equal(t, 12, c.Stock)
	assert.Equal(t, []string{"防水", "便携"}, c.Features)
	assert.Equal(t, "2600mAh", c.Specifications["电池"])
	assert.Equal(t, "音频设备", c.CategoryName)
}

func TestDecodeStringList(t *testing.T) {
	assert.Empty(t, decodeStringList(nil))
	assert.Equal(t, []string{"a", "b"}, decodeStringList([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, decodeStringList([]any{"a", "b"}))
	assert.Equal(t, []string{"a"}, decodeStringList(`["a"]`))
	assert.Empty(t, decodeStringList(`{not json`))
	assert.Empty(t, decodeStringList(42))
}

func TestDecodeStringMap(t *testing.T) {
	assert.Empty(t, decodeStringMap(nil))
	assert.Equal(t, map[string]string{"k": "v"}, decodeStringMap(map[string]string{"k": "v"}))
	assert.Equal(t, map[string]string{"k": "v"}, decodeStringMap(`{"k":"v"}`))
	assert.Empty(t, decodeStringMap(`[broken`))
}
