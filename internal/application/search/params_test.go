package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shifat71/350/internal/domain/entity"
)

func floatPtr(v float64) *float64 { return &v }

func TestBindParametersFullIntent(t *testing.T) {
	intent := &entity.QueryIntent{
		Category: "笔记本电脑",
		Features: []string{"轻薄", "长续航"},
		PriceRange: entity.PriceRange{
			Min: floatPtr(3000),
			Max: floatPtr(8000),
		},
		Brands:      []string{"联想"},
		Constraints: []string{"现货"},
	}

	params := BindParameters(intent, 10, 8)

	assert.Equal(t, 10, params["limit"])
	assert.Equal(t, "%笔记本电脑%", params["category_name"])
	assert.Equal(t, 3000.0, params["min_price"])
	assert.Equal(t, 8000.0, params["max_price"])
	assert.Equal(t, "%轻薄%", params["feature1"])
	assert.Equal(t, "%长续航%", params["feature2"])
	assert.Equal(t, "%联想%", params["brand1"])
	assert.Equal(t, "%现货%", params["constraint1"])
}

func TestBindParametersEmptyIntent(t *testing.T) {
	params := BindParameters(&entity.QueryIntent{}, 5, 8)

	// 未提取到的字符串槽位给 "%%" 通配，数值槽位给 NULL
	assert.Equal(t, "%%", params["category_name"])
	assert.Nil(t, params["min_price"])
	assert.Nil(t, params["max_price"])
	for _, key := range []string{"feature1", "feature8", "brand1", "brand5", "constraint1", "constraint5"} {
		assert.Equal(t, "%%", params[key], key)
	}
}

func TestBindParametersSlotArity(t *testing.T) {
	intent := &entity.QueryIntent{
		Features: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"},
	}

	params := BindParameters(intent, 5, 8)

	// 槽位数固定为 8，超出的特性不绑定
	assert.Equal(t, "%h%", params["feature8"])
	_, ok := params["feature9"]
	assert.False(t, ok)

	// 每个可能被模板引用的键都存在
	expected := 4 + 8 + 5 + 5 // limit/category/min/max + features + brands + constraints
	require.Len(t, params, expected)
}

func TestBindParametersDefaultSlots(t *testing.T) {
	params := BindParameters(&entity.QueryIntent{}, 5, 0)
	assert.Contains(t, params, "feature8")
	assert.NotContains(t, params, "feature9")
}
