package search

import (
	"fmt"

	"github.com/shifat71/350/internal/domain/entity"
)

const (
	defaultFeatureSlots = 8
	brandSlots          = 5
	constraintSlots     = 5
)

// BindParameters 为生成的 SQL 模板准备完整的参数集合。
//
// 模板可能引用的每个槽位都必须有值：字符串槽位（类目、特性、品牌、
// 约束）未提取到时绑定 "%%" 通配，数值槽位（价格区间）绑定 NULL，
// 这样引用第 k 个槽位的模板在提取数量不足 k 时也不会因缺参报错。
func BindParameters(intent *entity.QueryIntent, limit int, featureSlots int) map[string]any {
	if featureSlots <= 0 {
		featureSlots = defaultFeatureSlots
	}

	params := map[string]any{
		"limit": limit,
	}

	if intent.Category != "" {
		params["category_name"] = "%" + intent.Category + "%"
	} else {
		params["category_name"] = "%%"
	}

	if intent.PriceRange.Min != nil {
		params["min_price"] = *intent.PriceRange.Min
	} else {
		params["min_price"] = nil
	}
	if intent.PriceRange.Max != nil {
		params["max_price"] = *intent.PriceRange.Max
	} else {
		params["max_price"] = nil
	}

	bindSlots(params, "feature", intent.Features, featureSlots)
	bindSlots(params, "brand", intent.Brands, brandSlots)
	bindSlots(params, "constraint", intent.Constraints, constraintSlots)

	return params
}

// bindSlots 填充 name1..nameN 槽位，超出提取数量的槽位给通配值
func bindSlots(params map[string]any, name string, values []string, slots int) {
	for i := 0; i < slots; i++ {
		key := fmt.Sprintf("%s%d", name, i+1)
		if i < len(values) && values[i] != "" {
			params[key] = "%" + values[i] + "%"
		} else {
			params[key] = "%%"
		}
	}
}
