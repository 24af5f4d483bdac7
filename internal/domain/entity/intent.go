// Package entity 定义领域实体
package entity

// 意图字段上限，超出部分在校验时截断
const (
	MaxIntentFeatures    = 10
	MaxIntentBrands      = 5
	MaxIntentConstraints = 5
)

// PriceRange 价格区间，nil 表示未指定
type PriceRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// QueryIntent 查询理解产出的结构化意图
type QueryIntent struct {
	Category    string     `json:"category"`
	Features    []string   `json:"features"`
	PriceRange  PriceRange `json:"price_range"`
	Brands      []string   `json:"brands"`
	Constraints []string   `json:"constraints"`
}

// Normalize 截断超限字段并保证价格区间有序
func (q *QueryIntent) Normalize() {
	if len(q.Features) > MaxIntentFeatures {
		q.Features = q.Features[:MaxIntentFeatures]
	}
	if len(q.Brands) > MaxIntentBrands {
		q.Brands = q.Brands[:MaxIntentBrands]
	}
	if len(q.Constraints) > MaxIntentConstraints {
		q.Constraints = q.Constraints[:MaxIntentConstraints]
	}
	if q.PriceRange.Min != nil && q.PriceRange.Max != nil && *q.PriceRange.Max < *q.PriceRange.Min {
		q.PriceRange.Min, q.PriceRange.Max = q.PriceRange.Max, q.PriceRange.Min
	}
}
