// Package entity 定义领域实体
package entity

// ProductCandidate 融合前后的商品候选记录
// ID 使用后端关系库中的整数主键，是唯一对外暴露的商品标识。
type ProductCandidate struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Price          float64           `json:"price"`
	OriginalPrice  *float64          `json:"originalPrice,omitempty"`
	Image          string            `json:"image"`
	Images         []string          `json:"images"`
	Rating         float64           `json:"rating"`
	Reviews        int               `json:"reviews"`
	InStock        bool              `json:"inStock"`
	Stock          int               `json:"stock"`
	Features       []string          `json:"features"`
	Specifications map[string]string `json:"specifications"`
	CategoryName   string            `json:"category_name"`
	Score          float64           `json:"score"`
}

// SearchResult 一次检索的最终结果
type SearchResult struct {
	Products []*ProductCandidate `json:"products"`
	Total    int                 `json:"total"`
}

// RecommendResult 相似商品推荐结果
type RecommendResult struct {
	Recommendations []*ProductCandidate `json:"recommendations"`
	Total           int                 `json:"total"`
}
