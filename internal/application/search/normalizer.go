package search

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shifat71/350/internal/domain/entity"
)

// CandidateFromRow 将关系库行归一为候选记录。
// 行来自 schema 校验过的 SELECT，必选列缺失或类型错误视为本次检索的致命错误。
func CandidateFromRow(row Row) (*entity.ProductCandidate, error) {
	id, ok := asInt64(row["id"])
	if !ok {
		return nil, fmt.Errorf("row missing integer id: %v", row["id"])
	}
	name, ok := asString(row["name"])
	if !ok {
		return nil, fmt.Errorf("row %d missing name", id)
	}
	price, ok := asFloat64(row["price"])
	if !ok {
		return nil, fmt.Errorf("row %d missing price", id)
	}
	image, ok := asString(row["image"])
	if !ok {
		return nil, fmt.Errorf("row %d missing image", id)
	}
	category, ok := asString(row["category_name"])
	if !ok {
		return nil, fmt.Errorf("row %d missing category_name", id)
	}

	c := &entity.ProductCandidate{
		ID:           id,
		Name:         name,
		Price:        price,
		Image:        image,
		CategoryName: category,
	}

	// 可选列，缺失时保持零值
	if v, ok := asString(row["description"]); ok {
		c.Description = v
	}
	if v, ok := asFloat64(row["originalPrice"]); ok {
		c.OriginalPrice = &v
	}
	c.Images = decodeStringList(row["images"])
	if v, ok := asFloat64(row["rating"]); ok {
		c.Rating = v
	}
	if v, ok := asInt64(row["reviews"]); ok {
		c.Reviews = int(v)
	}
	if v, ok := asBool(row["inStock"]); ok {
		c.InStock = v
	}
	if v, ok := asInt64(row["stock"]); ok {
		c.Stock = int(v)
	}
	c.Features = decodeStringList(row["features"])
	c.Specifications = decodeStringMap(row["specifications"])

	return c, nil
}

// CandidateFromHit 将向量命中的元数据归一为候选记录。
// 身份归一失败（backend_id 及命中自身 ID 均无法解析为整数）时返回
// ErrBadIdentity，调用方丢弃该命中并记录告警。
func CandidateFromHit(hit VectorHit) (*entity.ProductCandidate, error) {
	meta := hit.Metadata
	if meta == nil {
		meta = map[string]any{}
	}

	id, ok := asInt64(meta["backend_id"])
	if !ok {
		// 回退到向量库自身的键（后端 ID 的字符串形式）
		id, ok = asInt64(hit.ID)
	}
	if !ok {
		return nil, fmt.Errorf("%w: id=%q backend_id=%v", ErrBadIdentity, hit.ID, meta["backend_id"])
	}

	c := &entity.ProductCandidate{ID: id}
	if v, ok := asString(meta["name"]); ok {
		c.Name = v
	}
	if v, ok := asString(meta["description"]); ok {
		c.Description = v
	}
	if v, ok := asFloat64(meta["price"]); ok {
		c.Price = v
	}
	if v, ok := asFloat64(meta["originalPrice"]); ok {
		c.OriginalPrice = &v
	}
	if v, ok := asString(meta["image"]); ok {
		c.Image = v
	}
	c.Images = decodeStringList(meta["images"])
	if v, ok := asFloat64(meta["rating"]); ok {
		c.Rating = v
	}
	if v, ok := asInt64(meta["reviews"]); ok {
		c.Reviews = int(v)
	}
	if v, ok := asBool(meta["in_stock"]); ok {
		c.InStock = v
	}
	if v, ok := asInt64(meta["stock"]); ok {
		c.Stock = int(v)
	}
	c.Features = decodeStringList(meta["features"])
	c.Specifications = decodeStringMap(meta["specifications"])
	if v, ok := asString(meta["category"]); ok {
		c.CategoryName = v
	}

	return c, nil
}

// decodeStringList 容错解析列表字段：可能是字面列表，也可能是
// 序列化后的 JSON 字符串；解析失败回退为空列表，绝不向上传播。
func decodeStringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := asString(e); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(t), &out); err != nil || out == nil {
			return []string{}
		}
		return out
	default:
		return []string{}
	}
}

// decodeStringMap 容错解析映射字段，策略同 decodeStringList
func decodeStringMap(v any) map[string]string {
	switch t := v.(type) {
	case nil:
		return map[string]string{}
	case map[string]string:
		return t
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, e := range t {
			if s, ok := asString(e); ok {
				out[k] = s
			} else {
				out[k] = fmt.Sprintf("%v", e)
			}
		}
		return out
	case string:
		var out map[string]string
		if err := json.Unmarshal([]byte(t), &out); err != nil || out == nil {
			return map[string]string{}
		}
		return out
	case []byte:
		var out map[string]string
		if err := json.Unmarshal(t, &out); err != nil || out == nil {
			return map[string]string{}
		}
		return out
	default:
		return map[string]string{}
	}
}

// asInt64 宽松整数转换；拒绝带小数部分的浮点值
func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float32:
		if t == float32(int64(t)) {
			return int64(t), true
		}
		return 0, false
	case float64:
		if t == float64(int64(t)) {
			return int64(t), true
		}
		return 0, false
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// asFloat64 宽松浮点转换
func asFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// asString 非空字符串转换
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case []byte:
		if len(t) == 0 {
			return "", false
		}
		return string(t), true
	default:
		return "", false
	}
}

// asBool 宽松布尔转换
func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}
