package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionProducts 商品嵌入集合
	CollectionProducts = "products"

	// DefaultVectorDimension 未配置时的向量维度
	DefaultVectorDimension = 1536
)

// ProductsSchema 商品 Collection Schema。
// backend_id 冗余保存关系库主键，检索融合以它为身份依据；
// features 和 specifications 以 JSON 字符串保存。
func ProductsSchema(dim int) *entity.Schema {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	return &entity.Schema{
		CollectionName: CollectionProducts,
		Description:    "Product embeddings for semantic search",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
			{
				Name:     "backend_id",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "name",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "description",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "price",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "image",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "2048",
				},
			},
			{
				Name:     "rating",
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     "reviews",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "in_stock",
				DataType: entity.FieldTypeBool,
			},
			{
				Name:     "stock",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "features",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "8192",
				},
			},
			{
				Name:     "specifications",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "16384",
				},
			},
			{
				Name:     "category",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "256",
				},
			},
		},
	}
}

// productOutputFields 检索时取回的字段
var productOutputFields = []string{
	"id", "backend_id", "name", "description", "price", "image",
	"rating", "reviews", "in_stock", "stock", "features", "specifications", "category",
}
