package search

import "errors"

var (
	// ErrEmptyQuery 表示请求中缺少查询文本
	ErrEmptyQuery = errors.New("query is empty")

	// ErrInvalidLimit 表示调用方传入的 limit 超出合法区间
	ErrInvalidLimit = errors.New("limit out of range")

	// ErrCacheMiss 缓存未命中；由 Cache 实现返回
	ErrCacheMiss = errors.New("cache miss")

	// ErrIntentParse 表示查询理解输出不符合结构化契约，检索无法继续
	ErrIntentParse = errors.New("intent output failed schema validation")

	// ErrUnsafeSQL 表示生成的 SQL 未通过安全校验，拒绝执行
	ErrUnsafeSQL = errors.New("generated sql rejected by validation")

	// ErrBadIdentity 表示向量命中无法归一到整数后端 ID，该候选被丢弃
	ErrBadIdentity = errors.New("vector hit identity cannot be reconciled to a backend id")
)
