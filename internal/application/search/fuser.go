package search

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/shifat71/350/internal/domain/entity"
	"github.com/shifat71/350/pkg/logger"
	"github.com/shifat71/350/pkg/metrics"
)

const (
	// baseSQLScore 结构化精确匹配的基础置信度
	baseSQLScore = 1.0
	// maxFusedScore 理论上限：一次关系命中 + 一次完美向量命中
	maxFusedScore = 2.0
)

// Fuse 将关系库候选与向量候选合并为一个去重、排序、截断后的结果集。
//
// 关系行先以基础分 1.0 入表，随后按向量库返回顺序折叠命中：
// 同一 ID 的命中把相似度 (1 - 距离) 累加到已有分数上，新 ID 以相似度
// 建档。身份无法归一的命中被丢弃（告警，不中断）。排序按分数降序，
// 同分按 ID 升序保证确定性；截断到 limit 后对分数做 2.0 封顶，防止
// 病态负距离无界抬分。
func Fuse(ctx context.Context, rows []Row, hits []VectorHit, limit int) (*entity.SearchResult, error) {
	if limit < 1 {
		limit = 1
	}

	byID := make(map[string]*entity.ProductCandidate, len(rows)+len(hits))

	for _, row := range rows {
		c, err := CandidateFromRow(row)
		if err != nil {
			// 关系侧默认 schema 可信，坏行说明上游查询已经失效
			return nil, err
		}
		c.Score = baseSQLScore
		byID[strconv.FormatInt(c.ID, 10)] = c
	}
	metrics.FusionCandidates.WithLabelValues("sql").Observe(float64(len(byID)))

	for _, hit := range hits {
		similarity := 1.0 - hit.Distance

		c, err := CandidateFromHit(hit)
		if err != nil {
			if errors.Is(err, ErrBadIdentity) {
				logger.Warn(ctx, "dropping vector hit with unreconcilable identity",
					"hit_id", hit.ID,
					"distance", hit.Distance,
				)
				metrics.FusionDropped.WithLabelValues("bad_identity").Inc()
				continue
			}
			return nil, err
		}

		key := strconv.FormatInt(c.ID, 10)
		if existing, ok := byID[key]; ok {
			// 双信号确认的候选获得加分；合并只增不减
			existing.Score += similarity
		} else {
			c.Score = similarity
			byID[key] = c
		}
	}
	metrics.FusionCandidates.WithLabelValues("vector").Observe(float64(len(hits)))
	metrics.FusionCandidates.WithLabelValues("merged").Observe(float64(len(byID)))

	products := make([]*entity.ProductCandidate, 0, len(byID))
	for _, c := range byID {
		products = append(products, c)
	}

	sort.Slice(products, func(i, j int) bool {
		if products[i].Score != products[j].Score {
			return products[i].Score > products[j].Score
		}
		return products[i].ID < products[j].ID
	})

	if len(products) > limit {
		products = products[:limit]
	}

	for _, c := range products {
		if c.Score > maxFusedScore {
			c.Score = maxFusedScore
		}
	}

	return &entity.SearchResult{
		Products: products,
		Total:    len(products),
	}, nil
}
