package search

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shifat71/350/internal/domain/entity"
)

type fakeExecutor struct {
	rows  []Row
	err   error
	calls atomic.Int32

	gotSQL    string
	gotParams map[string]any
}

func (f *fakeExecutor) Search(ctx context.Context, sql string, params map[string]any) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls.Add(1)
	f.gotSQL = sql
	f.gotParams = params
	return f.rows, f.err
}

type fakeVector struct {
	hits  []VectorHit
	err   error
	calls atomic.Int32

	gotQuery   string
	gotResults int
}

func (f *fakeVector) Search(_ context.Context, query string, nResults int) ([]VectorHit, error) {
	f.calls.Add(1)
	f.gotQuery = query
	f.gotResults = nResults
	return f.hits, f.err
}

type fakeCache struct {
	data   map[string][]byte
	getErr error
	setErr error

	gotSetKey string
	gotSetTTL time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.gotSetKey = key
	f.gotSetTTL = ttl
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

type fakeIntents struct {
	intent *entity.QueryIntent
	err    error
	calls  atomic.Int32

	gotWebContext string
}

func (f *fakeIntents) Extract(ctx context.Context, _ string, webContext string) (*entity.QueryIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.calls.Add(1)
	f.gotWebContext = webContext
	if f.err != nil {
		return nil, f.err
	}
	if f.intent != nil {
		return f.intent, nil
	}
	return &entity.QueryIntent{}, nil
}

type fakeSQLGen struct {
	sql   string
	err   error
	calls atomic.Int32
}

func (f *fakeSQLGen) Generate(_ context.Context, _ *entity.QueryIntent, _ int) (string, error) {
	f.calls.Add(1)
	return f.sql, f.err
}

type fakeWebContext struct {
	snippets []string
	err      error
}

func (f *fakeWebContext) Snippets(_ context.Context, _ string, _ int) ([]string, error) {
	return f.snippets, f.err
}

const validSQL = "SELECT id, name, price, image, category_name FROM products LIMIT @limit"

type engineFixture struct {
	executor *fakeExecutor
	vector   *fakeVector
	cache    *fakeCache
	intents  *fakeIntents
	sqlgen   *fakeSQLGen
}

func newFixture() *engineFixture {
	return &engineFixture{
		executor: &fakeExecutor{rows: []Row{sqlRow(1, "机械键盘", 299)}},
		vector:   &fakeVector{hits: []VectorHit{vectorHit("2", 0.3, int64(2))}},
		cache:    newFakeCache(),
		intents:  &fakeIntents{},
		sqlgen:   &fakeSQLGen{sql: validSQL},
	}
}

func (f *engineFixture) engine(webctx ContextProvider, opts Options) *Engine {
	return NewEngine(f.executor, f.vector, f.cache, f.intents, f.sqlgen, webctx, opts)
}

func TestEngineSearchHappyPath(t *testing.T) {
	fx := newFixture()
	e := fx.engine(nil, Options{})

	result, err := e.Search(context.Background(), "机械键盘", 10)
	require.NoError(t, err)

	require.Equal(t, 2, result.Total)
	assert.Equal(t, int64(1), result.Products[0].ID)
	assert.InDelta(t, 1.0, result.Products[0].Score, 1e-9)
	assert.Equal(t, int64(2), result.Products[1].ID)
	assert.InDelta(t, 0.7, result.Products[1].Score, 1e-9)

	assert.Equal(t, validSQL, fx.executor.gotSQL)
	assert.Equal(t, 10, fx.executor.gotParams["limit"])
	assert.Equal(t, "机械键盘", fx.vector.gotQuery)
	assert.Equal(t, 10, fx.vector.gotResults)

	// 结果写入缓存
	assert.Equal(t, "search:机械键盘:10", fx.cache.gotSetKey)
	assert.Equal(t, 300*time.Second, fx.cache.gotSetTTL)
}

func TestEngineSearchEmptyQuery(t *testing.T) {
	fx := newFixture()
	e := fx.engine(nil, Options{})

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := e.Search(context.Background(), q, 5)
		require.ErrorIs(t, err, ErrEmptyQuery)
	}
	assert.Zero(t, fx.intents.calls.Load())
}

func TestEngineSearchLimitDefaulting(t *testing.T) {
	fx := newFixture()
	e := fx.engine(nil, Options{DefaultLimit: 5, MaxLimit: 100})

	_, err := e.Search(context.Background(), "键盘", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, fx.vector.gotResults)
}

func TestEngineSearchRejectsOutOfRangeLimit(t *testing.T) {
	fx := newFixture()
	e := fx.engine(nil, Options{DefaultLimit: 5, MaxLimit: 100})

	for _, limit := range []int{5000, 101, -7} {
		_, err := e.Search(context.Background(), "键盘", limit)
		require.ErrorIs(t, err, ErrInvalidLimit)
	}

	// 非法 limit 在进入意图管道之前就被拒绝
	assert.Zero(t, fx.intents.calls.Load())
}

func TestEngineSearchSurvivesCallerCancellation(t *testing.T) {
	fx := newFixture()
	e := fx.engine(nil, Options{})

	// 领跑者取消后，合并执行仍然完成并产出可供等待方使用的结果
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.Search(ctx, "机械键盘", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
}

func TestEngineSearchCacheHitBypassesPipeline(t *testing.T) {
	fx := newFixture()
	cached := &entity.SearchResult{
		Products: []*entity.ProductCandidate{{ID: 9, Name: "缓存的商品", Score: 1.5}},
		Total:    1,
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	fx.cache.data["search:机械键盘:5"] = data

	e := fx.engine(nil, Options{})

	result, err := e.Search(context.Background(), "机械键盘", 5)
	require.NoError(t, err)

	// 命中结果原样返回，管道完全不执行
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, int64(9), result.Products[0].ID)
	assert.Equal(t, 1.5, result.Products[0].Score)
	assert.Zero(t, fx.intents.calls.Load())
	assert.Zero(t, fx.sqlgen.calls.Load())
	assert.Zero(t, fx.executor.calls.Load())
	assert.Zero(t, fx.vector.calls.Load())
}

func TestEngineSearchQueryNormalizationInCacheKey(t *testing.T) {
	fx := newFixture()
	e := fx.engine(nil, Options{})

	_, err := e.Search(context.Background(), "  机械   键盘  ", 5)
	require.NoError(t, err)
	assert.Equal(t, "search:机械 键盘:5", fx.cache.gotSetKey)
}

func TestEngineSearchCacheErrorTreatedAsMiss(t *testing.T) {
	fx := newFixture()
	fx.cache.getErr = errors.New("redis: connection refused")
	e := fx.engine(nil, Options{})

	result, err := e.Search(context.Background(), "机械键盘", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, int32(1), fx.intents.calls.Load())
}

func TestEngineSearchCacheWriteFailureIgnored(t *testing.T) {
	fx := newFixture()
	fx.cache.setErr = errors.New("redis: readonly replica")
	e := fx.engine(nil, Options{})

	result, err := e.Search(context.Background(), "机械键盘", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
}

func TestEngineSearchCorruptCacheEntryIgnored(t *testing.T) {
	fx := newFixture()
	fx.cache.data["search:机械键盘:5"] = []byte("{not valid json")
	e := fx.engine(nil, Options{})

	result, err := e.Search(context.Background(), "机械键盘", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, int32(1), fx.intents.calls.Load())
}

func TestEngineSearchIntentFailureIsFatal(t *testing.T) {
	fx := newFixture()
	fx.intents.err = ErrIntentParse
	e := fx.engine(nil, Options{})

	_, err := e.Search(context.Background(), "机械键盘", 5)
	require.ErrorIs(t, err, ErrIntentParse)
	assert.Zero(t, fx.sqlgen.calls.Load())
	assert.Zero(t, fx.executor.calls.Load())
}

func TestEngineSearchRejectsUnsafeSQL(t *testing.T) {
	fx := newFixture()
	fx.sqlgen.sql = "DROP TABLE products"
	e := fx.engine(nil, Options{})

	_, err := e.Search(context.Background(), "机械键盘", 5)
	require.ErrorIs(t, err, ErrUnsafeSQL)
	assert.Zero(t, fx.executor.calls.Load())
	assert.Zero(t, fx.vector.calls.Load())
}

func TestEngineSearchRecallFailureIsFatal(t *testing.T) {
	t.Run("关系侧失败", func(t *testing.T) {
		fx := newFixture()
		fx.executor.err = errors.New("pq: relation does not exist")
		e := fx.engine(nil, Options{})

		_, err := e.Search(context.Background(), "机械键盘", 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sql execution")
	})

	t.Run("向量侧失败", func(t *testing.T) {
		fx := newFixture()
		fx.vector.err = errors.New("milvus: collection not loaded")
		e := fx.engine(nil, Options{})

		_, err := e.Search(context.Background(), "机械键盘", 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vector search")
	})
}

func TestEngineSearchWebContext(t *testing.T) {
	t.Run("摘要注入意图提取", func(t *testing.T) {
		fx := newFixture()
		web := &fakeWebContext{snippets: []string{"2026 年轻薄本推荐", "续航实测对比"}}
		e := fx.engine(web, Options{})

		_, err := e.Search(context.Background(), "轻薄本", 5)
		require.NoError(t, err)
		assert.Equal(t, "2026 年轻薄本推荐\n续航实测对比", fx.intents.gotWebContext)
	})

	t.Run("失败只降级", func(t *testing.T) {
		fx := newFixture()
		web := &fakeWebContext{err: errors.New("duckduckgo: timeout")}
		e := fx.engine(web, Options{})

		result, err := e.Search(context.Background(), "轻薄本", 5)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Total)
		assert.Empty(t, fx.intents.gotWebContext)
	})
}

func TestEngineSearchIntentNormalized(t *testing.T) {
	fx := newFixture()
	min, max := 500.0, 100.0
	fx.intents.intent = &entity.QueryIntent{
		PriceRange: entity.PriceRange{Min: &min, Max: &max},
	}
	e := fx.engine(nil, Options{})

	_, err := e.Search(context.Background(), "倒置价格区间", 5)
	require.NoError(t, err)

	// 区间在绑定前被纠正
	assert.Equal(t, 100.0, fx.executor.gotParams["min_price"])
	assert.Equal(t, 500.0, fx.executor.gotParams["max_price"])
}
