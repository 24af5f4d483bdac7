package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shifat71/350/internal/application/search"
	"github.com/shifat71/350/internal/domain/entity"
	"github.com/shifat71/350/internal/interfaces/http/dto"
	"github.com/shifat71/350/pkg/metrics"
)

type stubExecutor struct{}

func (stubExecutor) Search(_ context.Context, _ string, _ map[string]any) ([]search.Row, error) {
	return []search.Row{{
		"id":            int64(1),
		"name":          "机械键盘",
		"price":         299.0,
		"image":         "https://img.example.com/p.jpg",
		"category_name": "电子产品",
	}}, nil
}

type stubVector struct{}

func (stubVector) Search(_ context.Context, _ string, _ int) ([]search.VectorHit, error) {
	return nil, nil
}

type stubCache struct{}

func (stubCache) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, search.ErrCacheMiss
}

func (stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}

type stubIntents struct{}

func (stubIntents) Extract(_ context.Context, _ string, _ string) (*entity.QueryIntent, error) {
	return &entity.QueryIntent{}, nil
}

type stubSQLGen struct{}

func (stubSQLGen) Generate(_ context.Context, _ *entity.QueryIntent, _ int) (string, error) {
	return "SELECT id, name, price, image, category_name FROM products LIMIT @limit", nil
}

func searchTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := search.NewEngine(stubExecutor{}, stubVector{}, stubCache{}, stubIntents{}, stubSQLGen{}, nil, search.Options{})
	h := NewSearchHandler(engine, nil)

	r := gin.New()
	r.POST("/search/text", h.SearchText)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSearchTextHappyPath(t *testing.T) {
	r := searchTestRouter()

	w := postJSON(t, r, "/search/text", gin.H{"query": "机械键盘", "limit": 5})
	require.Equal(t, http.StatusOK, w.Code)

	var result entity.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Total)
}

func TestSearchTextRejectsOutOfRangeLimit(t *testing.T) {
	r := searchTestRouter()

	for _, limit := range []int{5000, 101, -7} {
		w := postJSON(t, r, "/search/text", gin.H{"query": "键盘", "limit": limit})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "1001", resp.Code)
	}
}

func TestSearchTextMissingQuery(t *testing.T) {
	r := searchTestRouter()

	w := postJSON(t, r, "/search/text", gin.H{"limit": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchTextRecordsMetrics(t *testing.T) {
	r := searchTestRouter()

	counter := metrics.SearchTotal.WithLabelValues("text", "ok")
	before := testutil.ToFloat64(counter)

	w := postJSON(t, r, "/search/text", gin.H{"query": "机械键盘", "limit": 5})
	require.Equal(t, http.StatusOK, w.Code)

	assert.InDelta(t, before+1, testutil.ToFloat64(counter), 1e-9)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.SearchDuration), 1)
}
