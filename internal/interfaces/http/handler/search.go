package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shifat71/350/internal/application/search"
	"github.com/shifat71/350/internal/application/vision"
	"github.com/shifat71/350/internal/interfaces/http/dto"
	"github.com/shifat71/350/pkg/metrics"
)

// SearchHandler 商品搜索处理器
type SearchHandler struct {
	engine    *search.Engine
	describer *vision.Describer
}

// NewSearchHandler 创建搜索处理器
func NewSearchHandler(engine *search.Engine, describer *vision.Describer) *SearchHandler {
	return &SearchHandler{
		engine:    engine,
		describer: describer,
	}
}

// SearchText 文本搜索接口
// @Summary 文本搜索
// @Description 按自然语言查询搜索商品，融合 SQL 与向量检索结果
// @Tags Search
// @Accept json
// @Produce json
// @Param request body dto.TextSearchRequest true "搜索请求"
// @Success 200 {object} entity.SearchResult
// @Failure 400 {object} dto.ErrorResponse
// @Router /search/text [post]
func (h *SearchHandler) SearchText(c *gin.Context) {
	var req dto.TextSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "query is required and limit must be between 1 and 100")
		return
	}

	start := time.Now()
	result, err := h.engine.Search(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		metrics.SearchTotal.WithLabelValues("text", "error").Inc()
		respondSearchError(c, err)
		return
	}
	metrics.SearchTotal.WithLabelValues("text", "ok").Inc()
	metrics.SearchDuration.WithLabelValues("text").Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, result)
}

// SearchImage 图片搜索接口
// @Summary 图片搜索
// @Description 将图片转写为文本描述后走文本搜索流水线
// @Tags Search
// @Accept json
// @Produce json
// @Param request body dto.ImageSearchRequest true "图片搜索请求"
// @Success 200 {object} entity.SearchResult
// @Failure 400 {object} dto.ErrorResponse
// @Router /search/image [post]
func (h *SearchHandler) SearchImage(c *gin.Context) {
	var req dto.ImageSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "image_base64 is required and limit must be between 1 and 100")
		return
	}

	start := time.Now()
	description, err := h.describer.Describe(c.Request.Context(), req.ImageBase64, req.MimeType)
	if err != nil {
		metrics.SearchTotal.WithLabelValues("image", "error").Inc()
		respondSearchError(c, err)
		return
	}

	// 附带文本与图片特征合并为一条检索查询
	query := strings.TrimSpace(req.Query + " " + description)

	result, err := h.engine.Search(c.Request.Context(), query, req.Limit)
	if err != nil {
		metrics.SearchTotal.WithLabelValues("image", "error").Inc()
		respondSearchError(c, err)
		return
	}
	metrics.SearchTotal.WithLabelValues("image", "ok").Inc()
	metrics.SearchDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, result)
}
