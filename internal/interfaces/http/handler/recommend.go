package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shifat71/350/internal/application/recommend"
	"github.com/shifat71/350/internal/application/search"
	"github.com/shifat71/350/internal/interfaces/http/dto"
	"github.com/shifat71/350/pkg/logger"

	apperrors "github.com/shifat71/350/pkg/errors"
)

// RecommendHandler 相似商品推荐处理器
type RecommendHandler struct {
	engine *recommend.Engine
}

// NewRecommendHandler 创建推荐处理器
func NewRecommendHandler(engine *recommend.Engine) *RecommendHandler {
	return &RecommendHandler{engine: engine}
}

// Recommend 相似商品推荐接口
// @Summary 相似商品推荐
// @Description 按向量近邻返回与指定商品相似的商品列表
// @Tags Recommend
// @Produce json
// @Param id path int true "商品 ID"
// @Param limit query int false "返回数量上限"
// @Success 200 {object} entity.RecommendResult
// @Failure 400 {object} dto.ErrorResponse
// @Router /recommendations/{id} [get]
func (h *RecommendHandler) Recommend(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || productID <= 0 {
		dto.BadRequest(c, "product id must be a positive integer")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			dto.BadRequest(c, "limit must be an integer")
			return
		}
	}

	result, err := h.engine.Recommend(c.Request.Context(), productID, limit)
	if err != nil {
		if errors.Is(err, search.ErrInvalidLimit) {
			dto.BadRequest(c, "limit must be between 1 and 100")
			return
		}
		logger.Error(c.Request.Context(), "recommendation failed", err,
			"product_id", productID,
		)
		dto.AppError(c, apperrors.New(apperrors.CodeRecommendFailed, "recommendation failed"))
		return
	}

	c.JSON(http.StatusOK, result)
}
