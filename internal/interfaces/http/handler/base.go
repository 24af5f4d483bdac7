// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/shifat71/350/internal/application/search"
	"github.com/shifat71/350/internal/application/vision"
	"github.com/shifat71/350/internal/interfaces/http/dto"
	"github.com/shifat71/350/pkg/logger"

	apperrors "github.com/shifat71/350/pkg/errors"
)

// respondSearchError 将检索流水线错误映射为 HTTP 错误响应
func respondSearchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, search.ErrEmptyQuery):
		dto.BadRequest(c, "query is required")
	case errors.Is(err, search.ErrInvalidLimit):
		dto.BadRequest(c, "limit must be between 1 and 100")
	case errors.Is(err, search.ErrIntentParse):
		dto.AppError(c, apperrors.New(apperrors.CodeIntentParseFailed, "query understanding failed"))
	case errors.Is(err, search.ErrUnsafeSQL):
		dto.AppError(c, apperrors.New(apperrors.CodeUnsafeSQL, "generated query rejected"))
	case errors.Is(err, vision.ErrImageDecode):
		dto.AppError(c, apperrors.New(apperrors.CodeImageDecodeFailed, "image is not valid base64"))
	default:
		logger.Error(c.Request.Context(), "search request failed", err,
			"path", c.Request.URL.Path,
		)
		dto.AppError(c, apperrors.New(apperrors.CodeSearchFailed, "search failed"))
	}
}
