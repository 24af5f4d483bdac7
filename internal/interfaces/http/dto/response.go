// Package dto 定义 HTTP 请求与响应结构
package dto

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/shifat71/350/pkg/errors"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, code apperrors.ErrorCode, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    string(code),
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

// AbortError 返回错误响应并中断后续处理
func AbortError(c *gin.Context, httpCode int, code apperrors.ErrorCode, message string) {
	c.AbortWithStatusJSON(httpCode, ErrorResponse{
		Code:    string(code),
		Message: message,
		TraceID: c.GetString("trace_id"),
	})
}

// AppError 按 AppError 自带的 HTTP 状态码返回错误响应
func AppError(c *gin.Context, err *apperrors.AppError) {
	c.JSON(err.HTTPStatus, ErrorResponse{
		Code:    string(err.Code),
		Message: err.Message,
		Detail:  err.Detail,
		TraceID: c.GetString("trace_id"),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, 400, apperrors.CodeInvalidParam, message)
}

// NotFound 返回 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, 404, apperrors.CodeNotFound, message)
}
