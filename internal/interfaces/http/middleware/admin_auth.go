package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shifat71/350/pkg/errors"
)

// AdminTokenHeader 管理令牌请求头
const AdminTokenHeader = "X-Admin-Token"

// AdminAuth 管理接口鉴权中间件，校验 X-Admin-Token 静态令牌
// （也接受 Authorization: Bearer 形式）。Token 未配置时拒绝所有管理请求。
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			abortUnauthorized(c, "admin access not configured")
			return
		}

		supplied := c.GetHeader(AdminTokenHeader)
		if supplied == "" {
			if authHeader := c.GetHeader("Authorization"); authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || parts[0] != "Bearer" {
					abortUnauthorized(c, "invalid authorization format")
					return
				}
				supplied = parts[1]
			}
		}
		if supplied == "" {
			abortUnauthorized(c, "missing admin token")
			return
		}

		if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			abortUnauthorized(c, "invalid admin token")
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    errors.CodeUnauthorized,
		"message": message,
	})
}
