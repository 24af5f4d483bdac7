package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func authTestRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", AdminAuth(token), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAdminAuth(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		adminHeader string
		authHeader  string
		wantStatus  int
	}{
		{"正确的 X-Admin-Token", "secret", "secret", "", http.StatusNoContent},
		{"错误的 X-Admin-Token", "secret", "wrong", "", http.StatusUnauthorized},
		{"正确的 Bearer Token", "secret", "", "Bearer secret", http.StatusNoContent},
		{"错误的 Bearer Token", "secret", "", "Bearer wrong", http.StatusUnauthorized},
		{"缺少请求头", "secret", "", "", http.StatusUnauthorized},
		{"非 Bearer 格式", "secret", "", "Basic secret", http.StatusUnauthorized},
		{"未配置 Token 时拒绝", "", "anything", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := authTestRouter(tt.token)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
			if tt.adminHeader != "" {
				req.Header.Set(AdminTokenHeader, tt.adminHeader)
			}
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
