// internal/app/middleware/auth.go
package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"github.com/anzhiyu-c/anheyu-drop/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminAuth 是管理接口使用的简单令牌校验。
// token 为空时不做任何校验，直接放行。
func AdminAuth(token string) gin.HandlerFunc {
	if token == "" {
		log.Println("[AdminAuth] 警告: 未配置 Share.AdminToken，管理接口对所有人开放")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			response.Fail(c, http.StatusUnauthorized, "请求未携带Token，无权限访问")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			response.Fail(c, http.StatusUnauthorized, "Token格式不正确")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			response.Fail(c, http.StatusUnauthorized, "无效的Token")
			c.Abort()
			return
		}

		c.Next()
	}
}
