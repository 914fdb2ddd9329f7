package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Cors 只对 /api/ 下的路由生效，短链接跳转和其它页面不需要跨域头
func Cors() gin.HandlerFunc {
	corsHandler := cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"POST", "GET", "OPTIONS", "DELETE"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "Range"},
		ExposeHeaders:    []string{"Content-Range", "Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	})

	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Next()
			return
		}

		corsHandler(c)
		if c.IsAborted() {
			return
		}
		c.Next()
	}
}
