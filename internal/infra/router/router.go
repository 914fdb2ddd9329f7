/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-15 11:30:55
 * @LastEditTime: 2025-10-20 15:20:11
 * @LastEditors: 安知鱼
 */
// anheyu-drop/internal/infra/router/router.go
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-drop/internal/app/middleware"
	share_handler "github.com/anzhiyu-c/anheyu-drop/pkg/handler/share"
	version_handler "github.com/anzhiyu-c/anheyu-drop/pkg/handler/version"
)

func NoCacheMiddleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		// 🚫 强制禁用所有形式的缓存
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate, private, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")

		c.Next()
	})
}

// Options 是路由层需要的配置
type Options struct {
	AdminToken          string
	UploadRatePerMinute int
	UploadBurst         int
}

// Router 封装了应用的所有路由和其依赖的处理器。
type Router struct {
	shareHandler   *share_handler.ShareHandler
	versionHandler *version_handler.Handler
	opts           Options
}

// NewRouter 是 Router 的构造函数，通过依赖注入接收所有处理器。
func NewRouter(
	shareHandler *share_handler.ShareHandler,
	versionHandler *version_handler.Handler,
	opts Options,
) *Router {
	return &Router{
		shareHandler:   shareHandler,
		versionHandler: versionHandler,
		opts:           opts,
	}
}

// Setup 将所有路由注册到 Gin 引擎。
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Cors())

	// 创建 /api 分组
	apiGroup := engine.Group("/api")
	// 应用全局反缓存中间件
	apiGroup.Use(NoCacheMiddleware())

	apiGroup.GET("/version", r.versionHandler.GetVersion)

	// 本地存储的签名下载
	apiGroup.GET("/blob/*key", r.shareHandler.ServeLocalBlob)

	shares := apiGroup.Group("/shares")
	{
		shares.POST("", middleware.UploadRateLimit(r.opts.UploadRatePerMinute, r.opts.UploadBurst), r.shareHandler.Upload)
		shares.GET("/:id", r.shareHandler.GetInfo)
	}

	admin := apiGroup.Group("/shares", middleware.AdminAuth(r.opts.AdminToken))
	{
		admin.GET("", r.shareHandler.List)
		admin.DELETE("/:id", r.shareHandler.Delete)
	}

	// 对外分享的短链接
	shortGroup := engine.Group("/s", NoCacheMiddleware())
	{
		shortGroup.GET("/:id", r.shareHandler.Download)
		shortGroup.GET("/:id/view", r.shareHandler.View)
	}
}
