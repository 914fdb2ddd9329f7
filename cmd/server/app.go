/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-10-17 10:35:28
 * @LastEditTime: 2025-10-20 16:40:51
 * @LastEditors: 安知鱼
 */
// anheyu-drop/cmd/server/app.go
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anzhiyu-c/anheyu-drop/internal/app/listener"
	"github.com/anzhiyu-c/anheyu-drop/internal/app/task"
	"github.com/anzhiyu-c/anheyu-drop/internal/infra/persistence/database"
	"github.com/anzhiyu-c/anheyu-drop/internal/infra/persistence/snapshot"
	"github.com/anzhiyu-c/anheyu-drop/internal/infra/router"
	"github.com/anzhiyu-c/anheyu-drop/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-drop/internal/pkg/event"
	"github.com/anzhiyu-c/anheyu-drop/internal/pkg/version"
	"github.com/anzhiyu-c/anheyu-drop/pkg/config"
	share_handler "github.com/anzhiyu-c/anheyu-drop/pkg/handler/share"
	version_handler "github.com/anzhiyu-c/anheyu-drop/pkg/handler/version"
	"github.com/anzhiyu-c/anheyu-drop/pkg/idgen"
	"github.com/anzhiyu-c/anheyu-drop/pkg/service/share"
	"github.com/anzhiyu-c/anheyu-drop/pkg/service/utility"
)

// signingSecretLength 是自动生成的签名密钥长度
const signingSecretLength = 32

// App 结构体，用于封装应用的所有核心组件
type App struct {
	cfg        *config.Config
	engine     *gin.Engine
	server     *http.Server
	taskBroker *task.Broker
	registry   *share.Registry
	shareSvc   share.Service
	cacheSvc   utility.CacheService
	eventBus   *event.EventBus
	appVersion string
}

func (a *App) PrintBanner() {
	banner := `

       ██████╗ ██████╗  ██████╗ ██████╗
       ██╔══██╗██╔══██╗██╔═══██╗██╔══██╗
       ██║  ██║██████╔╝██║   ██║██████╔╝
       ██║  ██║██╔══██╗██║   ██║██╔═══╝
       ██████╔╝██║  ██║╚██████╔╝██║
       ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚═╝

`
	log.Println(banner)
	log.Printf("--- AnHeYu Drop 版本: %s ---", a.appVersion)
}

// NewApp 是应用的构造函数，负责按依赖顺序初始化所有组件。
// 返回的 cleanup 用于释放 Redis 连接、事件总线等资源。
func NewApp(configPath string) (*App, func(), error) {
	ctx := context.Background()

	// --- Phase 1: 加载配置 ---
	cfg, err := config.NewConfigFromFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.GetBool(config.KeyServerDebug) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Phase 2: 初始化存储 ---
	signingSecret := cfg.GetString(config.KeyStorageSigningSecret)
	if signingSecret == "" {
		signingSecret, err = idgen.GenerateLinkID(signingSecretLength)
		if err != nil {
			return nil, nil, fmt.Errorf("生成下载签名密钥失败: %w", err)
		}
		log.Println("⚠️  未配置 Storage.SigningSecret，已生成临时密钥，重启后之前签发的下载链接将失效")
	}
	blobStore, err := storage.NewBlobStore(ctx, storage.Options{
		Type:          cfg.GetString(config.KeyStorageType),
		BasePath:      cfg.GetString(config.KeyStorageBasePath),
		Bucket:        cfg.GetString(config.KeyStorageBucket),
		Server:        cfg.GetString(config.KeyStorageServer),
		Region:        cfg.GetString(config.KeyStorageRegion),
		AccessKey:     cfg.GetString(config.KeyStorageAccessKey),
		SecretKey:     cfg.GetString(config.KeyStorageSecretKey),
		Domain:        cfg.GetString(config.KeyStorageDomain),
		SigningSecret: signingSecret,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	log.Printf("✅ 存储驱动已就绪: %s", blobStore.Type())

	// --- Phase 3: 缓存与事件总线 ---
	redisClient, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cacheSvc := utility.NewCacheServiceWithFallback(ctx, redisClient)
	eventBus := event.NewEventBus()

	cleanup := func() {
		log.Println("执行清理操作：关闭缓存与事件总线...")
		eventBus.Shutdown()
		if stopper, ok := cacheSvc.(interface{ Stop() }); ok {
			stopper.Stop()
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Printf("关闭 Redis 连接失败: %v", err)
			}
		}
	}

	// --- Phase 4: 注册表与业务服务 ---
	snapshotRepo := snapshot.NewBlobSnapshotRepository(blobStore, cfg.GetString(config.KeyShareSnapshotKey))
	registry := share.NewRegistry(blobStore, snapshotRepo, eventBus, share.Options{
		TTL: cfg.GetDuration(config.KeyShareTTL),
	})
	registry.Load(ctx)

	listener.NewShareStatsListener(eventBus, cacheSvc)

	shareSvc := share.NewService(registry, blobStore, cacheSvc, share.ServiceOptions{
		MaxUploadSize: cfg.GetInt64(config.KeyShareMaxUploadSize),
		PresignTTL:    cfg.GetDuration(config.KeySharePresignTTL),
	})

	taskBroker := task.NewBroker(registry, cfg.GetDuration(config.KeyShareCleanupInterval))

	// --- Phase 5: HTTP 层 ---
	localProvider, _ := blobStore.(*storage.LocalProvider)
	appRouter := router.NewRouter(
		share_handler.NewShareHandler(shareSvc, localProvider, cfg.GetString(config.KeyShareSiteURL)),
		version_handler.NewHandler(),
		router.Options{
			AdminToken:          cfg.GetString(config.KeyShareAdminToken),
			UploadRatePerMinute: cfg.GetInt(config.KeyShareUploadRate),
			UploadBurst:         cfg.GetInt(config.KeyShareUploadBurst),
		},
	)

	engine := gin.New()
	// 仅采信受信任代理转发的 X-Forwarded-For，其余请求按 RemoteAddr 识别客户端
	trustedProxies := cfg.GetStringList(config.KeyServerTrustedProxies)
	if err := engine.SetTrustedProxies(trustedProxies); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("设置信任代理失败: %w", err)
	}
	engine.ForwardedByClientIP = true
	engine.RemoteIPHeaders = []string{"X-Forwarded-For", "X-Real-IP"}
	engine.Use(gin.Logger(), gin.Recovery())
	engine.MaxMultipartMemory = 8 << 20
	appRouter.Setup(engine)

	port := cfg.GetString(config.KeyServerPort)
	if port == "" {
		port = "8091"
	}

	app := &App{
		cfg:    cfg,
		engine: engine,
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		taskBroker: taskBroker,
		registry:   registry,
		shareSvc:   shareSvc,
		cacheSvc:   cacheSvc,
		eventBus:   eventBus,
		appVersion: version.GetVersion(),
	}
	return app, cleanup, nil
}

// Engine 返回 gin 引擎，便于测试或嵌入其他服务
func (a *App) Engine() *gin.Engine {
	return a.engine
}

// Registry 返回分享链接注册表
func (a *App) Registry() *share.Registry {
	return a.registry
}

// ShareService 返回分享服务
func (a *App) ShareService() share.Service {
	return a.shareSvc
}

// CacheService 返回当前使用的缓存服务
func (a *App) CacheService() utility.CacheService {
	return a.cacheSvc
}

// EventBus 返回事件总线，用于发布和订阅事件
func (a *App) EventBus() *event.EventBus {
	return a.eventBus
}

// Version 返回应用的版本号
func (a *App) Version() string {
	return a.appVersion
}

// Run 先回收快照中已经过期的链接，再启动定时任务和 HTTP 服务，阻塞直到服务关闭。
func (a *App) Run() error {
	a.taskBroker.RunNow()
	if err := a.taskBroker.RegisterCronJobs(); err != nil {
		return err
	}
	a.taskBroker.Start()
	fmt.Printf("应用程序启动成功，正在监听地址: %s (缓存: %s)\n", a.server.Addr, utility.GetCacheServiceType(a.cacheSvc))

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 关闭 HTTP 服务并停止后台任务
func (a *App) Stop() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			log.Printf("关闭 HTTP 服务失败: %v", err)
		}
	}
	if a.taskBroker != nil {
		a.taskBroker.Stop()
		log.Println("任务调度器已停止。")
	}
}
