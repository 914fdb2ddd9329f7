/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-21 10:40:18
 * @LastEditors: 安知鱼
 */
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/anzhiyu-c/anheyu-drop/cmd/server"
	"github.com/anzhiyu-c/anheyu-drop/pkg/config"
)

// @title           AnHeYu Drop API
// @version         1.0
// @description     临时文件分享服务接口文档

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8091
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 管理接口在请求头中添加 Bearer Token，格式为: Bearer {token}
func main() {
	// 解析命令行参数
	var configPath string
	flag.StringVar(&configPath, "config", config.DefaultConfigPath, "配置文件路径")
	flag.Parse()

	// 调用位于 cmd/server 包中的 NewApp 函数来构建整个应用
	app, cleanup, err := server.NewApp(configPath)
	if err != nil {
		log.Fatalf("应用初始化失败: %v", err)
	}

	app.PrintBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run()
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		log.Println("收到退出信号，正在关闭服务...")
	}

	app.Stop()
	// os.Exit 不会执行 defer，清理必须在退出前显式完成
	cleanup()
	if runErr != nil {
		log.Printf("应用运行失败: %v", runErr)
		os.Exit(1)
	}
}
