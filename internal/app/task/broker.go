// internal/app/task/broker.go
package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCleanupInterval 是过期链接回收的默认周期
const DefaultCleanupInterval = 60 * time.Second

// Broker 是整个后台任务模块的核心协调者。
// 它持有一个在 Stop 时取消的 context，所有任务都在这个 context 下执行。
type Broker struct {
	cron            *cron.Cron
	logger          *slog.Logger
	reaper          ExpiryReaper
	cleanupInterval time.Duration
	expiryJob       *ShareExpiryJob

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewBroker 是 Broker 的构造函数。interval <= 0 时使用 DefaultCleanupInterval。
func NewBroker(reaper ExpiryReaper, interval time.Duration) *Broker {
	return NewBrokerWithOutput(reaper, interval, os.Stdout)
}

// NewBrokerWithOutput 与 NewBroker 相同，但结构化日志写入 w
func NewBrokerWithOutput(reaper ExpiryReaper, interval time.Duration, w io.Writer) *Broker {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	slogHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(slogHandler).With("system", "task_broker")

	ctx, cancel := context.WithCancel(context.Background())

	// 由外到内: 串行执行 -> panic 恢复 -> 停止检查 -> 日志 -> 任务
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			cron.DelayIfStillRunning(cron.DefaultLogger),
			NewPanicRecoveryWrapper(logger),
			NewStopGuardWrapper(ctx, logger),
			NewLoggingWrapper(logger),
		),
	)

	return &Broker{
		cron:            c,
		logger:          logger,
		reaper:          reaper,
		cleanupInterval: interval,
		expiryJob:       NewShareExpiryJob(ctx, reaper),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// RegisterCronJobs 注册所有周期性任务。
func (b *Broker) RegisterCronJobs() error {
	b.logger.Info("Registering all periodic jobs...")

	schedule := fmt.Sprintf("@every %s", b.cleanupInterval)
	if _, err := b.cron.AddJob(schedule, b.expiryJob); err != nil {
		b.logger.Error("Failed to add 'ShareExpiryJob'", slog.Any("error", err))
		return fmt.Errorf("注册任务 'ShareExpiryJob' 失败: %w", err)
	}
	b.logger.Info("-> Successfully registered 'ShareExpiryJob'", "schedule", schedule)

	b.logger.Info("All periodic jobs registered.")
	return nil
}

// RunNow 立即同步执行一次回收，经过与定时执行相同的日志和 panic 恢复装饰器。
// 用于启动时加载快照后的首次回收。
func (b *Broker) RunNow() {
	cron.NewChain(
		NewPanicRecoveryWrapper(b.logger),
		NewStopGuardWrapper(b.ctx, b.logger),
		NewLoggingWrapper(b.logger),
	).Then(b.expiryJob).Run()
}

// Start 启动 cron 调度器。
func (b *Broker) Start() {
	b.logger.Info("Task broker started.")
	b.cron.Start()
}

// Stop 取消任务的 context，并等待正在执行的任务结束。可以重复调用。
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		b.logger.Info("Stopping task broker...")
		b.cancel()
		ctx := b.cron.Stop()
		<-ctx.Done()
		b.logger.Info("Task broker gracefully stopped.")
	})
}
