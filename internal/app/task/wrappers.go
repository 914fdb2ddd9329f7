/*
 * @Description: cron 任务的装饰器：panic 恢复、结构化日志、停止检查
 * @Author: 安知鱼
 * @Date: 2025-06-29 22:36:09
 * @LastEditTime: 2025-10-20 17:25:40
 * @LastEditors: 安知鱼
 */
package task

import (
	"context"
	"log/slog"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// JobWrapper 是 cron.JobWrapper 的类型别名，用于简化代码。
type JobWrapper = cron.JobWrapper

// NewLoggingWrapper 为每次执行生成唯一的 execution_id，记录耗时。
// 任务实现了 ResultJob 时，一并记录本次处理的条目数和错误。
func NewLoggingWrapper(logger *slog.Logger) JobWrapper {
	return func(j cron.Job) cron.Job {
		return wrap(j, func() {
			jobLogger := logger.With(
				slog.String("job_name", jobName(j)),
				slog.String("execution_id", uuid.New().String()),
			)

			startTime := time.Now()
			jobLogger.Debug("Job execution started")

			j.Run()

			attrs := []any{slog.Duration("duration", time.Since(startTime))}
			if rj, ok := j.(ResultJob); ok {
				affected, err := rj.LastResult()
				attrs = append(attrs, slog.Int("affected", affected))
				if err != nil {
					jobLogger.Warn("Job execution finished with error", append(attrs, slog.Any("error", err))...)
					return
				}
			}
			jobLogger.Info("Job execution finished", attrs...)
		})
	}
}

// NewPanicRecoveryWrapper 捕获任务中的 panic 并记录堆栈，调度器继续运行。
func NewPanicRecoveryWrapper(logger *slog.Logger) JobWrapper {
	return func(j cron.Job) cron.Job {
		return wrap(j, func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Job panicked",
						slog.String("job_name", jobName(j)),
						slog.Any("panic", r),
						slog.String("stack_trace", string(debug.Stack())),
					)
				}
			}()

			j.Run()
		})
	}
}

// NewStopGuardWrapper 在 ctx 取消后跳过任务。
// Broker.Stop 之后仍可能有已经排队的触发或手动调用的 RunNow，它们都不应再访问存储。
func NewStopGuardWrapper(ctx context.Context, logger *slog.Logger) JobWrapper {
	return func(j cron.Job) cron.Job {
		return wrap(j, func() {
			if ctx.Err() != nil {
				logger.Info("Broker stopped, job skipped", slog.String("job_name", jobName(j)))
				return
			}
			j.Run()
		})
	}
}

// wrappedJob 是装饰后的任务，保留内层任务的名称，外层装饰器记录的日志仍然可读
type wrappedJob struct {
	inner cron.Job
	run   func()
}

func (w *wrappedJob) Run()         { w.run() }
func (w *wrappedJob) Name() string { return jobName(w.inner) }

func wrap(inner cron.Job, run func()) cron.Job {
	return &wrappedJob{inner: inner, run: run}
}

// jobName 优先使用任务的 Name() 方法，否则返回其类型名，例如 "task.ShareExpiryJob"
func jobName(j cron.Job) string {
	if namedJob, ok := j.(Job); ok {
		return namedJob.Name()
	}

	jobType := reflect.TypeOf(j)
	if jobType.Kind() == reflect.Ptr {
		return jobType.Elem().String()
	}
	return jobType.String()
}
