/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-07-12 16:09:46
 * @LastEditTime: 2025-10-20 17:18:02
 * @LastEditors: 安知鱼
 */
// internal/app/task/jobs.go
package task

import "context"

// Job 与 cron.Job 接口兼容，Name 用于日志。
type Job interface {
	Run()
	Name() string
}

// ResultJob 是可以报告最近一次执行结果的任务
type ResultJob interface {
	Job
	LastResult() (affected int, err error)
}

// ExpiryReaper 是能够执行一次过期回收的组件，*share.Registry 实现了它
type ExpiryReaper interface {
	ReapExpired(ctx context.Context) (int, error)
}
