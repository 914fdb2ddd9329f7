/*
 * @Description: 定期回收过期的分享链接
 * @Author: 安知鱼
 * @Date: 2025-10-19 22:06:14
 * @LastEditTime: 2025-10-20 17:20:48
 * @LastEditors: 安知鱼
 */
// internal/app/task/job_share_expiry.go
package task

import (
	"context"
	"sync"
)

// ShareExpiryJob 负责回收过期的分享链接及其文件
type ShareExpiryJob struct {
	ctx    context.Context
	reaper ExpiryReaper

	mu      sync.Mutex
	reaped  int
	lastErr error
}

// NewShareExpiryJob 是任务的构造函数，ctx 由 Broker 持有，Stop 时取消
func NewShareExpiryJob(ctx context.Context, reaper ExpiryReaper) *ShareExpiryJob {
	return &ShareExpiryJob{
		ctx:    ctx,
		reaper: reaper,
	}
}

// Run 是 Job 接口要求实现的方法。
// 快照写入失败不影响内存中的注册表，下一次变更会重新写入，因此这里只记录结果。
func (j *ShareExpiryJob) Run() {
	reaped, err := j.reaper.ReapExpired(j.ctx)

	j.mu.Lock()
	j.reaped, j.lastErr = reaped, err
	j.mu.Unlock()
}

// LastResult 返回最近一次回收的条目数和快照写入错误
func (j *ShareExpiryJob) LastResult() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.reaped, j.lastErr
}

// Name 方法让日志包装器可以打印出更有意义的任务名
func (j *ShareExpiryJob) Name() string {
	return "ShareExpiryJob"
}
