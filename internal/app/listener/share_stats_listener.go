/*
 * @Description: 监听分享链接事件，维护下载计数
 * @Author: 安知鱼
 * @Date: 2025-10-19 23:12:40
 * @LastEditTime: 2025-10-19 23:12:40
 * @LastEditors: 安知鱼
 */
package listener

import (
	"context"
	"log"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/internal/pkg/event"
	"github.com/anzhiyu-c/anheyu-drop/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-drop/pkg/service/share"
	"github.com/anzhiyu-c/anheyu-drop/pkg/service/utility"
)

const cacheOpTimeout = 3 * time.Second

// ShareStatsListener 在链接被删除或回收时清理它的下载计数
type ShareStatsListener struct {
	cacheSvc utility.CacheService
}

// NewShareStatsListener 是 ShareStatsListener 的构造函数，并订阅链接移除相关的事件。
func NewShareStatsListener(eventBus *event.EventBus, cacheSvc utility.CacheService) *ShareStatsListener {
	listener := &ShareStatsListener{cacheSvc: cacheSvc}
	eventBus.Subscribe(event.ShareCreated, listener.handleShareCreated)
	eventBus.Subscribe(event.ShareDeleted, listener.handleShareRemoved)
	eventBus.Subscribe(event.ShareExpired, listener.handleShareRemoved)
	return listener
}

func (l *ShareStatsListener) handleShareCreated(payload interface{}) {
	link, ok := payload.(*model.ShareLink)
	if !ok {
		log.Printf("[ShareStatsListener] 错误：收到的事件负载类型不正确")
		return
	}
	log.Printf("[ShareStatsListener] 新分享链接 %s -> %s", link.ID, link.ObjectKey)
}

// handleShareRemoved 删除已移除链接的下载计数
func (l *ShareStatsListener) handleShareRemoved(payload interface{}) {
	link, ok := payload.(*model.ShareLink)
	if !ok {
		log.Printf("[ShareStatsListener] 错误：收到的事件负载类型不正确")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()

	if err := l.cacheSvc.Delete(ctx, share.DownloadCountKey(link.ID)); err != nil {
		log.Printf("[ShareStatsListener] 警告: 清理链接 %s 的下载计数失败: %v", link.ID, err)
	}
}
