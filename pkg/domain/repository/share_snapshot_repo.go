package repository

import (
	"context"

	"github.com/anzhiyu-c/anheyu-drop/pkg/domain/model"
)

// ShareSnapshotRepository 定义了分享链接快照的持久化接口。
// 每次保存都是整体覆盖，而不是增量写入。
type ShareSnapshotRepository interface {
	// Load 读取完整快照。快照不存在时返回的错误满足 errors.Is(err, storage.ErrObjectNotFound)。
	Load(ctx context.Context) ([]*model.ShareLink, error)
	// Save 用给定的链接集合整体覆盖快照。
	Save(ctx context.Context, links []*model.ShareLink) error
}
