/*
 * @Description: 基于 Blob 存储的分享链接快照仓储
 * @Author: 安知鱼
 * @Date: 2025-10-19 19:20:44
 * @LastEditTime: 2025-10-19 19:20:44
 * @LastEditors: 安知鱼
 */
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/anzhiyu-c/anheyu-drop/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/anzhiyu-c/anheyu-drop/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-drop/pkg/domain/repository"
)

const snapshotContentType = "application/json"

type blobSnapshotRepository struct {
	store storage.IBlobStore
	key   string
}

// NewBlobSnapshotRepository 创建一个把快照保存在 Blob 存储中的仓储，key 为空时使用默认对象键。
func NewBlobSnapshotRepository(store storage.IBlobStore, key string) repository.ShareSnapshotRepository {
	if key == "" {
		key = constant.DefaultSnapshotKey
	}
	return &blobSnapshotRepository{store: store, key: key}
}

// Load 读取快照。对象不存在时原样返回 storage.ErrObjectNotFound，由调用方决定按空注册表处理。
func (r *blobSnapshotRepository) Load(ctx context.Context) ([]*model.ShareLink, error) {
	rc, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("读取快照 '%s' 失败: %w", r.key, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []*model.ShareLink{}, nil
	}

	records, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("解析快照 '%s' 失败: %w", r.key, err)
	}

	links := make([]*model.ShareLink, 0, len(records))
	for id, rec := range records {
		if id == "" || rec.ObjectKey == "" {
			log.Printf("[SnapshotRepo] 跳过无效的快照记录: id=%q, objectKey=%q", id, rec.ObjectKey)
			continue
		}
		links = append(links, model.FromSnapshotRecord(id, rec))
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID < links[j].ID
		}
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
	return links, nil
}

// Save 整体覆盖快照对象
func (r *blobSnapshotRepository) Save(ctx context.Context, links []*model.ShareLink) error {
	data, err := Encode(links)
	if err != nil {
		return fmt.Errorf("序列化快照失败: %w", err)
	}
	if err := r.store.Put(ctx, r.key, bytes.NewReader(data), int64(len(data)), snapshotContentType); err != nil {
		return fmt.Errorf("写入快照 '%s' 失败: %w", r.key, err)
	}
	return nil
}

// Encode 把链接集合编码为快照 JSON。encoding/json 对 map 键排序，相同内容总是得到相同的字节。
func Encode(links []*model.ShareLink) ([]byte, error) {
	records := make(map[string]model.SnapshotRecord, len(links))
	for _, link := range links {
		records[link.ID] = link.ToSnapshotRecord()
	}
	return json.Marshal(records)
}

// Decode 解析快照 JSON
func Decode(data []byte) (map[string]model.SnapshotRecord, error) {
	records := make(map[string]model.SnapshotRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
