/*
 * @Description: 分享链接领域模型
 * @Author: 安知鱼
 * @Date: 2025-10-19 17:30:21
 * @LastEditTime: 2025-10-19 17:30:21
 * @LastEditors: 安知鱼
 */
package model

import "time"

// ShareLink 代表一个可分享的临时链接。
// ID 是对外暴露的随机令牌（URL 路径段），ObjectKey 指向 Blob 存储中的实际文件。
type ShareLink struct {
	ID        string
	ObjectKey string
	CreatedAt time.Time // 精确到秒，与快照中的 Unix 秒一致
}

// ExpiresAt 返回链接在给定 TTL 下的过期时间点。
// CreatedAt 截断到整秒，因此过期时间可能比实际创建时刻加 TTL 早不到一秒。
func (l *ShareLink) ExpiresAt(ttl time.Duration) time.Time {
	return l.CreatedAt.Add(ttl)
}

// IsExpired 判断链接在 now 时刻是否已过期。
// 过期时间点本身视为已过期：now >= CreatedAt + ttl。
func (l *ShareLink) IsExpired(now time.Time, ttl time.Duration) bool {
	return !now.Before(l.ExpiresAt(ttl))
}

// Clone 返回一个副本，避免调用方修改注册表内部持有的对象
func (l *ShareLink) Clone() *ShareLink {
	c := *l
	return &c
}

// SnapshotRecord 是快照文件中单个链接的序列化结构。
// 快照整体是 map[链接ID]SnapshotRecord，CreatedAt 为 Unix 秒。
type SnapshotRecord struct {
	ObjectKey string `json:"objectKey"`
	CreatedAt int64  `json:"createdAt"`
}

// ToSnapshotRecord 将链接转换为快照记录
func (l *ShareLink) ToSnapshotRecord() SnapshotRecord {
	return SnapshotRecord{
		ObjectKey: l.ObjectKey,
		CreatedAt: l.CreatedAt.Unix(),
	}
}

// FromSnapshotRecord 从快照记录还原链接
func FromSnapshotRecord(id string, rec SnapshotRecord) *ShareLink {
	return &ShareLink{
		ID:        id,
		ObjectKey: rec.ObjectKey,
		CreatedAt: time.Unix(rec.CreatedAt, 0),
	}
}

// ShareInfo 是链接对外展示的详细信息
type ShareInfo struct {
	ID            string    `json:"id"`
	FileName      string    `json:"fileName"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"` // 整秒对齐，到达该时刻即失效
	DownloadCount int64     `json:"downloadCount"`
}

// UploadResult 是上传成功后返回给调用方的结果
type UploadResult struct {
	Link        *ShareLink
	FileName    string
	ContentType string
	Size        int64
	ExpiresAt   time.Time // 整秒对齐
}
