/*
 * @Description: 分享链接注册表，维护链接ID到对象键的映射并负责过期回收
 * @Author: 安知鱼
 * @Date: 2025-10-19 19:31:02
 * @LastEditTime: 2025-10-19 21:12:47
 * @LastEditors: 安知鱼
 */
package share

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-drop/internal/pkg/event"
	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/anzhiyu-c/anheyu-drop/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-drop/pkg/domain/repository"
	"github.com/anzhiyu-c/anheyu-drop/pkg/idgen"
)

const (
	// DefaultTTL 是分享链接的默认有效期
	DefaultTTL = 15 * time.Minute
	// maxIDAttempts 是生成不重复ID的最大尝试次数
	maxIDAttempts = 5
)

// ErrIDExhausted 表示多次尝试后仍然无法生成不重复的链接ID
var ErrIDExhausted = errors.New("无法生成唯一的分享链接ID")

// Options 是注册表的可选配置
type Options struct {
	TTL      time.Duration
	IDLength int
	// Clock 返回当前时间，为空时使用 time.Now
	Clock func() time.Time
}

// Registry 是进程内唯一的分享链接注册表。
// 内存中的 map 是实时的权威数据，快照只是它的持久化副本：
// 所有对 map 的读改写都在 mu 内完成，Blob 存储的读写一律在释放 mu 之后进行。
type Registry struct {
	mu    sync.Mutex
	links map[string]*model.ShareLink

	// saveMu 串行化快照写入，每次写入都在持有 saveMu 之后才截取当前状态
	saveMu sync.Mutex

	store     storage.IBlobStore
	snapshots repository.ShareSnapshotRepository
	bus       *event.EventBus

	ttl      time.Duration
	idLength int
	now      func() time.Time
}

// NewRegistry 创建一个空的注册表，调用 Load 从快照恢复数据。bus 可以为 nil。
func NewRegistry(store storage.IBlobStore, snapshots repository.ShareSnapshotRepository, bus *event.EventBus, opts Options) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.IDLength <= 0 {
		opts.IDLength = idgen.DefaultLinkIDLength
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Registry{
		links:     make(map[string]*model.ShareLink),
		store:     store,
		snapshots: snapshots,
		bus:       bus,
		ttl:       opts.TTL,
		idLength:  opts.IDLength,
		now:       opts.Clock,
	}
}

// TTL 返回链接有效期
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Now 返回注册表时钟的当前时间
func (r *Registry) Now() time.Time {
	return r.now()
}

// Len 返回注册表中的条目数（包括已过期但尚未回收的）
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// Create 为 objectKey 登记一个新链接。
// 快照写入失败时链接仍然有效，返回链接的同时返回包装了 constant.ErrPersistence 的错误。
func (r *Registry) Create(ctx context.Context, objectKey string) (*model.ShareLink, error) {
	if objectKey == "" {
		return nil, fmt.Errorf("%w: 对象键不能为空", constant.ErrBadRequest)
	}

	r.mu.Lock()
	id, err := r.newIDLocked()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	link := &model.ShareLink{
		ID:        id,
		ObjectKey: objectKey,
		CreatedAt: r.now().Truncate(time.Second),
	}
	r.links[id] = link
	created := link.Clone()
	r.mu.Unlock()

	r.publish(event.ShareCreated, created)

	if err := r.Save(ctx); err != nil {
		log.Printf("[ShareRegistry] 警告: 创建链接 %s 后保存快照失败: %v", id, err)
		return created, err
	}
	return created, nil
}

// newIDLocked 生成一个当前未被占用的ID，调用方必须持有 mu
func (r *Registry) newIDLocked() (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := idgen.GenerateLinkID(r.idLength)
		if err != nil {
			return "", err
		}
		if _, exists := r.links[id]; !exists {
			return id, nil
		}
		log.Printf("[ShareRegistry] 链接ID冲突，重新生成 (第 %d 次)", attempt+1)
	}
	return "", ErrIDExhausted
}

// Get 返回未过期的链接。
// 链接不存在返回 constant.ErrLinkNotFound；已过期则当场回收并返回 constant.ErrLinkExpired。
func (r *Registry) Get(ctx context.Context, id string) (*model.ShareLink, error) {
	if !idgen.IsValidLinkID(id, r.idLength) {
		return nil, constant.ErrLinkNotFound
	}
	r.mu.Lock()
	link, ok := r.links[id]
	if !ok {
		r.mu.Unlock()
		return nil, constant.ErrLinkNotFound
	}
	if link.IsExpired(r.now(), r.ttl) {
		delete(r.links, id)
		r.mu.Unlock()

		r.evict(ctx, []*model.ShareLink{link}, event.ShareExpired)
		if err := r.Save(ctx); err != nil {
			log.Printf("[ShareRegistry] 警告: 回收过期链接 %s 后保存快照失败: %v", id, err)
		}
		return nil, constant.ErrLinkExpired
	}
	found := link.Clone()
	r.mu.Unlock()
	return found, nil
}

// Delete 无条件删除链接（不论是否过期），并尽力删除对应的文件。
// 对同一个ID重复调用时，第二次返回 constant.ErrLinkNotFound。
func (r *Registry) Delete(ctx context.Context, id string) error {
	if !idgen.IsValidLinkID(id, r.idLength) {
		return constant.ErrLinkNotFound
	}
	r.mu.Lock()
	link, ok := r.links[id]
	if !ok {
		r.mu.Unlock()
		return constant.ErrLinkNotFound
	}
	delete(r.links, id)
	r.mu.Unlock()

	r.evict(ctx, []*model.ShareLink{link}, event.ShareDeleted)
	if err := r.Save(ctx); err != nil {
		log.Printf("[ShareRegistry] 警告: 删除链接 %s 后保存快照失败: %v", id, err)
	}
	return nil
}

// ReapExpired 执行一次回收：移除所有在当前时刻已过期的链接，尽力删除它们的文件，
// 有条目被移除时只写一次快照。返回被移除的条目数。
func (r *Registry) ReapExpired(ctx context.Context) (int, error) {
	now := r.now()

	r.mu.Lock()
	var expired []*model.ShareLink
	for id, link := range r.links {
		if link.IsExpired(now, r.ttl) {
			expired = append(expired, link)
			delete(r.links, id)
		}
	}
	r.mu.Unlock()

	if len(expired) == 0 {
		return 0, nil
	}

	r.evict(ctx, expired, event.ShareExpired)
	if err := r.Save(ctx); err != nil {
		return len(expired), err
	}
	return len(expired), nil
}

// List 返回所有未过期的链接，按创建时间升序
func (r *Registry) List(ctx context.Context) []*model.ShareLink {
	now := r.now()

	r.mu.Lock()
	links := make([]*model.ShareLink, 0, len(r.links))
	for _, link := range r.links {
		if !link.IsExpired(now, r.ttl) {
			links = append(links, link.Clone())
		}
	}
	r.mu.Unlock()

	sortLinks(links)
	return links
}

// Load 从快照恢复注册表。
// 快照不存在时从空注册表开始；其它读取错误同样从空注册表开始，只记录日志。
func (r *Registry) Load(ctx context.Context) {
	links, err := r.snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Printf("[ShareRegistry] 未找到快照，从空注册表开始")
		} else {
			log.Printf("[ShareRegistry] 错误: 加载快照失败，从空注册表开始: %v", err)
		}
		links = nil
	}

	restored := make(map[string]*model.ShareLink, len(links))
	for _, link := range links {
		if !idgen.IsValidLinkID(link.ID, r.idLength) {
			log.Printf("[ShareRegistry] 警告: 跳过ID格式不正确的快照记录 %q", link.ID)
			continue
		}
		restored[link.ID] = link.Clone()
	}

	r.mu.Lock()
	r.links = restored
	r.mu.Unlock()

	log.Printf("[ShareRegistry] 已加载 %d 个分享链接", len(restored))
}

// Save 用当前内存状态整体覆盖快照。
// 状态在获取 saveMu 之后才截取，因此并发保存时最后一次写入总是反映最新状态。
func (r *Registry) Save(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.Lock()
	links := make([]*model.ShareLink, 0, len(r.links))
	for _, link := range r.links {
		links = append(links, link.Clone())
	}
	r.mu.Unlock()

	if err := r.snapshots.Save(ctx, links); err != nil {
		return fmt.Errorf("%w: %w", constant.ErrPersistence, err)
	}
	return nil
}

// evict 尽力删除已移出注册表的链接对应的文件并发布事件，单个文件删除失败不影响其它条目
func (r *Registry) evict(ctx context.Context, links []*model.ShareLink, topic event.Topic) {
	for _, link := range links {
		if err := r.store.Delete(ctx, link.ObjectKey); err != nil {
			log.Printf("[ShareRegistry] 警告: 删除链接 %s 的文件 '%s' 失败: %v", link.ID, link.ObjectKey, err)
		}
		r.publish(topic, link.Clone())
	}
}

func (r *Registry) publish(topic event.Topic, link *model.ShareLink) {
	if r.bus != nil {
		r.bus.Publish(topic, link)
	}
}

func sortLinks(links []*model.ShareLink) {
	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID < links[j].ID
		}
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
}
