/*
 * @Description: 文件上传与分享下载服务
 * @Author: 安知鱼
 * @Date: 2025-10-19 22:20:37
 * @LastEditTime: 2025-10-19 23:05:19
 * @LastEditors: 安知鱼
 */
package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/anzhiyu-c/anheyu-drop/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-drop/pkg/service/utility"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultMaxUploadSize 是单个文件的默认大小上限: 25 MiB
	DefaultMaxUploadSize int64 = 25 << 20
	// DefaultPresignTTL 是下载链接的默认有效期
	DefaultPresignTTL = 10 * time.Minute
	// sniffLen 是用于识别 MIME 类型的文件头长度
	sniffLen = 3072
	// minPresignTTL 是下载链接的最短有效期
	minPresignTTL = time.Second
)

// Service 定义了分享服务对 HTTP 层暴露的操作
type Service interface {
	// Upload 保存文件并创建分享链接
	Upload(ctx context.Context, fileName string, r io.Reader, size int64) (*model.UploadResult, error)
	// Resolve 校验链接并返回一个限时的下载地址
	Resolve(ctx context.Context, id string, inline bool) (string, error)
	// Info 返回链接详情
	Info(ctx context.Context, id string) (*model.ShareInfo, error)
	// Delete 手动删除链接和文件
	Delete(ctx context.Context, id string) error
	// List 列出所有未过期的链接
	List(ctx context.Context) ([]*model.ShareInfo, error)
	// MaxUploadSize 返回单个文件的大小上限
	MaxUploadSize() int64
}

// ServiceOptions 是分享服务的配置
type ServiceOptions struct {
	MaxUploadSize int64
	PresignTTL    time.Duration
}

type serviceImpl struct {
	registry      *Registry
	store         storage.IBlobStore
	cacheSvc      utility.CacheService
	maxUploadSize int64
	presignTTL    time.Duration
}

// NewService 是分享服务的构造函数
func NewService(registry *Registry, store storage.IBlobStore, cacheSvc utility.CacheService, opts ServiceOptions) Service {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = DefaultPresignTTL
	}
	return &serviceImpl{
		registry:      registry,
		store:         store,
		cacheSvc:      cacheSvc,
		maxUploadSize: opts.MaxUploadSize,
		presignTTL:    opts.PresignTTL,
	}
}

func (s *serviceImpl) MaxUploadSize() int64 {
	return s.maxUploadSize
}

// Upload 保存文件并创建分享链接。
// 快照写入失败时上传仍然成功；链接创建失败时删除已经上传的文件。
func (s *serviceImpl) Upload(ctx context.Context, fileName string, r io.Reader, size int64) (*model.UploadResult, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: 未选择文件", constant.ErrBadRequest)
	}
	if size > s.maxUploadSize {
		return nil, s.tooLarge()
	}

	// 读取文件头识别类型，再把它拼回数据流
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	head = head[:n]
	contentType := mimetype.Detect(head).String()

	// 多读一个字节，用来发现超出上限的数据
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxUploadSize+1)
	counter := &countingReader{r: body}

	safeName := SanitizeFileName(fileName)
	objectKey := BuildObjectKey(safeName)

	if err := s.store.Put(ctx, objectKey, counter, size, contentType); err != nil {
		return nil, fmt.Errorf("保存文件失败: %w", err)
	}
	if counter.n > s.maxUploadSize {
		s.deleteObject(ctx, objectKey)
		return nil, s.tooLarge()
	}

	link, err := s.registry.Create(ctx, objectKey)
	if err != nil {
		if link == nil {
			s.deleteObject(ctx, objectKey)
			return nil, fmt.Errorf("创建分享链接失败: %w", err)
		}
		// 持久化失败只记录日志，内存中的链接仍然有效
		log.Printf("[ShareService] 警告: 链接 %s 已创建，但快照未能保存: %v", link.ID, err)
	}

	log.Printf("[ShareService] 文件 '%s' (%s, %s) 已分享，链接ID: %s", safeName, contentType, humanize.IBytes(uint64(counter.n)), link.ID)
	return &model.UploadResult{
		Link:        link,
		FileName:    safeName,
		ContentType: contentType,
		Size:        counter.n,
		ExpiresAt:   link.ExpiresAt(s.registry.TTL()),
	}, nil
}

func (s *serviceImpl) tooLarge() error {
	return fmt.Errorf("%w: 最大允许 %s", constant.ErrFileTooLarge, humanize.IBytes(uint64(s.maxUploadSize)))
}

func (s *serviceImpl) deleteObject(ctx context.Context, objectKey string) {
	if err := s.store.Delete(ctx, objectKey); err != nil {
		log.Printf("[ShareService] 警告: 清理文件 '%s' 失败: %v", objectKey, err)
	}
}

// Resolve 校验链接并返回一个限时的下载地址，地址的有效期不会超过链接剩余的有效期
func (s *serviceImpl) Resolve(ctx context.Context, id string, inline bool) (string, error) {
	link, err := s.registry.Get(ctx, id)
	if err != nil {
		return "", err
	}

	s.incrementDownloads(ctx, link)

	expires := s.presignTTL
	if remaining := link.ExpiresAt(s.registry.TTL()).Sub(s.registry.Now()); remaining < expires {
		expires = remaining
	}
	if expires < minPresignTTL {
		expires = minPresignTTL
	}

	url, err := s.store.Presign(ctx, link.ObjectKey, storage.PresignOptions{
		Expires:  expires,
		FileName: FileNameFromObjectKey(link.ObjectKey),
		Inline:   inline,
	})
	if err != nil {
		return "", fmt.Errorf("生成下载链接失败: %w", err)
	}
	return url, nil
}

// Info 返回链接详情
func (s *serviceImpl) Info(ctx context.Context, id string) (*model.ShareInfo, error) {
	link, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toInfo(ctx, link), nil
}

// Delete 手动删除链接和文件
func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	return s.registry.Delete(ctx, id)
}

// List 列出所有未过期的链接
func (s *serviceImpl) List(ctx context.Context) ([]*model.ShareInfo, error) {
	links := s.registry.List(ctx)
	infos := make([]*model.ShareInfo, 0, len(links))
	for _, link := range links {
		infos = append(infos, s.toInfo(ctx, link))
	}
	return infos, nil
}

func (s *serviceImpl) toInfo(ctx context.Context, link *model.ShareLink) *model.ShareInfo {
	return &model.ShareInfo{
		ID:            link.ID,
		FileName:      FileNameFromObjectKey(link.ObjectKey),
		CreatedAt:     link.CreatedAt,
		ExpiresAt:     link.ExpiresAt(s.registry.TTL()),
		DownloadCount: s.downloads(ctx, link.ID),
	}
}

// incrementDownloads 增加下载计数，计数与链接同时失效
func (s *serviceImpl) incrementDownloads(ctx context.Context, link *model.ShareLink) {
	if s.cacheSvc == nil {
		return
	}
	ttl := link.ExpiresAt(s.registry.TTL()).Sub(s.registry.Now())
	if ttl < minPresignTTL {
		ttl = minPresignTTL
	}
	if _, err := s.cacheSvc.IncrementWithTTL(ctx, DownloadCountKey(link.ID), ttl); err != nil {
		log.Printf("[ShareService] 警告: 更新链接 %s 的下载计数失败: %v", link.ID, err)
	}
}

func (s *serviceImpl) downloads(ctx context.Context, id string) int64 {
	if s.cacheSvc == nil {
		return 0
	}
	val, err := s.cacheSvc.Get(ctx, DownloadCountKey(id))
	if err != nil || val == "" {
		return 0
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return count
}

// DownloadCountKey 返回链接下载计数在缓存中的键
func DownloadCountKey(id string) string {
	return constant.DownloadCountKeyPrefix + id
}

// countingReader 统计实际读取的字节数
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
