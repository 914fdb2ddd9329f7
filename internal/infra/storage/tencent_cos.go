/*
 * @Description: 腾讯云COS存储提供者实现
 * @Author: 安知鱼
 * @Date: 2025-09-28 12:00:00
 * @LastEditTime: 2025-10-19 19:03:41
 * @LastEditors: 安知鱼
 */
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/tencentyun/cos-go-sdk-v5"
)

// TencentCOSProvider 实现了 IBlobStore 接口，用于处理与腾讯云COS的所有交互。
type TencentCOSProvider struct {
	client    *cos.Client
	secretID  string
	secretKey string
	basePath  string
}

// NewTencentCOSProvider 是 TencentCOSProvider 的构造函数。
// Server 字段为存储桶访问域名，如 https://examplebucket-1250000000.cos.ap-guangzhou.myqcloud.com
func NewTencentCOSProvider(opts Options) (*TencentCOSProvider, error) {
	if opts.AccessKey == "" {
		return nil, fmt.Errorf("腾讯云COS配置缺少SecretID")
	}
	if opts.SecretKey == "" {
		return nil, fmt.Errorf("腾讯云COS配置缺少SecretKey")
	}
	if opts.Server == "" {
		log.Printf("[腾讯云COS] 错误: 访问域名为空")
		return nil, fmt.Errorf("腾讯云COS配置缺少访问域名")
	}

	u, err := url.Parse(opts.Server)
	if err != nil {
		return nil, fmt.Errorf("解析存储桶URL失败: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Timeout: 100 * time.Second,
		Transport: &cos.AuthorizationTransport{
			SecretID:  opts.AccessKey,
			SecretKey: opts.SecretKey,
		},
	})

	log.Printf("[腾讯云COS] 成功创建客户端: %s", u.Host)
	return &TencentCOSProvider{
		client:    client,
		secretID:  opts.AccessKey,
		secretKey: opts.SecretKey,
		basePath:  opts.BasePath,
	}, nil
}

// Type 返回驱动类型
func (p *TencentCOSProvider) Type() string {
	return string(constant.StorageTypeTencentCOS)
}

func (p *TencentCOSProvider) objectKey(key string) (string, error) {
	cleaned, err := CleanObjectKey(key)
	if err != nil {
		return "", err
	}
	return joinPrefix(p.basePath, cleaned), nil
}

// Put 上传文件到腾讯云COS
func (p *TencentCOSProvider) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return err
	}

	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentTypeOrDefault(contentType),
		},
	}
	if size >= 0 {
		opt.ObjectPutHeaderOptions.ContentLength = size
	}

	if _, err := p.client.Object.Put(ctx, objectKey, r, opt); err != nil {
		log.Printf("[腾讯云COS] 上传失败: objectKey=%s, err=%v", objectKey, err)
		return fmt.Errorf("上传文件到腾讯云COS失败: %w", err)
	}
	return nil
}

// Get 从腾讯云COS获取文件流
func (p *TencentCOSProvider) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Object.Get(ctx, objectKey, nil)
	if err != nil {
		if isCOSNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
		}
		return nil, fmt.Errorf("从腾讯云COS获取文件失败: %w", err)
	}
	return resp.Body, nil
}

// Delete 从腾讯云COS删除文件
func (p *TencentCOSProvider) Delete(ctx context.Context, key string) error {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return err
	}

	if _, err := p.client.Object.Delete(ctx, objectKey); err != nil && !isCOSNotFound(err) {
		return fmt.Errorf("从腾讯云COS删除文件失败: %w", err)
	}
	return nil
}

// Presign 生成预签名下载URL
func (p *TencentCOSProvider) Presign(ctx context.Context, key string, opts PresignOptions) (string, error) {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return "", err
	}

	var presignOpt *cos.PresignedURLOptions
	if disposition := ContentDisposition(opts); disposition != "" {
		query := url.Values{}
		query.Set("response-content-disposition", disposition)
		presignOpt = &cos.PresignedURLOptions{Query: &query, Header: &http.Header{}}
	}

	presignedURL, err := p.client.Object.GetPresignedURL(ctx, http.MethodGet, objectKey,
		p.secretID, p.secretKey, presignExpires(opts), presignOpt)
	if err != nil {
		log.Printf("[腾讯云COS] 生成预签名URL失败: %v", err)
		return "", fmt.Errorf("生成腾讯云COS预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// isCOSNotFound 判断是否为对象不存在错误
func isCOSNotFound(err error) bool {
	var cosErr *cos.ErrorResponse
	if errors.As(err, &cosErr) {
		if cosErr.Code == "NoSuchKey" {
			return true
		}
		return cosErr.Response != nil && cosErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
