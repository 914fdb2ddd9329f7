/*
 * @Description: 阿里云OSS存储提供者实现
 * @Author: 安知鱼
 * @Date: 2025-09-28 18:00:00
 * @LastEditTime: 2025-10-19 18:52:30
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

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
)

// AliOSSProvider 实现了 IBlobStore 接口，用于处理与阿里云OSS的所有交互。
type AliOSSProvider struct {
	bucket   *oss.Bucket
	basePath string
}

// NewAliOSSProvider 是 AliOSSProvider 的构造函数。
// Server 字段为 Endpoint，格式如: https://oss-cn-shanghai.aliyuncs.com
func NewAliOSSProvider(opts Options) (*AliOSSProvider, error) {
	if opts.Bucket == "" {
		log.Printf("[阿里云OSS] 错误: 存储桶名称为空")
		return nil, fmt.Errorf("阿里云OSS配置缺少存储桶名称")
	}
	if opts.AccessKey == "" {
		return nil, fmt.Errorf("阿里云OSS配置缺少AccessKey")
	}
	if opts.SecretKey == "" {
		return nil, fmt.Errorf("阿里云OSS配置缺少SecretKey")
	}
	if opts.Server == "" {
		return nil, fmt.Errorf("阿里云OSS配置缺少Endpoint")
	}

	client, err := oss.New(opts.Server, opts.AccessKey, opts.SecretKey)
	if err != nil {
		log.Printf("[阿里云OSS] 创建客户端失败: %v", err)
		return nil, fmt.Errorf("创建阿里云OSS客户端失败: %w", err)
	}

	bucket, err := client.Bucket(opts.Bucket)
	if err != nil {
		log.Printf("[阿里云OSS] 获取存储桶失败: %v", err)
		return nil, fmt.Errorf("获取阿里云OSS存储桶失败: %w", err)
	}

	log.Printf("[阿里云OSS] 成功创建客户端和存储桶: %s", opts.Bucket)
	return &AliOSSProvider{bucket: bucket, basePath: opts.BasePath}, nil
}

// Type 返回驱动类型
func (p *AliOSSProvider) Type() string {
	return string(constant.StorageTypeAliOSS)
}

func (p *AliOSSProvider) objectKey(key string) (string, error) {
	cleaned, err := CleanObjectKey(key)
	if err != nil {
		return "", err
	}
	return joinPrefix(p.basePath, cleaned), nil
}

// Put 上传文件到阿里云OSS
func (p *AliOSSProvider) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return err
	}

	options := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentTypeOrDefault(contentType)),
	}
	if size >= 0 {
		options = append(options, oss.ContentLength(size))
	}

	if err := p.bucket.PutObject(objectKey, r, options...); err != nil {
		log.Printf("[阿里云OSS] 上传失败: objectKey=%s, err=%v", objectKey, err)
		return fmt.Errorf("上传文件到阿里云OSS失败: %w", err)
	}
	return nil
}

// Get 从阿里云OSS获取文件流
func (p *AliOSSProvider) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return nil, err
	}

	body, err := p.bucket.GetObject(objectKey, oss.WithContext(ctx))
	if err != nil {
		if isOSSNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
		}
		return nil, fmt.Errorf("从阿里云OSS获取文件失败: %w", err)
	}
	return body, nil
}

// Delete 从阿里云OSS删除文件
func (p *AliOSSProvider) Delete(ctx context.Context, key string) error {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return err
	}

	if err := p.bucket.DeleteObject(objectKey, oss.WithContext(ctx)); err != nil && !isOSSNotFound(err) {
		return fmt.Errorf("从阿里云OSS删除文件失败: %w", err)
	}
	return nil
}

// Presign 生成带签名的下载URL
func (p *AliOSSProvider) Presign(ctx context.Context, key string, opts PresignOptions) (string, error) {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return "", err
	}

	var signOptions []oss.Option
	if disposition := ContentDisposition(opts); disposition != "" {
		signOptions = append(signOptions, oss.ResponseContentDisposition(disposition))
	}

	expiresIn := int64(presignExpires(opts).Seconds())
	signedURL, err := p.bucket.SignURL(objectKey, oss.HTTPGet, expiresIn, signOptions...)
	if err != nil {
		log.Printf("[阿里云OSS] 生成签名URL失败: %v", err)
		return "", fmt.Errorf("生成阿里云OSS签名URL失败: %w", err)
	}
	return signedURL, nil
}

// isOSSNotFound 判断是否为对象不存在错误
func isOSSNotFound(err error) bool {
	var serviceErr oss.ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.StatusCode == http.StatusNotFound || serviceErr.Code == "NoSuchKey"
	}
	return false
}
