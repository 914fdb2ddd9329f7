/*
 * @Description: 七牛云Kodo存储提供者实现
 * @Author: 安知鱼
 * @Date: 2025-09-29 10:00:00
 * @LastEditTime: 2025-10-19 19:15:08
 * @LastEditors: 安知鱼
 */
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/qiniu/go-sdk/v7/auth"
	kodo "github.com/qiniu/go-sdk/v7/storage"
)

// QiniuKodoProvider 实现了 IBlobStore 接口，用于处理与七牛云Kodo的所有交互。
// 七牛云私有空间通过下载域名 + 签名访问，因此 Get 也是基于私有链接实现的。
type QiniuKodoProvider struct {
	mac           *auth.Credentials
	uploader      *kodo.FormUploader
	bucketManager *kodo.BucketManager
	bucketName    string
	domain        string
	basePath      string
	httpClient    *http.Client
}

// NewQiniuKodoProvider 是 QiniuKodoProvider 的构造函数。
func NewQiniuKodoProvider(opts Options) (*QiniuKodoProvider, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("七牛云配置缺少存储空间名称")
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("七牛云配置缺少AccessKey或SecretKey")
	}
	if opts.Domain == "" {
		return nil, fmt.Errorf("七牛云配置缺少下载域名（Storage.Domain）")
	}

	domain := strings.TrimSuffix(opts.Domain, "/")
	// 确保下载域名有协议前缀
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}

	mac := auth.New(opts.AccessKey, opts.SecretKey)
	cfg := qiniuConfig(opts.Server)

	return &QiniuKodoProvider{
		mac:           mac,
		uploader:      kodo.NewFormUploader(cfg),
		bucketManager: kodo.NewBucketManager(mac, cfg),
		bucketName:    opts.Bucket,
		domain:        domain,
		basePath:      opts.BasePath,
		httpClient:    &http.Client{Timeout: 100 * time.Second},
	}, nil
}

// qiniuConfig 从上传域名解析区域
// 七牛云区域域名格式: https://up-z0.qiniup.com (华东)
// z0=华东, z1=华北, z2=华南, na0=北美, as0=东南亚
func qiniuConfig(server string) *kodo.Config {
	cfg := &kodo.Config{
		UseHTTPS:      true,
		UseCdnDomains: false,
	}

	server = strings.ToLower(server)
	switch {
	case server == "":
		// 未配置时由SDK自动查询区域
	case strings.Contains(server, "up-z1"):
		cfg.Region = &kodo.ZoneHuabei
	case strings.Contains(server, "up-z2"):
		cfg.Region = &kodo.ZoneHuanan
	case strings.Contains(server, "up-na0"):
		cfg.Region = &kodo.ZoneBeimei
	case strings.Contains(server, "up-as0"):
		cfg.Region = &kodo.ZoneXinjiapo
	default:
		cfg.Region = &kodo.ZoneHuadong
	}
	return cfg
}

// Type 返回驱动类型
func (p *QiniuKodoProvider) Type() string {
	return string(constant.StorageTypeQiniu)
}

func (p *QiniuKodoProvider) objectKey(key string) (string, error) {
	cleaned, err := CleanObjectKey(key)
	if err != nil {
		return "", err
	}
	return joinPrefix(p.basePath, cleaned), nil
}

// Put 通过表单上传写入对象，允许覆盖同名对象
func (p *QiniuKodoProvider) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return err
	}

	// 七牛云SDK需要知道文件大小
	if size < 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("读取上传文件失败: %w", err)
		}
		r = bytes.NewReader(data)
		size = int64(len(data))
	}

	// scope 指定 key 时为覆盖上传
	putPolicy := kodo.PutPolicy{
		Scope: fmt.Sprintf("%s:%s", p.bucketName, objectKey),
	}
	upToken := putPolicy.UploadToken(p.mac)

	ret := kodo.PutRet{}
	putExtra := kodo.PutExtra{MimeType: contentTypeOrDefault(contentType)}

	if err := p.uploader.Put(ctx, &ret, upToken, objectKey, r, size, &putExtra); err != nil {
		log.Printf("[七牛云] 上传失败: objectKey=%s, err=%v", objectKey, err)
		return fmt.Errorf("上传文件到七牛云失败: %w", err)
	}
	return nil
}

// Get 通过私有下载链接获取文件流
func (p *QiniuKodoProvider) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(DefaultPresignExpires).Unix()
	downloadURL := kodo.MakePrivateURL(p.mac, p.domain, objectKey, deadline)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建七牛云下载请求失败: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("从七牛云获取文件失败: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("从七牛云获取文件失败: HTTP %d", resp.StatusCode)
	}
}

// Delete 删除七牛云对象
func (p *QiniuKodoProvider) Delete(ctx context.Context, key string) error {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return err
	}

	if err := p.bucketManager.Delete(p.bucketName, objectKey); err != nil && !isQiniuNotFound(err) {
		return fmt.Errorf("从七牛云删除文件失败: %w", err)
	}
	return nil
}

// Presign 生成私有空间签名URL，文件名由浏览器根据对象键决定
func (p *QiniuKodoProvider) Presign(ctx context.Context, key string, opts PresignOptions) (string, error) {
	objectKey, err := p.objectKey(key)
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(presignExpires(opts)).Unix()
	return kodo.MakePrivateURL(p.mac, p.domain, objectKey, deadline), nil
}

// isQiniuNotFound 检查是否是文件不存在的错误
func isQiniuNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such file or directory") ||
		strings.Contains(msg, "612") // 七牛云的文件不存在错误码
}
