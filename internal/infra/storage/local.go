// internal/infra/storage/local.go
package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/spf13/afero"
)

// LocalDownloadRoute 是本地存储签名下载链接的路由前缀
const LocalDownloadRoute = "/api/blob/"

// LocalProvider 实现了 IBlobStore 接口，用于处理与本机磁盘文件系统的所有交互。
// 底层使用 afero 文件系统，生产环境是限定在根目录下的 BasePathFs，测试中可以替换为内存文件系统。
type LocalProvider struct {
	fs            afero.Fs
	signingSecret string
	now           func() time.Time
}

// NewLocalProvider 是 LocalProvider 的构造函数，接收一个文件系统和用于URL签名的密钥。
func NewLocalProvider(fs afero.Fs, secret string) *LocalProvider {
	return &LocalProvider{
		fs:            fs,
		signingSecret: secret,
		now:           time.Now,
	}
}

// NewLocalProviderWithBasePath 在磁盘上的 basePath 目录创建一个 LocalProvider。
// 所有对象都会被限制在该目录下。
func NewLocalProviderWithBasePath(basePath, secret string) (*LocalProvider, error) {
	if basePath == "" {
		return nil, errors.New("本地存储缺少根目录配置")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("无法创建本地存储根目录 '%s': %w", basePath, err)
	}
	log.Printf("[LocalProvider] 使用本地存储目录: %s", basePath)
	return NewLocalProvider(afero.NewBasePathFs(afero.NewOsFs(), basePath), secret), nil
}

// Type 返回驱动类型
func (p *LocalProvider) Type() string {
	return string(constant.StorageTypeLocal)
}

// Put 先写入同目录下的临时文件再重命名，保证快照等对象被整体替换，读者不会看到写了一半的内容。
func (p *LocalProvider) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	objectKey, err := CleanObjectKey(key)
	if err != nil {
		return err
	}

	dir := path.Dir(objectKey)
	if err := p.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("无法创建目录 '%s': %w", dir, err)
	}

	tempFile, err := afero.TempFile(p.fs, dir, ".upload-*.tmp")
	if err != nil {
		return fmt.Errorf("无法在 '%s' 目录创建临时文件: %w", dir, err)
	}
	tempName := tempFile.Name()

	written, err := io.Copy(tempFile, r)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		p.fs.Remove(tempName)
		return fmt.Errorf("写入本地文件 '%s' 失败: %w", objectKey, err)
	}
	if size >= 0 && written != size {
		p.fs.Remove(tempName)
		return fmt.Errorf("写入本地文件 '%s' 不完整: 期望 %d 字节，实际 %d 字节", objectKey, size, written)
	}

	if err := p.fs.Rename(tempName, objectKey); err != nil {
		p.fs.Remove(tempName)
		return fmt.Errorf("移动临时文件到 '%s' 失败: %w", objectKey, err)
	}
	return nil
}

// Get 实现了从本机磁盘获取文件读取器的逻辑。返回的读取器同时实现了 io.Seeker。
func (p *LocalProvider) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	objectKey, err := CleanObjectKey(key)
	if err != nil {
		return nil, err
	}

	file, err := p.fs.Open(objectKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
		}
		return nil, fmt.Errorf("无法打开本地文件 '%s': %w", objectKey, err)
	}
	return file, nil
}

// Stat 返回对象的文件信息，用于下载时设置 Last-Modified
func (p *LocalProvider) Stat(key string) (os.FileInfo, error) {
	objectKey, err := CleanObjectKey(key)
	if err != nil {
		return nil, err
	}
	info, err := p.fs.Stat(objectKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
		}
		return nil, err
	}
	return info, nil
}

// Delete 删除本地文件，文件不存在时静默返回；删除后若所在目录已空，一并清理。
func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	objectKey, err := CleanObjectKey(key)
	if err != nil {
		return err
	}

	if err := p.fs.Remove(objectKey); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("删除本地文件 '%s' 失败: %w", objectKey, err)
	}

	dir := path.Dir(objectKey)
	if dir != "." {
		if empty, err := afero.IsEmpty(p.fs, dir); err == nil && empty {
			if err := p.fs.Remove(dir); err != nil {
				log.Printf("[LocalProvider] 警告: 清理空目录 '%s' 失败: %v", dir, err)
			}
		}
	}
	return nil
}

// Presign 为本地文件生成一个带签名的、有时间限制的临时下载链接。
func (p *LocalProvider) Presign(ctx context.Context, key string, opts PresignOptions) (string, error) {
	objectKey, err := CleanObjectKey(key)
	if err != nil {
		return "", err
	}
	if p.signingSecret == "" {
		return "", errors.New("签名密钥未提供给LocalProvider")
	}

	expires := p.now().Add(presignExpires(opts)).Unix()

	query := url.Values{}
	query.Set("expires", strconv.FormatInt(expires, 10))
	query.Set("sign", p.sign(objectKey, expires, opts))
	if opts.FileName != "" {
		query.Set("name", opts.FileName)
	}
	if opts.Inline {
		query.Set("inline", "1")
	}

	escapedKey := (&url.URL{Path: objectKey}).EscapedPath()
	return LocalDownloadRoute + escapedKey + "?" + query.Encode(), nil
}

// VerifySignature 校验签名下载链接中的参数。
// opts 中的 FileName 和 Inline 取自请求的 name、inline 参数，同样受签名保护。
func (p *LocalProvider) VerifySignature(key, expiresStr, signature string, opts PresignOptions) error {
	objectKey, err := CleanObjectKey(key)
	if err != nil {
		return err
	}
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: 无效的过期时间", constant.ErrSignatureInvalid)
	}
	if p.now().Unix() > expires {
		return fmt.Errorf("%w: 链接已过期", constant.ErrSignatureInvalid)
	}
	expected := p.sign(objectKey, expires, opts)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return constant.ErrSignatureInvalid
	}
	return nil
}

// sign 计算 "key:expires:inline:name" 的 HMAC-SHA256 签名
func (p *LocalProvider) sign(objectKey string, expires int64, opts PresignOptions) string {
	inline := 0
	if opts.Inline {
		inline = 1
	}
	stringToSign := fmt.Sprintf("%s:%d:%d:%s", objectKey, expires, inline, opts.FileName)
	mac := hmac.New(sha256.New, []byte(p.signingSecret))
	mac.Write([]byte(stringToSign))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}
