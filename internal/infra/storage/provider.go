/*
 * @Description: 定义了所有 Blob 存储驱动需要遵守的接口和公共结构
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-19 18:05:11
 * @LastEditors: 安知鱼
 */
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound 表示对象在存储中不存在。
// 各驱动需要把自己的"不存在"错误统一转换为它，上层通过 errors.Is 判断。
var ErrObjectNotFound = errors.New("对象不存在")

// ErrInvalidObjectKey 表示对象键不合法（为空、绝对路径或包含 ".." 段）
var ErrInvalidObjectKey = errors.New("无效的对象键")

// DefaultPresignExpires 是未指定时预签名链接的默认有效期
const DefaultPresignExpires = time.Hour

// PresignOptions 包含了生成预签名下载链接时的参数
type PresignOptions struct {
	Expires  time.Duration // 链接有效期，<=0 时使用 DefaultPresignExpires
	FileName string        // 下载时展示给用户的文件名，为空则由存储决定
	Inline   bool          // true 表示浏览器内预览，false 表示作为附件下载
}

// IBlobStore 定义了所有存储提供者必须实现的接口。
// 对象键一律使用 "/" 分隔的相对路径，例如 "uploads/<uuid>/a.txt"。
type IBlobStore interface {
	// Put 写入（或整体覆盖）一个对象。size 未知时传 -1。
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get 返回对象内容，对象不存在时返回 ErrObjectNotFound。
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除对象。删除一个已经不存在的对象不是错误。
	Delete(ctx context.Context, key string) error
	// Presign 为对象生成一个有时间限制的访问链接。
	Presign(ctx context.Context, key string, opts PresignOptions) (string, error)
	// Type 返回驱动类型，用于日志
	Type() string
}

// Options 是构建存储驱动所需的全部配置，不同驱动只使用其中的一部分字段。
type Options struct {
	Type          string
	BasePath      string // local: 本地根目录；云存储: 对象键前缀
	Bucket        string
	Server        string // 区域、Endpoint 或存储桶访问域名，含义随驱动变化
	Region        string
	AccessKey     string
	SecretKey     string
	Domain        string // 七牛云下载域名
	SigningSecret string // local: 下载链接签名密钥
}

// CleanObjectKey 规范化对象键并拒绝可能越界的键
func CleanObjectKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidObjectKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %s", ErrInvalidObjectKey, key)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %s", ErrInvalidObjectKey, key)
	}
	return cleaned, nil
}

// joinPrefix 将对象键与云存储上的基础前缀拼接
func joinPrefix(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// presignExpires 返回有效期，未设置时使用默认值
func presignExpires(opts PresignOptions) time.Duration {
	if opts.Expires <= 0 {
		return DefaultPresignExpires
	}
	return opts.Expires
}

// activeExtensions 是浏览器可能当作页面或脚本执行的文件类型
var activeExtensions = map[string]bool{
	".htm": true, ".html": true, ".shtml": true, ".xhtml": true, ".xht": true,
	".svg": true, ".svgz": true, ".xml": true, ".xsl": true, ".xslt": true,
	".js": true, ".mjs": true, ".swf": true,
}

// IsActiveContent 判断文件名对应的类型在浏览器内打开时是否可能执行脚本
func IsActiveContent(fileName string) bool {
	return activeExtensions[strings.ToLower(path.Ext(fileName))]
}

// SafeContentType 返回下载时使用的 Content-Type。
// 无法从扩展名判断的类型以及可执行的类型一律按二进制流处理，不交给浏览器嗅探。
func SafeContentType(fileName string) string {
	if IsActiveContent(fileName) {
		return "application/octet-stream"
	}
	return contentTypeOrDefault(mime.TypeByExtension(path.Ext(fileName)))
}

// ContentDisposition 根据选项构造 Content-Disposition 头，文件名为空时返回空字符串。
// 可执行的类型即使要求预览也会作为附件下载。
func ContentDisposition(opts PresignOptions) string {
	dispositionType := "attachment"
	if opts.Inline && !IsActiveContent(opts.FileName) {
		dispositionType = "inline"
	}
	if opts.FileName == "" {
		if opts.Inline {
			return ""
		}
		return dispositionType
	}
	// mime.FormatMediaType 会对非 ASCII 文件名使用 RFC 2231 编码
	if v := mime.FormatMediaType(dispositionType, map[string]string{"filename": opts.FileName}); v != "" {
		return v
	}
	return dispositionType
}

// contentTypeOrDefault 返回有效的 Content-Type
func contentTypeOrDefault(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
