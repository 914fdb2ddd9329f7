/*
 * @Description: 存储类型与缓存键常量
 * @Author: 安知鱼
 * @Date: 2025-06-23 15:10:56
 * @LastEditTime: 2025-10-19 17:02:45
 * @LastEditors: 安知鱼
 */
package constant

// StorageType 定义了 Blob 存储的类型，提供了更强的类型安全
type StorageType string

// 定义支持的存储类型常量
const (
	StorageTypeLocal      StorageType = "local"
	StorageTypeTencentCOS StorageType = "tencent_cos"
	StorageTypeAliOSS     StorageType = "aliyun_oss"
	StorageTypeS3         StorageType = "aws_s3"
	StorageTypeQiniu      StorageType = "qiniu_kodo"
)

// IsValid 检查存储类型是否受支持
func (t StorageType) IsValid() bool {
	switch t {
	case StorageTypeLocal, StorageTypeTencentCOS, StorageTypeAliOSS, StorageTypeS3, StorageTypeQiniu:
		return true
	}
	return false
}

const (
	// DownloadCountKeyPrefix 是分享链接下载计数在缓存中的键前缀
	DownloadCountKeyPrefix = "share:downloads:"
	// UploadObjectPrefix 是上传文件在 Blob 存储中的对象键前缀
	UploadObjectPrefix = "uploads"
	// DefaultSnapshotKey 是分享链接快照在 Blob 存储中的默认对象键
	DefaultSnapshotKey = "registry/share_links.json"
)
