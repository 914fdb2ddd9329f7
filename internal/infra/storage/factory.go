package storage

import (
	"context"
	"fmt"

	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
)

// NewBlobStore 根据配置的存储类型创建对应的驱动
func NewBlobStore(ctx context.Context, opts Options) (IBlobStore, error) {
	storageType := constant.StorageType(opts.Type)
	if storageType == "" {
		storageType = constant.StorageTypeLocal
	}
	if !storageType.IsValid() {
		return nil, fmt.Errorf("%w: %s", constant.ErrInvalidStorageType, opts.Type)
	}

	switch storageType {
	case constant.StorageTypeS3:
		return NewAWSS3Provider(ctx, opts)
	case constant.StorageTypeAliOSS:
		return NewAliOSSProvider(opts)
	case constant.StorageTypeTencentCOS:
		return NewTencentCOSProvider(opts)
	case constant.StorageTypeQiniu:
		return NewQiniuKodoProvider(opts)
	default:
		return NewLocalProviderWithBasePath(opts.BasePath, opts.SigningSecret)
	}
}
