/*
 * @Description: 分享链接相关的标准错误
 * @Author: 安知鱼
 * @Date: 2025-06-27 12:08:15
 * @LastEditTime: 2025-10-19 16:40:12
 * @LastEditors: 安知鱼
 */
package constant

import (
	"errors"
	"fmt"
)

// 定义业务逻辑相关的标准错误
var (
	// ErrLinkNotFound 表示分享链接不存在（或已被删除、回收），可以由 Handler 转换为 404
	ErrLinkNotFound = errors.New("分享链接不存在")

	// ErrLinkExpired 表示分享链接在访问时已过期并被惰性回收。
	// 它包装了 ErrLinkNotFound，调用方可以统一按"不存在"处理，也可以单独识别后转换为 410。
	ErrLinkExpired = fmt.Errorf("%w: 链接已过期", ErrLinkNotFound)

	// ErrPersistence 表示快照读写失败，不会导致调用方的操作失败，仅用于记录日志
	ErrPersistence = errors.New("分享链接快照持久化失败")

	// ErrBadRequest 表示请求参数错误，可以由 Handler 转换为 400
	ErrBadRequest = errors.New("错误的请求")

	// ErrUnauthorized 表示未授权，可以由 Handler 转换为 401
	ErrUnauthorized = errors.New("未经授权的访问")

	// ErrSignatureInvalid 表示签名无效，可以由 Handler 转换为 403
	ErrSignatureInvalid = errors.New("签名无效")

	// ErrFileTooLarge 表示上传的文件超过大小限制，可以由 Handler 转换为 413
	ErrFileTooLarge = errors.New("文件过大")

	// ErrInvalidStorageType 表示配置了不支持的存储类型
	ErrInvalidStorageType = errors.New("无效的存储类型")
)
