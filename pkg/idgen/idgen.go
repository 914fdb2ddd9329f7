/*
 * @Description: 分享链接 ID 生成
 * @Author: 安知鱼
 * @Date: 2025-06-17 20:38:15
 * @LastEditTime: 2025-10-19 17:21:36
 * @LastEditors: 安知鱼
 */
package idgen

import (
	"crypto/rand"
	"fmt"
)

// DefaultAlphabet 是默认的字母表，共 62 个符号
const DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLinkIDLength 是分享链接 ID 的默认长度，62^8 ≈ 2.18×10^14 种取值
const DefaultLinkIDLength = 8

// maxUnbiasedByte 是不产生取模偏差的最大字节值（不含）。
// 256 - 256%62 = 248，落在 [248, 256) 的字节会被丢弃重取。
const maxUnbiasedByte = 256 - 256%len(DefaultAlphabet)

// GenerateLinkID 生成一个指定长度的随机 ID，每个字符都从 DefaultAlphabet 中均匀抽取。
func GenerateLinkID(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("无效的ID长度: %d", length)
	}

	id := make([]byte, 0, length)
	// 一次多读一些，减少因拒绝采样导致的重复读取
	buf := make([]byte, length+length/2+1)
	for len(id) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("读取随机数失败: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			id = append(id, DefaultAlphabet[int(b)%len(DefaultAlphabet)])
			if len(id) == length {
				break
			}
		}
	}
	return string(id), nil
}

// IsValidLinkID 检查给定字符串是否可能是一个合法的分享链接 ID。
// 用于在查询注册表之前快速拒绝明显非法的输入。
func IsValidLinkID(id string, length int) bool {
	if len(id) != length {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
