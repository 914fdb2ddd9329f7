package share

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxFileNameBytes 是清理后文件名的最大字节数
	MaxFileNameBytes = 128
	// fallbackFileName 在文件名清理后为空时使用
	fallbackFileName = "file"
)

// SanitizeFileName 把用户上传的文件名转换为可以安全放进对象键的形式：
// 只保留最后一段路径，统一为 NFC，替换控制字符和保留字符，去掉开头的点，并限制长度。
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == utf8.RuneError:
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		case strings.ContainsRune(`/:*?"<>|#%&`, r):
			b.WriteRune('_')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimSpace(b.String())
	cleaned = strings.TrimLeft(cleaned, ".")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = truncateFileName(cleaned, MaxFileNameBytes)

	if cleaned == "" {
		return fallbackFileName
	}
	return cleaned
}

// truncateFileName 在不切断 UTF-8 字符的前提下把文件名截断到 limit 字节，尽量保留扩展名
func truncateFileName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}

	ext := path.Ext(name)
	if len(ext) > 16 || len(ext) >= limit {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)

	budget := limit - len(ext)
	for len(stem) > budget {
		_, size := utf8.DecodeLastRuneInString(stem)
		stem = stem[:len(stem)-size]
	}
	return strings.TrimSpace(stem) + ext
}

// BuildObjectKey 为一次上传生成不会与其它上传冲突的对象键: uploads/<uuid>/<文件名>
func BuildObjectKey(fileName string) string {
	return path.Join(constant.UploadObjectPrefix, uuid.NewString(), SanitizeFileName(fileName))
}

// FileNameFromObjectKey 从对象键中取出展示给用户的文件名
func FileNameFromObjectKey(objectKey string) string {
	return path.Base(objectKey)
}
