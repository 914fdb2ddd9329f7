/*
 * @Description: 统一配置管理 (终极健壮版，手动加载)
 * @Author: 安知鱼
 * @Date: 2025-06-28 00:21:55
 * @LastEditTime: 2025-10-19 21:52:08
 * @LastEditors: 安知鱼
 */
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-ini/ini"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigPath 是默认的配置文件路径
const DefaultConfigPath = "data/conf.ini"

// EnvPrefix 是环境变量前缀，例如 ANHEYU_DROP_SHARE_TTL
const EnvPrefix = "ANHEYU_DROP"

const (
	KeyServerPort  = "System.Port"
	KeyServerDebug = "System.Debug"

	// KeyServerTrustedProxies 是允许通过 X-Forwarded-For 传递客户端IP的代理，逗号分隔
	KeyServerTrustedProxies = "System.TrustedProxies"

	KeyShareTTL             = "Share.TTL"
	KeyShareCleanupInterval = "Share.CleanupInterval"
	KeyShareMaxUploadSize   = "Share.MaxUploadSize"
	KeyShareSnapshotKey     = "Share.SnapshotKey"
	KeySharePresignTTL      = "Share.PresignTTL"
	KeyShareAdminToken      = "Share.AdminToken"
	KeyShareSiteURL         = "Share.SiteURL"
	KeyShareUploadRate      = "Share.UploadRatePerMinute"
	KeyShareUploadBurst     = "Share.UploadBurst"

	KeyStorageType          = "Storage.Type"
	KeyStorageBasePath      = "Storage.BasePath"
	KeyStorageBucket        = "Storage.Bucket"
	KeyStorageServer        = "Storage.Server"
	KeyStorageRegion        = "Storage.Region"
	KeyStorageAccessKey     = "Storage.AccessKey"
	KeyStorageSecretKey     = "Storage.SecretKey"
	KeyStorageDomain        = "Storage.Domain"
	KeyStorageSigningSecret = "Storage.SigningSecret"

	KeyRedisAddr     = "Redis.Addr"
	KeyRedisPassword = "Redis.Password"
	KeyRedisDB       = "Redis.DB"
)

// 定义所有已知的配置键
var allKeys = []string{
	KeyServerPort, KeyServerDebug, KeyServerTrustedProxies,
	KeyShareTTL, KeyShareCleanupInterval, KeyShareMaxUploadSize, KeyShareSnapshotKey, KeySharePresignTTL,
	KeyShareAdminToken, KeyShareSiteURL, KeyShareUploadRate, KeyShareUploadBurst,
	KeyStorageType, KeyStorageBasePath, KeyStorageBucket, KeyStorageServer, KeyStorageRegion,
	KeyStorageAccessKey, KeyStorageSecretKey, KeyStorageDomain, KeyStorageSigningSecret,
	KeyRedisAddr, KeyRedisPassword, KeyRedisDB,
}

// 内部默认值，配置文件和环境变量都没有提供时使用
var defaults = map[string]interface{}{
	KeyServerPort:           8091,
	KeyServerDebug:          false,
	KeyServerTrustedProxies: "127.0.0.1,::1,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16",
	KeyShareTTL:             "15m",
	KeyShareCleanupInterval: "60s",
	KeyShareMaxUploadSize:   int64(25 << 20),
	KeyShareSnapshotKey:     "registry/share_links.json",
	KeySharePresignTTL:      "10m",
	KeyShareUploadRate:      20,
	KeyShareUploadBurst:     5,
	KeyStorageType:          "local",
	KeyStorageBasePath:      "data/storage",
	KeyRedisDB:              10,
}

type Config struct {
	vp *viper.Viper
}

// NewConfig 从默认路径加载配置
func NewConfig() (*Config, error) {
	return NewConfigFromFile(DefaultConfigPath)
}

// NewConfigFromFile 是最终的构造函数，手动加载配置，确保可靠性。
// 优先级: 环境变量(.env 中的值同样视为环境变量) > 配置文件 > 内部默认值
func NewConfigFromFile(filePath string) (*Config, error) {
	vp := viper.New()
	for key, value := range defaults {
		vp.SetDefault(key, value)
	}

	// --- 步骤 0: 加载 .env 文件（可选），不会覆盖已存在的环境变量 ---
	if err := godotenv.Load(); err == nil {
		log.Println("已从 .env 文件加载环境变量。")
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Printf("警告: 解析 .env 文件失败: %v", err)
	}

	// --- 步骤 1: 使用 go-ini 从文件加载配置 ---
	iniCfg, err := ini.Load(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("提示: 未找到 %s，将创建默认配置文件。", filePath)
			// 自动创建默认配置文件
			if err := createDefaultConfigFile(filePath); err != nil {
				log.Printf("警告: 创建默认配置文件失败: %v，将仅依赖环境变量或内部默认值。", err)
			} else {
				log.Printf("✅ 已创建默认配置文件: %s", filePath)
				// 重新加载配置文件
				iniCfg, err = ini.Load(filePath)
				if err != nil {
					log.Printf("警告: 重新加载配置文件失败: %v", err)
				}
			}
		} else {
			// 如果文件存在但格式错误
			return nil, fmt.Errorf("错误: 解析配置文件 '%s' 失败: %w", filePath, err)
		}
	}

	// 如果文件成功加载，则将其中的非空值全部设置到 Viper 中
	if iniCfg != nil {
		for _, section := range iniCfg.Sections() {
			for _, key := range section.Keys() {
				if key.Value() == "" {
					continue
				}
				// 构建 Viper 使用的 key，例如 "Share.TTL"
				viperKey := fmt.Sprintf("%s.%s", section.Name(), key.Name())
				// 特殊处理默认分区 "DEFAULT"
				if section.Name() == ini.DefaultSection {
					viperKey = key.Name()
				}
				vp.Set(viperKey, key.Value())
			}
		}
		log.Printf("从 %s 文件加载了配置。", filePath)
	}

	// --- 步骤 2: 手动检查并覆盖环境变量 ---
	envReplacer := strings.NewReplacer(".", "_")

	for _, key := range allKeys {
		// 构建环境变量名，例如 ANHEYU_DROP_SHARE_TTL
		envVarName := fmt.Sprintf("%s_%s", EnvPrefix, envReplacer.Replace(strings.ToUpper(key)))

		if value, found := os.LookupEnv(envVarName); found {
			vp.Set(key, value)
			log.Printf("发现环境变量: %s, 已覆盖配置 '%s'。", envVarName, key)
		}
	}

	log.Println("✅ 配置加载器初始化完成。")
	return &Config{vp: vp}, nil
}

func (c *Config) GetString(key string) string {
	return c.vp.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.vp.GetInt(key)
}

func (c *Config) GetInt64(key string) int64 {
	return c.vp.GetInt64(key)
}

func (c *Config) GetBool(key string) bool {
	return c.vp.GetBool(key)
}

// GetStringList 读取逗号分隔的列表配置，忽略空项
func (c *Config) GetStringList(key string) []string {
	var list []string
	for _, item := range strings.Split(c.vp.GetString(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// GetDuration 读取时长配置，支持 "15m"、"60s" 这样的写法
func (c *Config) GetDuration(key string) time.Duration {
	return c.vp.GetDuration(key)
}

// createDefaultConfigFile 创建默认的配置文件
func createDefaultConfigFile(filePath string) error {
	// 确保目录存在
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	defaultConfig := `[System]
Port = 8091
Debug = false
# 受信任的反向代理（IP 或 CIDR，逗号分隔），只有来自这些地址的 X-Forwarded-For 才会被采信
TrustedProxies = 127.0.0.1,::1,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16

[Share]
# 分享链接有效期
TTL = 15m
# 过期链接的回收周期
CleanupInterval = 60s
# 单个文件的大小上限（字节），默认 25MB
MaxUploadSize = 26214400
# 下载链接的有效期，不会超过分享链接剩余的有效期
PresignTTL = 10m
# 删除和列出分享链接时需要的令牌，留空则不校验
AdminToken =
# 对外访问的站点地址，用于生成分享链接，例如 https://drop.example.com
SiteURL =
UploadRatePerMinute = 20
UploadBurst = 5

# 存储配置，Type 可选: local, aws_s3, aliyun_oss, tencent_cos, qiniu_kodo
[Storage]
Type = local
BasePath = data/storage
Bucket =
Server =
Region =
AccessKey =
SecretKey =
Domain =
# 本地存储下载链接的签名密钥，留空则每次启动随机生成
SigningSecret =

# Redis 配置（可选）
# 如果不配置或留空 Addr，系统将自动使用内存缓存
[Redis]
Addr =
Password =
DB = 0
`

	if err := os.WriteFile(filePath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}
