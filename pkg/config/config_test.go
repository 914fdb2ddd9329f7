package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromFile_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "conf.ini")

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	assert.Equal(t, 8091, cfg.GetInt(KeyServerPort))
	assert.Equal(t, 15*time.Minute, cfg.GetDuration(KeyShareTTL))
	assert.Equal(t, 60*time.Second, cfg.GetDuration(KeyShareCleanupInterval))
	assert.Equal(t, int64(26214400), cfg.GetInt64(KeyShareMaxUploadSize))
	assert.Equal(t, "local", cfg.GetString(KeyStorageType))
	assert.Equal(t, "registry/share_links.json", cfg.GetString(KeyShareSnapshotKey))
	assert.Empty(t, cfg.GetString(KeyShareAdminToken))
	assert.Equal(t, []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		cfg.GetStringList(KeyServerTrustedProxies))
}

func TestNewConfigFromFile_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.ini")
	content := `[System]
Port = 9000
Debug = true
TrustedProxies = 10.1.0.0/16 , ,192.0.2.1

[Share]
TTL = 30m
MaxUploadSize = 1024

[Storage]
Type = aws_s3
Bucket = drop-bucket
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.GetInt(KeyServerPort))
	assert.True(t, cfg.GetBool(KeyServerDebug))
	assert.Equal(t, []string{"10.1.0.0/16", "192.0.2.1"}, cfg.GetStringList(KeyServerTrustedProxies))
	assert.Equal(t, 30*time.Minute, cfg.GetDuration(KeyShareTTL))
	assert.Equal(t, int64(1024), cfg.GetInt64(KeyShareMaxUploadSize))
	assert.Equal(t, "aws_s3", cfg.GetString(KeyStorageType))
	assert.Equal(t, "drop-bucket", cfg.GetString(KeyStorageBucket))
	// 文件中没有的键回落到默认值
	assert.Equal(t, 60*time.Second, cfg.GetDuration(KeyShareCleanupInterval))
}

func TestNewConfigFromFile_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.ini")
	require.NoError(t, os.WriteFile(path, []byte("[Share]\nTTL = 30m\n"), 0644))

	t.Setenv("ANHEYU_DROP_SHARE_TTL", "5m")
	t.Setenv("ANHEYU_DROP_SHARE_ADMINTOKEN", "s3cret")

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.GetDuration(KeyShareTTL))
	assert.Equal(t, "s3cret", cfg.GetString(KeyShareAdminToken))
}

func TestNewConfigFromFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.ini")
	require.NoError(t, os.WriteFile(path, []byte("[System\nPort = 1"), 0644))

	_, err := NewConfigFromFile(path)
	assert.Error(t, err)
}
