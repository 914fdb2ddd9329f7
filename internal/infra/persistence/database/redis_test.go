package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/anzhiyu-c/anheyu-drop/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.NewConfigFromFile(filepath.Join(t.TempDir(), "conf.ini"))
	require.NoError(t, err)
	return cfg
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantNil  bool
		wantAddr string
		wantDB   int
		wantErr  bool
	}{
		{name: "未配置", env: map[string]string{"ANHEYU_DROP_REDIS_ADDR": ""}, wantNil: true},
		{
			name:     "host:port",
			env:      map[string]string{"ANHEYU_DROP_REDIS_ADDR": "127.0.0.1:6379", "ANHEYU_DROP_REDIS_DB": "3"},
			wantAddr: "127.0.0.1:6379",
			wantDB:   3,
		},
		{
			name:     "URL",
			env:      map[string]string{"ANHEYU_DROP_REDIS_ADDR": "redis://:pw@cache.internal:6380/5"},
			wantAddr: "cache.internal:6380",
			wantDB:   5,
		},
		{name: "URL格式错误", env: map[string]string{"ANHEYU_DROP_REDIS_ADDR": "redis://cache.internal:6380/not-a-db"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := RedisOptions(newConfig(t, tt.env))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, opts)
				return
			}
			require.NotNil(t, opts)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantDB, opts.DB)
		})
	}
}

func TestNewRedisClient_NotConfigured(t *testing.T) {
	cfg := newConfig(t, map[string]string{"ANHEYU_DROP_REDIS_ADDR": ""})

	client, err := NewRedisClient(context.Background(), cfg)
	assert.NoError(t, err)
	assert.Nil(t, client)
}
