package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anzhiyu-c/anheyu-drop/internal/infra/persistence/snapshot"
	"github.com/anzhiyu-c/anheyu-drop/internal/infra/storage"
	share_handler "github.com/anzhiyu-c/anheyu-drop/pkg/handler/share"
	version_handler "github.com/anzhiyu-c/anheyu-drop/pkg/handler/version"
	"github.com/anzhiyu-c/anheyu-drop/pkg/service/share"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func newTestEngine(adminToken string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	local := storage.NewLocalProvider(afero.NewMemMapFs(), "router-secret")
	registry := share.NewRegistry(local, snapshot.NewBlobSnapshotRepository(local, ""), nil, share.Options{})
	svc := share.NewService(registry, local, nil, share.ServiceOptions{})

	engine := gin.New()
	NewRouter(
		share_handler.NewShareHandler(svc, local, ""),
		version_handler.NewHandler(),
		Options{AdminToken: adminToken, UploadRatePerMinute: 60, UploadBurst: 5},
	).Setup(engine)
	return engine
}

func TestRouter_Routes(t *testing.T) {
	engine := newTestEngine("admin-token")

	tests := []struct {
		name   string
		method string
		target string
		header string
		want   int
	}{
		{"版本信息", http.MethodGet, "/api/version", "", http.StatusOK},
		{"未知链接", http.MethodGet, "/api/shares/nope1234", "", http.StatusNotFound},
		{"短链接不存在", http.MethodGet, "/s/nope1234", "", http.StatusNotFound},
		{"列表需要管理令牌", http.MethodGet, "/api/shares", "", http.StatusUnauthorized},
		{"列表携带令牌", http.MethodGet, "/api/shares", "Bearer admin-token", http.StatusOK},
		{"删除需要管理令牌", http.MethodDelete, "/api/shares/nope1234", "", http.StatusUnauthorized},
		{"删除不存在的链接", http.MethodDelete, "/api/shares/nope1234", "Bearer admin-token", http.StatusNotFound},
		{"签名下载缺少参数", http.MethodGet, "/api/blob/uploads/a/b.txt", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRouter_APIHeaders(t *testing.T) {
	engine := newTestEngine("")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set("Origin", "https://app.example.com")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/api/shares", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}
