package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"不存在", constant.ErrLinkNotFound, http.StatusNotFound},
		{"已过期", constant.ErrLinkExpired, http.StatusGone},
		{"包装后的过期错误", fmt.Errorf("get: %w", constant.ErrLinkExpired), http.StatusGone},
		{"参数错误", fmt.Errorf("%w: 未选择文件", constant.ErrBadRequest), http.StatusBadRequest},
		{"未授权", constant.ErrUnauthorized, http.StatusUnauthorized},
		{"签名无效", constant.ErrSignatureInvalid, http.StatusForbidden},
		{"文件过大", constant.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromError(tt.err))
		})
	}
}

func TestFailWithError_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FailWithError(c, errors.New("dial tcp 10.0.0.1:6379: refused"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "服务器内部错误", resp.Message)
	assert.Nil(t, resp.Data)
}
