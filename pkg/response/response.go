/*
 * @Description:
 * @Author: 安知鱼
 * @Date: 2025-06-15 12:16:18
 * @LastEditTime: 2025-10-20 10:12:40
 * @LastEditors: 安知鱼
 */
package response

import (
	"errors"
	"net/http"

	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/gin-gonic/gin"
)

// Response 是统一的API返回结构体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Fail 失败响应
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// SuccessWithStatus 成功响应，但允许自定义 HTTP 状态码。
// 这对于返回 201 Created 或 202 Accepted 等状态非常有用。
func SuccessWithStatus(c *gin.Context, code int, data interface{}, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// FailWithError 根据业务错误选择 HTTP 状态码，未知错误一律按 500 处理
func FailWithError(c *gin.Context, err error) {
	code := StatusFromError(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "服务器内部错误"
	}
	Fail(c, code, message)
}

// StatusFromError 将 pkg/constant 中的标准错误映射为 HTTP 状态码。
// ErrLinkExpired 同时也是 ErrLinkNotFound，必须先判断。
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, constant.ErrLinkExpired):
		return http.StatusGone
	case errors.Is(err, constant.ErrLinkNotFound):
		return http.StatusNotFound
	case errors.Is(err, constant.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, constant.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, constant.ErrSignatureInvalid):
		return http.StatusForbidden
	case errors.Is(err, constant.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
