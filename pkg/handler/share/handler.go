/*
 * @Description: 分享链接的 HTTP 处理器
 * @Author: 安知鱼
 * @Date: 2025-10-20 10:31:07
 * @LastEditTime: 2025-10-20 14:48:22
 * @LastEditors: 安知鱼
 */
package share

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anzhiyu-c/anheyu-drop/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-drop/pkg/constant"
	"github.com/anzhiyu-c/anheyu-drop/pkg/response"
	share_service "github.com/anzhiyu-c/anheyu-drop/pkg/service/share"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

// multipartOverhead 是 multipart 表单除文件内容外允许的额外字节数
const multipartOverhead = 1 << 20

// ShareHandler 负责处理分享链接相关的 HTTP 请求
type ShareHandler struct {
	svc     share_service.Service
	local   *storage.LocalProvider
	siteURL string
}

// NewShareHandler 是 ShareHandler 的构造函数。
// local 仅在使用本地存储时非空，用于处理签名下载请求。
func NewShareHandler(svc share_service.Service, local *storage.LocalProvider, siteURL string) *ShareHandler {
	return &ShareHandler{
		svc:     svc,
		local:   local,
		siteURL: strings.TrimRight(siteURL, "/"),
	}
}

// UploadResponse 是上传成功后的响应体
type UploadResponse struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Upload 上传文件并创建分享链接
// @Summary      上传文件
// @Description  上传一个文件并返回有时效的分享链接
// @Tags         分享
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "要分享的文件"
// @Success      201  {object}  response.Response{data=UploadResponse}  "上传成功"
// @Failure      400  {object}  response.Response  "未选择文件"
// @Failure      413  {object}  response.Response  "文件过大"
// @Failure      500  {object}  response.Response  "上传失败"
// @Router       /shares [post]
func (h *ShareHandler) Upload(c *gin.Context) {
	maxSize := h.svc.MaxUploadSize()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.Fail(c, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		response.Fail(c, http.StatusBadRequest, "未选择文件")
		return
	}
	if fileHeader.Size > maxSize {
		response.Fail(c, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("[ShareHandler] 打开上传文件失败: %v", err)
		response.Fail(c, http.StatusBadRequest, "无法读取上传的文件")
		return
	}
	defer file.Close()

	result, err := h.svc.Upload(c.Request.Context(), fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		if errors.Is(err, constant.ErrFileTooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, h.tooLargeMessage())
			return
		}
		log.Printf("[ShareHandler] 上传失败: %v", err)
		response.FailWithError(c, err)
		return
	}

	response.SuccessWithStatus(c, http.StatusCreated, UploadResponse{
		ID:          result.Link.ID,
		URL:         h.shareURL(c, result.Link.ID),
		FileName:    result.FileName,
		ContentType: result.ContentType,
		Size:        result.Size,
		ExpiresAt:   result.ExpiresAt,
	}, "上传成功")
}

func (h *ShareHandler) tooLargeMessage() string {
	return fmt.Sprintf("文件过大，最大允许 %s", humanize.IBytes(uint64(h.svc.MaxUploadSize())))
}

// shareURL 构造对外分享的链接，优先使用配置的站点地址
func (h *ShareHandler) shareURL(c *gin.Context, id string) string {
	base := h.siteURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/s/" + id
}

// GetInfo 获取分享链接详情
// @Summary      获取分享详情
// @Tags         分享
// @Produce      json
// @Param        id  path  string  true  "链接ID"
// @Success      200  {object}  response.Response{data=model.ShareInfo}  "获取成功"
// @Failure      404  {object}  response.Response  "链接不存在"
// @Failure      410  {object}  response.Response  "链接已过期"
// @Router       /shares/{id} [get]
func (h *ShareHandler) GetInfo(c *gin.Context) {
	info, err := h.svc.Info(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, info, "获取成功")
}

// List 列出所有未过期的分享链接
// @Summary      分享列表
// @Tags         分享管理
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.ShareInfo}  "获取成功"
// @Router       /shares [get]
func (h *ShareHandler) List(c *gin.Context) {
	infos, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, gin.H{
		"list":  infos,
		"total": len(infos),
	}, "获取成功")
}

// Delete 手动删除分享链接
// @Summary      删除分享
// @Tags         分享管理
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "链接ID"
// @Success      200  {object}  response.Response  "删除成功"
// @Failure      404  {object}  response.Response  "链接不存在"
// @Router       /shares/{id} [delete]
func (h *ShareHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, nil, "删除成功")
}

// Download 校验链接后重定向到限时下载地址
// @Summary      下载分享文件
// @Tags         分享
// @Param        id  path  string  true  "链接ID"
// @Success      302  {string}  string  "重定向到下载地址"
// @Failure      404  {object}  response.Response  "链接不存在"
// @Failure      410  {object}  response.Response  "链接已过期"
// @Router       /s/{id} [get]
func (h *ShareHandler) Download(c *gin.Context) {
	h.redirect(c, false)
}

// View 与 Download 相同，但让浏览器直接预览文件
// @Router       /s/{id}/view [get]
func (h *ShareHandler) View(c *gin.Context) {
	h.redirect(c, true)
}

func (h *ShareHandler) redirect(c *gin.Context, inline bool) {
	downloadURL, err := h.svc.Resolve(c.Request.Context(), c.Param("id"), inline)
	if err != nil {
		if !errors.Is(err, constant.ErrLinkNotFound) {
			log.Printf("[ShareHandler] 解析链接 %s 失败: %v", c.Param("id"), err)
		}
		response.FailWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, downloadURL)
}

// ServeLocalBlob 处理本地存储的签名下载请求
// @Summary      本地文件签名下载
// @Tags         分享
// @Produce      octet-stream
// @Param        key      path   string  true   "对象键"
// @Param        expires  query  string  true   "过期时间戳"
// @Param        sign     query  string  true   "签名"
// @Param        name     query  string  false  "下载文件名"
// @Param        inline   query  string  false  "为 1 时浏览器内预览"
// @Success      200  {file}    file  "文件内容"
// @Failure      403  {object}  response.Response  "签名无效或已过期"
// @Failure      404  {object}  response.Response  "文件不存在"
// @Router       /blob/{key} [get]
func (h *ShareHandler) ServeLocalBlob(c *gin.Context) {
	if h.local == nil {
		response.Fail(c, http.StatusNotFound, "文件不存在")
		return
	}

	key := strings.TrimPrefix(c.Param("key"), "/")
	opts := storage.PresignOptions{
		FileName: c.Query("name"),
		Inline:   c.Query("inline") == "1",
	}
	if err := h.local.VerifySignature(key, c.Query("expires"), c.Query("sign"), opts); err != nil {
		if errors.Is(err, storage.ErrInvalidObjectKey) {
			response.Fail(c, http.StatusBadRequest, "无效的文件路径")
			return
		}
		response.Fail(c, http.StatusForbidden, err.Error())
		return
	}

	info, err := h.local.Stat(key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.Fail(c, http.StatusNotFound, "文件不存在")
			return
		}
		log.Printf("[ShareHandler] 读取本地文件信息失败: %v", err)
		response.Fail(c, http.StatusInternalServerError, "读取文件失败")
		return
	}

	reader, err := h.local.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.Fail(c, http.StatusNotFound, "文件不存在")
			return
		}
		log.Printf("[ShareHandler] 打开本地文件失败: %v", err)
		response.Fail(c, http.StatusInternalServerError, "读取文件失败")
		return
	}
	defer reader.Close()

	if opts.FileName == "" {
		opts.FileName = share_service.FileNameFromObjectKey(key)
	}
	if disposition := storage.ContentDisposition(opts); disposition != "" {
		c.Header("Content-Disposition", disposition)
	}
	// 显式设置 Content-Type，避免 ServeContent 按内容嗅探出 text/html
	contentType := storage.SafeContentType(opts.FileName)
	c.Header("Content-Type", contentType)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "sandbox")

	if seeker, ok := reader.(io.ReadSeeker); ok {
		http.ServeContent(c.Writer, c.Request, opts.FileName, info.ModTime(), seeker)
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), contentType, reader, nil)
}
