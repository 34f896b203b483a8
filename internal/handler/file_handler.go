// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"swiftshare-go/internal/model"
	"swiftshare-go/internal/service"
	"swiftshare-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// FileHandler 负责处理所有与文件分享相关的 API 请求。
type FileHandler struct {
	fileService service.FileService
}

// NewFileHandler 创建一个新的 FileHandler 实例。
func NewFileHandler(fileService service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// uploadRequest 是上传接口的请求体：文件元数据加可选的分享信息。
type uploadRequest struct {
	model.UploadInput
	ShareData model.ShareData `json:"shareData"`
}

// Upload 处理文件上传请求。
func (h *FileHandler) Upload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数不合法"})
		return
	}

	desc, err := h.fileService.Upload(c.Request.Context(), req.UploadInput, req.ShareData)
	if err != nil {
		if service.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error("Upload: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": service.ErrUploadFailed.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "文件上传成功",
		"data":    desc,
	})
}

// GetByShareSlug 处理按分享标识符检索文件的请求。
func (h *FileHandler) GetByShareSlug(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少分享标识符"})
		return
	}

	desc, err := h.fileService.GetByShareSlug(c.Request.Context(), slug)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取文件信息成功",
		"data":    desc,
	})
}

// GenerateShareLink 处理生成分享链接的请求。
func (h *FileHandler) GenerateShareLink(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	// 请求体可以为空；ContentLength 在分块传输下是 -1，不能用它判断有无报文
	var share model.ShareData
	if err := c.ShouldBindJSON(&share); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数不合法"})
		return
	}

	link, err := h.fileService.GenerateShareLink(c.Request.Context(), id, share)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "分享链接生成成功",
		"data":    link,
	})
}

// Download 处理下载请求：提交计数并返回一次性的下载地址。
func (h *FileHandler) Download(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.fileService.Download(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTransferFailed) {
			log.Error("Download: transfer failed", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": service.ErrTransferFailed.Error()})
			return
		}
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "下载成功",
		"data":    result,
	})
}

// GetFileStats 处理获取单个文件统计信息的请求。
func (h *FileHandler) GetFileStats(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	stats, err := h.fileService.GetFileStats(c.Request.Context(), id)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取统计信息成功",
		"data":    stats,
	})
}

// Cleanup 处理手动触发过期清理的请求。
func (h *FileHandler) Cleanup(c *gin.Context) {
	result := h.fileService.CleanupExpired(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "清理完成",
		"data":    result,
	})
}

// ResolveShare 是公开分享链接 /download/:slug 的落地接口。
func (h *FileHandler) ResolveShare(c *gin.Context) {
	slug := c.Param("slug")
	desc, err := h.fileService.GetByShareSlug(c.Request.Context(), slug)
	if err != nil {
		h.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取分享文件成功",
		"data":    desc,
	})
}

func (h *FileHandler) parseID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "文件 ID 不合法"})
		return 0, false
	}
	return uint(id), true
}

// writeLookupError 将业务层的检索错误映射为对应的 HTTP 状态码。
// 过期与不存在对外是不同的提示。
func (h *FileHandler) writeLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFileExpired):
		c.JSON(http.StatusGone, gin.H{"error": service.ErrFileExpired.Error()})
	case errors.Is(err, service.ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrFileNotFound.Error()})
	default:
		log.Error("FileHandler: unexpected error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}
