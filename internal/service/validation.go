package service

import (
	"fmt"
	"strings"

	"swiftshare-go/internal/model"
)

// blockedExtensions 是出于安全原因一律拒绝的扩展名黑名单。
// 黑名单优先于一切：命中即失败，与 MIME 类型无关。
var blockedExtensions = map[string]struct{}{
	".php": {}, ".exe": {}, ".bat": {}, ".cmd": {}, ".scr": {}, ".pif": {},
	".vbs": {}, ".js": {}, ".jar": {}, ".com": {}, ".app": {}, ".msi": {}, ".dmg": {},
}

// allowedMimeTypes 是受支持的 MIME 类型白名单。
// 空 MIME 类型始终放行：浏览器对部分文件不上报类型。
var allowedMimeTypes = map[string]struct{}{
	// 图片
	"image/jpeg": {}, "image/jpg": {}, "image/png": {}, "image/gif": {},
	"image/webp": {}, "image/svg+xml": {},
	// 文档
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"application/vnd.ms-powerpoint":                                     {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	// 文本
	"text/plain": {}, "text/csv": {}, "application/json": {},
	// 压缩包
	"application/zip": {}, "application/x-zip-compressed": {}, "application/x-rar-compressed": {},
	// 音视频
	"video/mp4": {}, "video/quicktime": {}, "video/x-msvideo": {}, "video/webm": {},
	"audio/mpeg": {}, "audio/wav": {}, "audio/ogg": {}, "audio/mp3": {},
}

// ValidateSize 判断文件大小是否不超过上限。纯函数，不依赖存储。
func ValidateSize(size, maxBytes int64) bool {
	return size <= maxBytes
}

// ValidateType 校验文件的扩展名与 MIME 类型：先查黑名单，再查白名单。
// 返回 nil 表示通过，否则返回携带完整说明的 *ValidationError。
func ValidateType(fileName, mimeType string) error {
	if err := validateBlockedExtension(fileName); err != nil {
		return err
	}
	return validateAllowedType(mimeType)
}

// ValidateFile 按既定顺序执行完整的上传前校验：
// 扩展名黑名单 → 大小上限 → MIME 白名单，首个失败即返回。
func ValidateFile(fileName string, size int64, mimeType string, maxBytes int64) error {
	if err := validateBlockedExtension(fileName); err != nil {
		return err
	}
	if !ValidateSize(size, maxBytes) {
		return &ValidationError{
			Reason: fmt.Sprintf("File size must be less than %s", sizeLimitLabel(maxBytes)),
		}
	}
	return validateAllowedType(mimeType)
}

// sizeLimitLabel 以紧凑格式渲染大小上限，线上文案是 100MB 而非 100 MB。
func sizeLimitLabel(maxBytes int64) string {
	return strings.ReplaceAll(model.FormatFileSize(maxBytes), " ", "")
}

func validateBlockedExtension(fileName string) error {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 {
		return nil
	}
	ext := strings.ToLower(fileName[idx:])
	if _, blocked := blockedExtensions[ext]; blocked {
		return &ValidationError{
			Reason: fmt.Sprintf("File type %s is not allowed for security reasons", ext),
		}
	}
	return nil
}

func validateAllowedType(mimeType string) error {
	if mimeType == "" {
		return nil
	}
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return &ValidationError{Reason: "This file type is not supported"}
	}
	return nil
}
