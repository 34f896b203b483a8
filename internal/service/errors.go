// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 业务层的哨兵错误。错误文案即返回给前端的提示语。
var (
	// ErrFileNotFound 表示记录从未存在或已被删除。
	ErrFileNotFound = errors.New("File not found or expired")
	// ErrFileExpired 表示记录存在过但已越过过期边界；与 ErrFileNotFound
	// 在用户提示上有别，发现过期的那次访问返回本错误，之后记录即被清除。
	ErrFileExpired = errors.New("File has expired and is no longer available")
	// ErrTransferFailed 表示内容传输协作方失败。此时下载计数已提交且不回滚。
	ErrTransferFailed = errors.New("File transfer failed")
	// ErrUploadFailed 是 slug 生成或插入冲突重试耗尽后的兜底错误。
	ErrUploadFailed = errors.New("Upload failed")
)

// ValidationError 表示文件在任何存储变更之前被校验策略拒绝。
// Reason 是面向用户的完整说明，不会自动重试。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidationError 判断 err 是否为校验错误。
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
