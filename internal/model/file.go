// Package model 定义了与数据库表对应的 Go 结构体以及对外的数据传输结构。
package model

import (
	"fmt"
	"time"
)

// FileRecord 定义了 file_record 表的 ORM 模型。
// 它是整个系统唯一的持久化实体，记录一次分享文件的全部元数据。
type FileRecord struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FileName        string    `gorm:"type:varchar(255);not null" json:"fileName"`
	FileSize        int64     `gorm:"not null" json:"fileSize"`
	FileType        string    `gorm:"type:varchar(128)" json:"fileType"`
	Slug            string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"slug"`
	UploadTimestamp time.Time `gorm:"not null" json:"uploadTimestamp"`
	ExpirationDate  time.Time `gorm:"not null;index" json:"expirationDate"`
	DownloadCount   int       `gorm:"not null;default:0" json:"downloadCount"`
	RecipientEmail  string    `gorm:"type:varchar(255)" json:"recipientEmail"`
	Message         string    `gorm:"type:varchar(1024)" json:"message"`
	FilePath        string    `gorm:"type:varchar(512);not null" json:"filePath"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (FileRecord) TableName() string {
	return "file_record"
}

// IsExpired 判断记录在 now 时刻是否已过期。
// 过期条件严格为 expiration_date < now：恰好等于边界时刻的记录仍然有效。
func (f *FileRecord) IsExpired(now time.Time) bool {
	return f.ExpirationDate.Before(now)
}

// FileDescriptor 是返回给前端的文件描述结构。
// 字段名是前端依赖的线上契约，注意 Id 首字母大写而其余字段为驼峰。
type FileDescriptor struct {
	Id              uint      `json:"Id"`
	FileName        string    `json:"fileName"`
	FileSize        int64     `json:"fileSize"`
	FileType        string    `json:"fileType"`
	Slug            string    `json:"slug"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
	ExpirationDate  time.Time `json:"expirationDate"`
	DownloadCount   int       `json:"downloadCount"`
	RecipientEmail  string    `json:"recipientEmail,omitempty"`
	Message         string    `json:"message,omitempty"`
	FilePath        string    `json:"filePath"`
	Category        string    `json:"category"`
	FileSizeDisplay string    `json:"fileSizeDisplay"`
}

// ToDescriptor 将内部记录映射为对外描述结构。
func (f *FileRecord) ToDescriptor() *FileDescriptor {
	return &FileDescriptor{
		Id:              f.ID,
		FileName:        f.FileName,
		FileSize:        f.FileSize,
		FileType:        f.FileType,
		Slug:            f.Slug,
		UploadTimestamp: f.UploadTimestamp,
		ExpirationDate:  f.ExpirationDate,
		DownloadCount:   f.DownloadCount,
		RecipientEmail:  f.RecipientEmail,
		Message:         f.Message,
		FilePath:        f.FilePath,
		Category:        FileCategory(f.FileName, f.FileType),
		FileSizeDisplay: FormatFileSize(f.FileSize),
	}
}

// UploadInput 是上传操作的输入契约：一个类文件值，至少包含名称、大小和 MIME 类型。
// Size 不能标记 required：0 字节是合法大小，required 会把零值当作缺失拒绝。
type UploadInput struct {
	Name string `json:"fileName" binding:"required"`
	Size int64  `json:"fileSize"`
	Type string `json:"fileType"`
}

// ShareData 是可选的分享附加信息，可在上传或生成分享链接时提供。
type ShareData struct {
	RecipientEmail string `json:"recipientEmail"`
	Message        string `json:"message"`
}

// Present 判断是否携带了任意分享字段。
func (s ShareData) Present() bool {
	return s.RecipientEmail != "" || s.Message != ""
}

// ShareLink 封装了生成分享链接操作的结果。
type ShareLink struct {
	ShareURL       string    `json:"shareUrl"`
	ExpirationDate time.Time `json:"expirationDate"`
	Slug           string    `json:"slug"`
}

// DownloadResult 封装了下载操作的结果。
type DownloadResult struct {
	Success       bool   `json:"success"`
	DownloadCount int    `json:"downloadCount"`
	DownloadURL   string `json:"downloadUrl"`
}

// FileStats 封装了单个文件的统计信息。
type FileStats struct {
	DownloadCount   int       `json:"downloadCount"`
	UploadTimestamp time.Time `json:"uploadTimestamp"`
	ExpirationDate  time.Time `json:"expirationDate"`
}

// CleanupResult 封装了过期清理操作的结果。
type CleanupResult struct {
	RemovedCount   int64 `json:"removedCount"`
	RemainingCount int64 `json:"remainingCount"`
}

// FormatFileSize 将字节数格式化为友好的展示字符串，保留两位小数。
func FormatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}

	units := []string{"Bytes", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}

	// 去掉无意义的小数尾零，如 2.00 MB -> 2 MB
	s := fmt.Sprintf("%.2f", size)
	s = trimZeros(s)
	return s + " " + units[i]
}

func trimZeros(s string) string {
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
