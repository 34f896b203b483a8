// Package tasks 定义了通过 Kafka 传递的任务载荷结构。
package tasks

import "time"

// 文件生命周期事件类型。
const (
	EventFileUploaded   = "file.uploaded"
	EventFileDownloaded = "file.downloaded"
	EventFilesSwept     = "files.swept"
)

// FileEventTask 描述一次文件生命周期事件，发布到事件主题供下游审计消费。
type FileEventTask struct {
	Event         string    `json:"event"`
	FileID        uint      `json:"fileId,omitempty"`
	Slug          string    `json:"slug,omitempty"`
	FileName      string    `json:"fileName,omitempty"`
	DownloadCount int       `json:"downloadCount,omitempty"`
	RemovedCount  int64     `json:"removedCount,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// ShareNotificationTask 描述一次待投递的分享通知（收件人邮件）。
type ShareNotificationTask struct {
	FileID         uint      `json:"fileId"`
	Slug           string    `json:"slug"`
	FileName       string    `json:"fileName"`
	RecipientEmail string    `json:"recipientEmail"`
	Message        string    `json:"message,omitempty"`
	ShareURL       string    `json:"shareUrl"`
	ExpirationDate time.Time `json:"expirationDate"`
}
